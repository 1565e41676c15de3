// Package transfer 串联风控、余额检查、构建、签名与广播。
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tron-wallet-core/internal/model"
	"tron-wallet-core/internal/service/balance"
	"tron-wallet-core/internal/service/broadcaster"
	"tron-wallet-core/internal/service/risk"
	"tron-wallet-core/internal/service/txbuilder"
	"tron-wallet-core/pkg/address"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/signer"
	"tron-wallet-core/pkg/utils/lock"
	"tron-wallet-core/pkg/wallet/types"
)

// 附加提示码
const (
	WarnUnactivatedRecipient = "unactivated_recipient"
	WarnNoTRXBalance         = "no_trx_balance"
	WarnRecipientUnchecked   = "recipient_unchecked"
	WarnBalanceUnchecked     = "balance_unchecked"
)

var (
	ErrKeyRequired       = errors.New("signing requires a private key")
	ErrSignRequired      = errors.New("broadcast requires signing")
	ErrNoCanonicalSource = errors.New("signing requires a canonical transaction source")
	ErrSenderMismatch    = errors.New("from does not match the private key address")
)

// RecipientSource 接收方账户状态，由 tronscan.Client 实现
type RecipientSource interface {
	GetAccountStatus(ctx context.Context, addr string) (model.AccountStatus, error)
}

// BlockSource 最新区块，由 tronrpc.Client 实现
type BlockSource interface {
	LatestBlock(ctx context.Context) (model.Block, error)
}

// Request 一次转账请求。From 与 Key 至少提供一个。
// Key 只在本次调用内使用，调用结束后被清零。
type Request struct {
	From           string
	Key            *signer.Key
	To             string
	Amount         string
	Token          string
	ForceExecution bool
	Sign           bool
	Broadcast      bool
}

// Warning 不阻断流程的提示
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outcome Blocked 与 Unsigned/Signed 互斥
type Outcome struct {
	Blocked      *risk.BlockedResult        `json:"blocked,omitempty"`
	Unsigned     *types.UnsignedTransaction `json:"unsigned,omitempty"`
	Signed       *types.SignedTransaction   `json:"signed,omitempty"`
	Broadcast    *broadcaster.Result        `json:"broadcast,omitempty"`
	Verdict      *risk.Verdict              `json:"verdict"`
	BalanceCheck *balance.Result            `json:"balance_check,omitempty"`
	Recipient    *model.AccountStatus       `json:"recipient,omitempty"`
	Overridden   bool                       `json:"overridden,omitempty"`
	// ExpiresAt 交易有效期，经节点规范化时取节点给出的值
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Warnings  []Warning  `json:"warnings,omitempty"`
	Summary   string     `json:"summary"`
}

// Service 的依赖。Recipients、Canonical、Broadcaster、Locks 可以为 nil。
type Service struct {
	Builder     *txbuilder.Builder
	Evaluator   *risk.Evaluator
	Breaker     *risk.Breaker
	Checker     *balance.Checker
	Blocks      BlockSource
	Recipients  RecipientSource
	Canonical   txbuilder.CanonicalSource
	Broadcaster *broadcaster.Broadcaster

	// Locks 广播时按发送方加锁，避免并发转账同时通过余额检查。为 nil 时不加锁。
	Locks   lock.DistributedLock
	LockTTL time.Duration

	// RecipientTimeout 接收方状态查询超时
	RecipientTimeout time.Duration

	log *zap.Logger
}

func (s *Service) lg() *zap.Logger {
	if s.log == nil {
		s.log = logger.Named("transfer")
	}
	return s.log
}

// BuildAndMaybeSign 风控 → 熔断 → 余额 → 构建，任一步拦截或失败即返回。
// 被拦截时返回 Outcome.Blocked 而不是错误；余额不足返回 *errno.InsufficientBalanceError。
func (s *Service) BuildAndMaybeSign(ctx context.Context, req Request) (*Outcome, error) {
	defer req.Key.Destroy()

	// 1. 参数校验，在任何网络调用之前
	from := req.From
	if req.Key != nil {
		if from == "" {
			from = req.Key.Address()
		} else if address.IsValid(from) && !sameAccount(from, req.Key.Address()) {
			return nil, errno.NewValidation(errno.ErrInvalidKey, "from", req.From, ErrSenderMismatch.Error())
		}
	}
	if req.Broadcast && !req.Sign {
		return nil, ErrSignRequired
	}
	if req.Sign && req.Key == nil {
		return nil, ErrKeyRequired
	}
	if req.Sign && s.Canonical == nil {
		return nil, ErrNoCanonicalSource
	}

	v, err := s.Builder.Validate(txbuilder.Request{From: from, To: req.To, Amount: req.Amount, Token: req.Token})
	if err != nil {
		return nil, err
	}

	log := s.lg().With(
		zap.String("from", v.From),
		zap.String("to", v.To),
		zap.String("amount", v.Amount.String()),
		zap.String("token", v.Token.Symbol),
	)

	// 2. 风险评估与接收方状态并行查询
	out := &Outcome{}
	var (
		verdict      *risk.Verdict
		recipient    model.AccountStatus
		recipientErr error
	)
	var g errgroup.Group
	g.Go(func() error {
		verdict = s.Evaluator.Evaluate(ctx, v.To)
		return nil
	})
	checkRecipient := !v.Token.IsNative() && s.Recipients != nil
	if checkRecipient {
		g.Go(func() error {
			recipient, recipientErr = s.recipientStatus(ctx, v.To)
			return nil
		})
	}
	_ = g.Wait()
	out.Verdict = verdict

	// 3. 熔断，拦截时不做余额、区块与签名
	decision := s.Breaker.Gate(ctx, verdict, req.ForceExecution,
		risk.WithTransfer(v.From, v.Amount.String(), v.Token.Symbol))
	if decision.Blocked != nil {
		out.Blocked = decision.Blocked
		out.Summary = decision.Blocked.Summary
		log.Info("转账被拦截", zap.String("risk_type", decision.Blocked.RiskType))
		return out, nil
	}
	out.Overridden = decision.Overridden
	if decision.Warning != nil {
		out.Warnings = append(out.Warnings, Warning{Code: decision.Warning.Code, Message: decision.Warning.Message})
	}

	if req.Broadcast && s.Locks != nil {
		release, err := s.lockSender(ctx, v.From)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	// 4. 余额检查，余额不足优先于接收方提示
	check, err := s.Checker.Check(ctx, v.From, v.AmountSmallest, v.Token)
	if err != nil {
		log.Info("余额不足", zap.Error(err))
		return nil, err
	}
	out.BalanceCheck = check
	if !check.Checked {
		for _, d := range check.Diagnostics {
			out.Warnings = append(out.Warnings, Warning{Code: WarnBalanceUnchecked, Message: d.Code + ": " + d.Message})
		}
	}

	if checkRecipient {
		out.Warnings = append(out.Warnings, recipientWarnings(v, recipient, recipientErr)...)
		if recipientErr == nil {
			out.Recipient = &recipient
		}
	}

	// 5. 最新区块 + 构建
	block, err := s.Blocks.LatestBlock(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest block: %w", err)
	}
	tx, err := s.Builder.Build(v, block)
	if err != nil {
		return nil, err
	}

	// 6. 由节点给出规范序列化与 txID
	if s.Canonical != nil {
		tx, err = txbuilder.Canonicalize(ctx, s.Canonical, tx)
		if err != nil {
			return nil, err
		}
	}
	out.Unsigned = tx
	expiresAt := time.UnixMilli(tx.RawData.Expiration).UTC()
	out.ExpiresAt = &expiresAt

	// 7. 签名
	if req.Sign {
		signed, err := signer.Sign(tx, req.Key)
		if err != nil {
			return nil, err
		}
		out.Signed = signed
	}

	// 8. 广播，不重试
	if req.Broadcast {
		if s.Broadcaster == nil {
			return nil, errors.New("broadcaster not configured")
		}
		res, err := s.Broadcaster.Broadcast(ctx, out.Signed)
		if err != nil {
			return nil, err
		}
		out.Broadcast = res
	}

	out.Summary = summarize(v, out)
	log.Info("转账构建完成",
		zap.String("local_id", tx.LocalID),
		zap.String("txid", tx.TxID),
		zap.String("risk_state", string(verdict.State)),
		zap.Bool("signed", out.Signed != nil),
		zap.Bool("broadcast", out.Broadcast != nil),
	)
	return out, nil
}

// lockSender 持锁覆盖余额检查到广播完成
func (s *Service) lockSender(ctx context.Context, from string) (func(), error) {
	ttl := s.LockTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	key := "transfer:" + from
	token, err := s.Locks.Acquire(ctx, key, ttl)
	if errors.Is(err, lock.ErrNotAcquired) {
		return nil, errno.ErrTransferInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("acquire sender lock: %w", err)
	}
	return func() {
		if err := s.Locks.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.lg().Warn("释放发送方锁失败", zap.String("from", from), zap.Error(err))
		}
	}, nil
}

func (s *Service) recipientStatus(ctx context.Context, addr string) (model.AccountStatus, error) {
	timeout := s.RecipientTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	st, err := s.Recipients.GetAccountStatus(ctx, addr)
	if err != nil {
		return st, errno.Transport("recipient status", timeout, err)
	}
	return st, nil
}

// recipientWarnings 查询失败只提示未检查，不阻断
func recipientWarnings(v *txbuilder.ValidatedRequest, st model.AccountStatus, err error) []Warning {
	if err != nil {
		msg := "recipient status could not be checked: " + err.Error()
		if errno.IsTimeout(err) {
			msg = "recipient status check timed out"
		}
		return []Warning{{Code: WarnRecipientUnchecked, Message: msg}}
	}

	var out []Warning
	if !st.Activated {
		out = append(out, Warning{
			Code:    WarnUnactivatedRecipient,
			Message: fmt.Sprintf("recipient %s is not activated; sending %s will consume extra energy", v.To, v.Token.Symbol),
		})
	}
	if !st.HasTRX {
		out = append(out, Warning{
			Code:    WarnNoTRXBalance,
			Message: fmt.Sprintf("recipient %s holds no TRX and cannot move %s without resources", v.To, v.Token.Symbol),
		})
	}
	return out
}

func summarize(v *txbuilder.ValidatedRequest, out *Outcome) string {
	action := "built"
	switch {
	case out.Broadcast != nil:
		action = "broadcast"
	case out.Signed != nil:
		action = "signed"
	}
	s := fmt.Sprintf("%s transfer of %s %s from %s to %s", action, v.Amount.String(), v.Token.Symbol, v.From, v.To)
	if out.Overridden {
		s += " (risk override)"
	}
	if out.Verdict != nil {
		s += "; " + out.Verdict.Summary()
	}
	if len(out.Warnings) > 0 {
		s += fmt.Sprintf("; %d warning(s)", len(out.Warnings))
	}
	if out.ExpiresAt != nil {
		s += "; expires " + out.ExpiresAt.Format(time.RFC3339)
	}
	return s
}

func sameAccount(a, b string) bool {
	pa, err := address.Decode(a)
	if err != nil {
		return false
	}
	pb, err := address.Decode(b)
	return err == nil && pa == pb
}
