package transfer

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tron-wallet-core/internal/client/trongrid"
	"tron-wallet-core/internal/model"
	"tron-wallet-core/internal/service/balance"
	"tron-wallet-core/internal/service/broadcaster"
	"tron-wallet-core/internal/service/fee"
	"tron-wallet-core/internal/service/risk"
	"tron-wallet-core/internal/service/txbuilder"
	"tron-wallet-core/pkg/crypto_util"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/signer"
	"tron-wallet-core/pkg/utils/lock"
	"tron-wallet-core/pkg/wallet/types"
)

const (
	senderKey = "e8135b91771671df0b9cc9a40137660a47b9babf7539b7c55756dd6816de5f4e"
	sender    = "TFwpzzQoGTJW4hUhGKKUZe4wSVCgyMoodZ"
	recipient = "TMVQGm1qAQYVdetCeGRRkTWYYrLXuHK2HC"
	usdt      = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	blockHash = "0x0000000003c1b2a4c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a4b5"
)

func trx(n int64) *big.Int       { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000)) }
func usdtUnits(n int64) *big.Int { return trx(n) }

// --- fakes ---

type fakeQuerier struct {
	mu     sync.Mutex
	native *big.Int
	token  *big.Int
	err    error
	calls  int
}

func (f *fakeQuerier) GetNativeBalance(context.Context, string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.native, f.err
}

func (f *fakeQuerier) GetTokenBalance(context.Context, string, string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.token, f.err
}

type fakeTags struct {
	tags  risk.AccountTags
	block bool
}

func (f fakeTags) GetAccountTags(ctx context.Context, _ string) (risk.AccountTags, error) {
	if f.block {
		<-ctx.Done()
		return risk.AccountTags{}, ctx.Err()
	}
	return f.tags, nil
}

type fakeBehavior struct{ block bool }

func (f fakeBehavior) GetAccountBehaviorFlags(ctx context.Context, _ string) (risk.BehaviorFlags, error) {
	if f.block {
		<-ctx.Done()
		return risk.BehaviorFlags{}, ctx.Err()
	}
	return risk.BehaviorFlags{}, nil
}

type fakeBlocks struct{ calls int }

func (f *fakeBlocks) LatestBlock(context.Context) (model.Block, error) {
	f.calls++
	return model.Block{Number: 0x3c1b2a4, Hash: blockHash}, nil
}

type fakeRecipients struct {
	status model.AccountStatus
	err    error
}

func (f fakeRecipients) GetAccountStatus(_ context.Context, addr string) (model.AccountStatus, error) {
	st := f.status
	st.Address = addr
	return st, f.err
}

type fakeAudit struct{ events []risk.OverrideEvent }

func (f *fakeAudit) RecordOverride(_ context.Context, ev risk.OverrideEvent) error {
	f.events = append(f.events, ev)
	return nil
}

// fakeNode 回显操作，生成 raw_data_hex 与 txID
var nodeNow = time.Now()

type fakeNode struct{}

func (fakeNode) reply(op types.Operation, feeLimit int64) (*types.UnsignedTransaction, error) {
	rawHex := "0a02b2a42208c2d3e4f5a6b7c8d940e0a7b4b3a531"
	raw, _ := hex.DecodeString(rawHex)
	return &types.UnsignedTransaction{
		TxID:       crypto_util.CalculateSHA256(raw),
		RawDataHex: rawHex,
		Visible:    true,
		RawData: types.RawData{
			RefBlockBytes: "b2a4",
			RefBlockHash:  "c2d3e4f5a6b7c8d9",
			Timestamp:     nodeNow.UnixMilli(),
			Expiration:    nodeNow.Add(time.Hour).UnixMilli(),
			FeeLimit:      feeLimit,
			Operation:     op,
		},
	}, nil
}

func (n fakeNode) CreateTransaction(_ context.Context, op types.NativeTransfer) (*types.UnsignedTransaction, error) {
	return n.reply(op, 0)
}

func (n fakeNode) TriggerSmartContract(_ context.Context, op types.ContractCall, feeLimit int64) (*types.UnsignedTransaction, error) {
	return n.reply(op, feeLimit)
}

type fakeRelay struct{}

func (fakeRelay) BroadcastTransaction(_ context.Context, tx *types.SignedTransaction) (*trongrid.BroadcastResponse, error) {
	return &trongrid.BroadcastResponse{Result: true, TxID: tx.TxID}, nil
}

type env struct {
	svc     *Service
	querier *fakeQuerier
	blocks  *fakeBlocks
	audit   *fakeAudit
}

func newEnv(q *fakeQuerier, tags fakeTags, behavior fakeBehavior) *env {
	audit := &fakeAudit{}
	blocks := &fakeBlocks{}
	svc := &Service{
		Builder:   txbuilder.NewBuilder(model.NewTokenRegistry("USDT", usdt, 6), 100_000_000, 10*time.Minute),
		Evaluator: risk.NewEvaluator(tags, behavior, nil, 20*time.Millisecond),
		Breaker:   risk.NewBreaker(audit),
		Checker:   balance.NewChecker(q, fee.NewModel(fee.DefaultParams())),
		Blocks:    blocks,
	}
	return &env{svc: svc, querier: q, blocks: blocks, audit: audit}
}

func funded() *fakeQuerier {
	return &fakeQuerier{native: trx(100), token: usdtUnits(50)}
}

func hasWarning(out *Outcome, code string) bool {
	for _, w := range out.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// --- scenarios ---

func TestTokenShortfallReportsInsufficientToken(t *testing.T) {
	e := newEnv(&fakeQuerier{native: trx(100), token: big.NewInt(0)}, fakeTags{}, fakeBehavior{})

	out, err := e.svc.BuildAndMaybeSign(context.Background(), Request{From: sender, To: recipient, Amount: "10", Token: "USDT"})
	require.Nil(t, out)

	var ie *errno.InsufficientBalanceError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, errno.CodeInsufficientToken, ie.Code)
	assert.True(t, ie.Required.Equal(decimal.NewFromInt(10)), ie.Required.String())
	assert.True(t, ie.Available.IsZero())
	assert.Equal(t, 0, e.blocks.calls, "余额不足时不查询区块")
}

func TestRiskyRecipientBlockedWithoutForce(t *testing.T) {
	e := newEnv(funded(), fakeTags{tags: risk.AccountTags{RedTag: "Scam"}}, fakeBehavior{})

	out, err := e.svc.BuildAndMaybeSign(context.Background(), Request{From: sender, To: recipient, Amount: "10", Token: "USDT"})
	require.NoError(t, err)
	require.NotNil(t, out.Blocked)

	assert.True(t, out.Blocked.Blocked)
	assert.False(t, out.Blocked.Error)
	assert.Equal(t, risk.CodeRiskBlocked, out.Blocked.Code)
	assert.Contains(t, strings.Join(out.Blocked.Reasons, "|"), "Scam")
	assert.Contains(t, out.Blocked.Hint, "force_execution=true")
	assert.Nil(t, out.Unsigned)

	assert.Equal(t, 0, e.querier.calls, "拦截后不查询余额")
	assert.Equal(t, 0, e.blocks.calls, "拦截后不查询区块")
	assert.Empty(t, e.audit.events)
}

func TestForceExecutionRecordsOverride(t *testing.T) {
	e := newEnv(funded(), fakeTags{tags: risk.AccountTags{RedTag: "Scam"}}, fakeBehavior{})

	out, err := e.svc.BuildAndMaybeSign(context.Background(), Request{
		From: sender, To: recipient, Amount: "10", Token: "USDT", ForceExecution: true,
	})
	require.NoError(t, err)
	assert.Nil(t, out.Blocked)
	require.NotNil(t, out.Unsigned)
	assert.True(t, out.Overridden)
	assert.Contains(t, out.Summary, "risk override")

	require.Len(t, e.audit.events, 1)
	ev := e.audit.events[0]
	assert.Equal(t, recipient, ev.Recipient)
	assert.Equal(t, sender, ev.From)
	assert.Equal(t, "10", ev.Amount)
	assert.Equal(t, "USDT", ev.Token)
}

func TestBothRiskSourcesTimeOutStillBuilds(t *testing.T) {
	e := newEnv(funded(), fakeTags{block: true}, fakeBehavior{block: true})

	out, err := e.svc.BuildAndMaybeSign(context.Background(), Request{From: sender, To: recipient, Amount: "10", Token: "USDT"})
	require.NoError(t, err)
	require.NotNil(t, out.Unsigned)
	assert.Nil(t, out.Blocked)

	assert.Equal(t, risk.StateUnknown, out.Verdict.State)
	assert.False(t, out.Verdict.IsRisky)
	require.True(t, hasWarning(out, risk.CodeRiskUnknown))
	assert.Equal(t, risk.DegradationReason, out.Warnings[0].Message)
	assert.True(t, out.BalanceCheck.IsSufficient())
}

// --- other paths ---

func TestSafeNativeTransferBuilds(t *testing.T) {
	e := newEnv(funded(), fakeTags{}, fakeBehavior{})

	out, err := e.svc.BuildAndMaybeSign(context.Background(), Request{From: sender, To: recipient, Amount: "1.5", Token: "TRX"})
	require.NoError(t, err)
	require.NotNil(t, out.Unsigned)
	assert.Empty(t, out.Warnings)
	assert.Equal(t, risk.StateSafe, out.Verdict.State)

	op, ok := out.Unsigned.RawData.Operation.(types.NativeTransfer)
	require.True(t, ok)
	assert.Equal(t, int64(1_500_000), op.Amount)
	assert.Empty(t, out.Unsigned.TxID, "未配置规范来源时没有 txID")
	assert.NotEmpty(t, out.Unsigned.LocalID)
	assert.Contains(t, out.Summary, "built transfer of 1.5 TRX")
}

func TestBalanceUncheckedIsNotSufficient(t *testing.T) {
	e := newEnv(&fakeQuerier{err: &errno.TimeoutError{Op: "eth_getBalance", Timeout: time.Second}}, fakeTags{}, fakeBehavior{})

	out, err := e.svc.BuildAndMaybeSign(context.Background(), Request{From: sender, To: recipient, Amount: "1", Token: "TRX"})
	require.NoError(t, err)
	require.NotNil(t, out.Unsigned)
	assert.False(t, out.BalanceCheck.Checked)
	assert.Nil(t, out.BalanceCheck.Sufficient)
	assert.True(t, hasWarning(out, WarnBalanceUnchecked))
}

func TestRecipientWarnings(t *testing.T) {
	tests := []struct {
		name  string
		src   fakeRecipients
		codes []string
	}{
		{"activated with trx", fakeRecipients{status: model.AccountStatus{Activated: true, HasTRX: true}}, nil},
		{"unactivated", fakeRecipients{}, []string{WarnUnactivatedRecipient, WarnNoTRXBalance}},
		{"no trx", fakeRecipients{status: model.AccountStatus{Activated: true}}, []string{WarnNoTRXBalance}},
		{"lookup failed", fakeRecipients{err: errors.New("explorer down")}, []string{WarnRecipientUnchecked}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(funded(), fakeTags{}, fakeBehavior{})
			e.svc.Recipients = tt.src

			out, err := e.svc.BuildAndMaybeSign(context.Background(), Request{From: sender, To: recipient, Amount: "10"})
			require.NoError(t, err)

			var codes []string
			for _, w := range out.Warnings {
				codes = append(codes, w.Code)
			}
			assert.Equal(t, tt.codes, codes)
		})
	}
}

func TestShortfallTakesPrecedenceOverRecipientWarnings(t *testing.T) {
	e := newEnv(&fakeQuerier{native: trx(100), token: big.NewInt(0)}, fakeTags{}, fakeBehavior{})
	e.svc.Recipients = fakeRecipients{}

	_, err := e.svc.BuildAndMaybeSign(context.Background(), Request{From: sender, To: recipient, Amount: "10", Token: "USDT"})
	assert.ErrorIs(t, err, errno.ErrInsufficientBalance)
}

func TestSignAndBroadcast(t *testing.T) {
	e := newEnv(funded(), fakeTags{}, fakeBehavior{})
	e.svc.Canonical = fakeNode{}
	e.svc.Broadcaster = broadcaster.NewBroadcaster(fakeRelay{}, nil)

	key, err := signer.LoadPrivateKey(senderKey)
	require.NoError(t, err)

	out, err := e.svc.BuildAndMaybeSign(context.Background(), Request{
		Key: key, To: recipient, Amount: "10", Token: "USDT", Sign: true, Broadcast: true,
	})
	require.NoError(t, err)
	require.NotNil(t, out.Signed)
	require.Len(t, out.Signed.Signature, 1)
	assert.Len(t, out.Signed.Signature[0], 130)

	digest, _ := hex.DecodeString(out.Signed.TxID)
	sig, _ := hex.DecodeString(out.Signed.Signature[0])
	ok, err := signer.Verify(digest, sig, sender)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NotNil(t, out.Broadcast)
	assert.Equal(t, out.Signed.TxID, out.Broadcast.TxID)
	assert.Contains(t, out.Summary, "broadcast transfer")

	// 有效期取节点返回的值
	require.NotNil(t, out.ExpiresAt)
	assert.Equal(t, nodeNow.Add(time.Hour).UnixMilli(), out.ExpiresAt.UnixMilli())
	assert.Contains(t, out.Summary, "expires "+out.ExpiresAt.Format(time.RFC3339))
}

func TestRequestPreconditions(t *testing.T) {
	key := func() *signer.Key {
		k, err := signer.LoadPrivateKey(senderKey)
		require.NoError(t, err)
		return k
	}

	e := newEnv(funded(), fakeTags{}, fakeBehavior{})
	ctx := context.Background()

	_, err := e.svc.BuildAndMaybeSign(ctx, Request{From: sender, To: recipient, Amount: "1", Sign: true})
	assert.ErrorIs(t, err, ErrKeyRequired)

	_, err = e.svc.BuildAndMaybeSign(ctx, Request{From: sender, To: recipient, Amount: "1", Broadcast: true})
	assert.ErrorIs(t, err, ErrSignRequired)

	_, err = e.svc.BuildAndMaybeSign(ctx, Request{Key: key(), To: recipient, Amount: "1", Sign: true})
	assert.ErrorIs(t, err, ErrNoCanonicalSource)

	_, err = e.svc.BuildAndMaybeSign(ctx, Request{From: recipient, Key: key(), To: sender, Amount: "1"})
	assert.ErrorIs(t, err, errno.ErrInvalidKey)

	_, err = e.svc.BuildAndMaybeSign(ctx, Request{From: sender, To: "bogus", Amount: "1"})
	assert.ErrorIs(t, err, errno.ErrInvalidAddress)
	assert.Equal(t, 0, e.querier.calls, "校验失败不访问网络")
}

type fakeLock struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
}

func (l *fakeLock) Acquire(_ context.Context, key string, _ time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.held[key]; ok {
		return "", lock.ErrNotAcquired
	}
	l.held[key] = "t-" + key
	return l.held[key], nil
}

func (l *fakeLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		l.released = append(l.released, key)
	}
	return nil
}

func TestBroadcastHoldsSenderLock(t *testing.T) {
	e := newEnv(funded(), fakeTags{}, fakeBehavior{})
	e.svc.Canonical = fakeNode{}
	e.svc.Broadcaster = broadcaster.NewBroadcaster(fakeRelay{}, nil)
	locks := &fakeLock{held: map[string]string{}}
	e.svc.Locks = locks

	key := func() *signer.Key {
		k, err := signer.LoadPrivateKey(senderKey)
		require.NoError(t, err)
		return k
	}
	req := func() Request {
		return Request{Key: key(), To: recipient, Amount: "1", Token: "TRX", Sign: true, Broadcast: true}
	}

	_, err := e.svc.BuildAndMaybeSign(context.Background(), req())
	require.NoError(t, err)
	assert.Equal(t, []string{"transfer:" + sender}, locks.released)
	assert.Empty(t, locks.held)

	// 其他进程持有锁时拒绝，且不查询区块
	locks.held["transfer:"+sender] = "other"
	blocks := e.blocks.calls
	_, err = e.svc.BuildAndMaybeSign(context.Background(), req())
	assert.ErrorIs(t, err, errno.ErrTransferInProgress)
	assert.Equal(t, blocks, e.blocks.calls)
	assert.Equal(t, "other", locks.held["transfer:"+sender])

	// 仅构建不加锁
	_, err = e.svc.BuildAndMaybeSign(context.Background(), Request{From: sender, To: recipient, Amount: "1", Token: "TRX"})
	assert.NoError(t, err)
}
