// Package balance 在构建交易前判断发送方余额是否足够支付金额与费用。
package balance

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tron-wallet-core/internal/model"
	"tron-wallet-core/internal/service/fee"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/monitor"
)

// Querier 余额查询接口，返回最小单位
type Querier interface {
	GetNativeBalance(ctx context.Context, addr string) (*big.Int, error)
	GetTokenBalance(ctx context.Context, addr, contract string) (*big.Int, error)
}

// 诊断码
const (
	DiagTimeout = "balance_query_timeout"
	DiagFailed  = "balance_query_failed"
)

// Diagnostic 查询失败的说明，仅用于展示与排查
type Diagnostic struct {
	Code    string `json:"code"`
	Asset   string `json:"asset"`
	Message string `json:"message"`
}

// Result 余额检查结果。Checked=false 时 Sufficient 为 nil，不能当作余额充足。
type Result struct {
	Checked     bool                       `json:"checked"`
	Sufficient  *bool                      `json:"sufficient"`
	Balances    map[string]decimal.Decimal `json:"balances,omitempty"`
	FeeSun      int64                      `json:"fee_sun"`
	Diagnostics []Diagnostic               `json:"diagnostics,omitempty"`
}

// IsSufficient 只有检查完成且充足时为 true
func (r *Result) IsSufficient() bool {
	return r != nil && r.Checked && r.Sufficient != nil && *r.Sufficient
}

type Checker struct {
	q   Querier
	fee *fee.Model
	log *zap.Logger
}

func NewChecker(q Querier, fm *fee.Model) *Checker {
	return &Checker{q: q, fee: fm, log: logger.Named("balance")}
}

// Check 只读。余额不足返回 *errno.InsufficientBalanceError；
// 查询失败返回 Checked=false 的结果而不是错误。
func (c *Checker) Check(ctx context.Context, from string, amount *big.Int, token model.Token) (*Result, error) {
	if token.IsNative() {
		return c.checkNative(ctx, from, amount)
	}
	return c.checkToken(ctx, from, amount, token)
}

func (c *Checker) checkNative(ctx context.Context, from string, amount *big.Int) (*Result, error) {
	feeSun := c.fee.NativeTransferFee()

	native, err := c.q.GetNativeBalance(ctx, from)
	if err != nil {
		return c.unchecked(from, feeSun, diagnose("TRX", err)), nil
	}

	balances := map[string]decimal.Decimal{"TRX": model.FromSmallest(native, model.NativeDecimals)}
	required := new(big.Int).Add(amount, big.NewInt(feeSun))

	if native.Cmp(required) < 0 {
		s := shortfall(errno.CodeInsufficientNative, "TRX", required, native, model.NativeDecimals,
			"TRX balance does not cover amount plus fee")
		return nil, c.reject(from, []errno.Shortfall{s}, balances)
	}
	return c.sufficient(balances, feeSun), nil
}

func (c *Checker) checkToken(ctx context.Context, from string, amount *big.Int, token model.Token) (*Result, error) {
	feeSun := c.fee.Estimate(model.TokenTRC20).TotalSun

	var tokenBal, native *big.Int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.q.GetTokenBalance(gctx, from, token.Contract)
		if err != nil {
			return &queryError{asset: token.Symbol, err: err}
		}
		tokenBal = v
		return nil
	})
	g.Go(func() error {
		v, err := c.q.GetNativeBalance(gctx, from)
		if err != nil {
			return &queryError{asset: "TRX", err: err}
		}
		native = v
		return nil
	})
	if err := g.Wait(); err != nil {
		asset := "unknown"
		var qe *queryError
		if errors.As(err, &qe) {
			asset = qe.asset
			err = qe.err
		}
		return c.unchecked(from, feeSun, diagnose(asset, err)), nil
	}

	balances := map[string]decimal.Decimal{
		token.Symbol: model.FromSmallest(tokenBal, token.Decimals),
		"TRX":        model.FromSmallest(native, model.NativeDecimals),
	}

	var shortfalls []errno.Shortfall
	if tokenBal.Cmp(amount) < 0 {
		shortfalls = append(shortfalls, shortfall(errno.CodeInsufficientToken, token.Symbol, amount, tokenBal, token.Decimals,
			token.Symbol+" balance is lower than the transfer amount"))
	}
	feeBig := big.NewInt(feeSun)
	if native.Cmp(feeBig) < 0 {
		shortfalls = append(shortfalls, shortfall(errno.CodeInsufficientNativeForFee, "TRX", feeBig, native, model.NativeDecimals,
			"TRX balance does not cover the estimated energy and bandwidth fee"))
	}
	if len(shortfalls) > 0 {
		return nil, c.reject(from, shortfalls, balances)
	}
	return c.sufficient(balances, feeSun), nil
}

func (c *Checker) sufficient(balances map[string]decimal.Decimal, feeSun int64) *Result {
	monitor.Business.BalanceCheckTotal.WithLabelValues("sufficient").Inc()
	ok := true
	return &Result{Checked: true, Sufficient: &ok, Balances: balances, FeeSun: feeSun}
}

func (c *Checker) unchecked(from string, feeSun int64, d Diagnostic) *Result {
	monitor.Business.BalanceCheckTotal.WithLabelValues("unchecked").Inc()
	c.log.Warn("余额查询失败，跳过余额检查",
		zap.String("from", from),
		zap.String("code", d.Code),
		zap.String("detail", d.Message),
	)
	return &Result{Checked: false, FeeSun: feeSun, Diagnostics: []Diagnostic{d}}
}

func (c *Checker) reject(from string, shortfalls []errno.Shortfall, balances map[string]decimal.Decimal) error {
	monitor.Business.BalanceCheckTotal.WithLabelValues("insufficient").Inc()
	err := errno.NewInsufficientBalance(shortfalls, balances)
	c.log.Info("余额不足", zap.String("from", from), zap.String("code", err.Code))
	return err
}

func shortfall(code, asset string, required, available *big.Int, decimals int32, msg string) errno.Shortfall {
	req := model.FromSmallest(required, decimals)
	avail := model.FromSmallest(available, decimals)
	return errno.Shortfall{
		Code:      code,
		Asset:     asset,
		Required:  req,
		Available: avail,
		Message:   fmt.Sprintf("%s: required %s %s, available %s %s", msg, req, asset, avail, asset),
	}
}

func diagnose(asset string, err error) Diagnostic {
	if errno.IsTimeout(err) {
		return Diagnostic{Code: DiagTimeout, Asset: asset, Message: err.Error()}
	}
	return Diagnostic{Code: DiagFailed, Asset: asset, Message: err.Error()}
}

type queryError struct {
	asset string
	err   error
}

func (e *queryError) Error() string { return e.asset + ": " + e.err.Error() }
func (e *queryError) Unwrap() error { return e.err }
