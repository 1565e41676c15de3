package handler

import (
	"context"
	"math/big"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"tron-wallet-core/internal/handler/request"
	"tron-wallet-core/internal/handler/response"
	"tron-wallet-core/internal/model"
	"tron-wallet-core/internal/service/balance"
	"tron-wallet-core/internal/service/fee"
	"tron-wallet-core/internal/service/risk"
	"tron-wallet-core/pkg/address"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/validator"
)

type AccountHandler struct {
	Balances  balance.Querier
	Tokens    *model.TokenRegistry
	Fee       *fee.Model
	Evaluator *risk.Evaluator
}

// BalanceResponse 账户余额与当前费用估算
type BalanceResponse struct {
	Address  string                     `json:"address"`
	Balances map[string]decimal.Decimal `json:"balances"`
	Fees     map[string]fee.Estimate    `json:"fees"`
}

// Balance GET /api/v1/accounts/:address/balance
func (h *AccountHandler) Balance(c *gin.Context) {
	addr, ok := bindAddress(c)
	if !ok {
		return
	}

	token := h.Tokens.TRC20()
	var native, tokenBal *big.Int
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		native, err = h.Balances.GetNativeBalance(ctx, addr)
		return err
	})
	g.Go(func() (err error) {
		tokenBal, err = h.Balances.GetTokenBalance(ctx, addr, token.Contract)
		return err
	})
	if err := g.Wait(); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, BalanceResponse{
		Address: addr,
		Balances: map[string]decimal.Decimal{
			"TRX":        model.FromSmallest(native, model.NativeDecimals),
			token.Symbol: model.FromSmallest(tokenBal, token.Decimals),
		},
		Fees: map[string]fee.Estimate{
			"TRX":        h.Fee.Estimate(model.TokenNative),
			token.Symbol: h.Fee.Estimate(model.TokenTRC20),
		},
	})
}

// RiskResponse 风险判定与一句话结论
type RiskResponse struct {
	*risk.Verdict
	Summary string `json:"summary"`
}

// Risk GET /api/v1/accounts/:address/risk
func (h *AccountHandler) Risk(c *gin.Context) {
	addr, ok := bindAddress(c)
	if !ok {
		return
	}
	v := h.Evaluator.Evaluate(c.Request.Context(), addr)
	response.Success(c, RiskResponse{Verdict: v, Summary: v.Summary()})
}

func bindAddress(c *gin.Context) (string, bool) {
	var uri request.AddressUri
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, errno.ErrInvalidAddress.WithMessage(validator.GetErrorMsg(err)))
		return "", false
	}
	addr, err := address.ToBase58(uri.Address)
	if err != nil {
		response.Error(c, err)
		return "", false
	}
	return addr, true
}

// NetworkSource 链状态查询，由 tronrpc.Client 实现
type NetworkSource interface {
	BlockNumber(ctx context.Context) (int64, error)
	GasPrice(ctx context.Context) (int64, error)
}

type NetworkHandler struct {
	Network string
	Chain   NetworkSource
}

// Status GET /api/v1/network
func (h *NetworkHandler) Status(c *gin.Context) {
	ctx := c.Request.Context()
	height, err := h.Chain.BlockNumber(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	price, err := h.Chain.GasPrice(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{
		"network":          h.Network,
		"block_number":     height,
		"energy_price_sun": price,
	})
}
