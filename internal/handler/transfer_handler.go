package handler

import (
	"github.com/gin-gonic/gin"

	"tron-wallet-core/internal/handler/request"
	"tron-wallet-core/internal/handler/response"
	"tron-wallet-core/internal/service/broadcaster"
	"tron-wallet-core/internal/service/transfer"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/validator"
	"tron-wallet-core/pkg/wallet/types"
)

type TransferHandler struct {
	Transfers   *transfer.Service
	Broadcaster *broadcaster.Broadcaster
}

// Build POST /api/v1/transfers/build
// 风控拦截属于正常结果，返回 code=0 且 data.blocked 非空
func (h *TransferHandler) Build(c *gin.Context) {
	// 1. 绑定参数
	var req request.BuildTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(validator.GetErrorMsg(err)))
		return
	}

	// 2. 调用 Service，只构建不签名
	out, err := h.Transfers.BuildAndMaybeSign(c.Request.Context(), transfer.Request{
		From:           req.From,
		To:             req.To,
		Amount:         req.Amount,
		Token:          req.Token,
		ForceExecution: req.ForceExecution,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, out)
}

// Broadcast POST /api/v1/transfers/broadcast
func (h *TransferHandler) Broadcast(c *gin.Context) {
	var tx types.SignedTransaction
	if err := c.ShouldBindJSON(&tx); err != nil {
		response.Error(c, errno.ErrBind.WithMessage(err.Error()))
		return
	}
	res, err := h.Broadcaster.Broadcast(c.Request.Context(), &tx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Transaction GET /api/v1/transactions/:txid
func (h *TransferHandler) Transaction(c *gin.Context) {
	var uri request.TxIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, errno.ErrInvalidTxID.WithMessage(validator.GetErrorMsg(err)))
		return
	}
	st, err := h.Broadcaster.Status(c.Request.Context(), uri.TxID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !st.Found {
		response.Error(c, errno.ErrTxNotFound)
		return
	}
	response.Success(c, st)
}
