// Package broadcaster 将已签名交易提交到中继节点，并查询交易回执。
package broadcaster

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"go.uber.org/zap"

	"tron-wallet-core/internal/client/trongrid"
	"tron-wallet-core/internal/model"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/monitor"
	"tron-wallet-core/pkg/wallet/types"
)

// Relay 广播接入点，由 trongrid.Client 实现
type Relay interface {
	BroadcastTransaction(ctx context.Context, tx *types.SignedTransaction) (*trongrid.BroadcastResponse, error)
}

// StatusSource 交易回执查询，由 tronrpc.Client 实现
type StatusSource interface {
	TransactionStatus(ctx context.Context, txID string) (model.TxStatus, error)
}

// Result 广播成功结果
type Result struct {
	Result bool   `json:"result"`
	TxID   string `json:"txid"`
}

type Broadcaster struct {
	relay  Relay
	status StatusSource
	log    *zap.Logger
}

// NewBroadcaster status 可以为 nil，此时 Status 不可用
func NewBroadcaster(relay Relay, status StatusSource) *Broadcaster {
	return &Broadcaster{relay: relay, status: status, log: logger.Named("broadcaster")}
}

// Broadcast 提交一次，不重试。节点拒绝返回 *errno.BroadcastError，
// 传输失败返回 TimeoutError / NetworkError。
func (b *Broadcaster) Broadcast(ctx context.Context, tx *types.SignedTransaction) (*Result, error) {
	if err := validateSigned(tx); err != nil {
		monitor.Business.BroadcastTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	resp, err := b.relay.BroadcastTransaction(ctx, tx)
	if err != nil {
		label := "network_error"
		if errno.IsTimeout(err) {
			label = "timeout"
		}
		monitor.Business.BroadcastTotal.WithLabelValues(label).Inc()
		b.log.Warn("广播失败", zap.String("txid", tx.TxID), zap.Error(err))
		return nil, err
	}

	if !resp.Result {
		monitor.Business.BroadcastTotal.WithLabelValues("rejected").Inc()
		code := resp.Code
		if code == "" {
			code = "UNKNOWN_ERROR"
		}
		berr := &errno.BroadcastError{
			Code:       code,
			Message:    trongrid.DecodeMessage(resp.Message),
			RawMessage: resp.Message,
			TxID:       tx.TxID,
		}
		b.log.Warn("节点拒绝交易",
			zap.String("txid", tx.TxID),
			zap.String("code", berr.Code),
			zap.String("message", berr.Message),
		)
		return nil, berr
	}

	txID := resp.TxID
	if txID == "" {
		txID = tx.TxID
	}
	monitor.Business.BroadcastTotal.WithLabelValues("accepted").Inc()
	b.log.Info("交易广播成功", zap.String("txid", txID))
	return &Result{Result: true, TxID: txID}, nil
}

// Status 查询交易回执
func (b *Broadcaster) Status(ctx context.Context, txID string) (model.TxStatus, error) {
	if b.status == nil {
		return model.TxStatus{}, errors.New("transaction status source not configured")
	}
	return b.status.TransactionStatus(ctx, txID)
}

func validateSigned(tx *types.SignedTransaction) error {
	if tx == nil {
		return errno.NewValidation(errno.ErrInvalidTransaction, "transaction", "", "empty")
	}
	if len(tx.Signature) == 0 || tx.Signature[0] == "" {
		return errno.NewValidation(errno.ErrInvalidTransaction, "signature", "", "transaction is not signed")
	}
	for _, sig := range tx.Signature {
		if raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x")); err != nil || len(raw) != 65 {
			return errno.NewValidation(errno.ErrInvalidTransaction, "signature", sig, "expect 130 hex chars")
		}
	}
	if raw, err := hex.DecodeString(tx.TxID); err != nil || len(raw) != 32 {
		return errno.NewValidation(errno.ErrInvalidTxID, "txID", tx.TxID, "expect 64 hex chars")
	}
	if tx.RawData.Operation == nil {
		return errno.NewValidation(errno.ErrInvalidTransaction, "raw_data.contract", "", "transaction has no operation")
	}
	return tx.RawData.Operation.Validate()
}
