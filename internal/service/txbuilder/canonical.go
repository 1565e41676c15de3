package txbuilder

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"tron-wallet-core/pkg/address"
	"tron-wallet-core/pkg/crypto_util"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/wallet/types"
)

// MaxExpiration 节点接受的最长有效期
const MaxExpiration = 24 * time.Hour

// CanonicalSource 权威节点，返回规范序列化后的交易（txID + raw_data_hex）
type CanonicalSource interface {
	CreateTransaction(ctx context.Context, op types.NativeTransfer) (*types.UnsignedTransaction, error)
	TriggerSmartContract(ctx context.Context, op types.ContractCall, feeLimit int64) (*types.UnsignedTransaction, error)
}

// Canonicalize 让节点生成同一操作的规范交易，核对操作内容一致后采用节点的
// raw_data、raw_data_hex 与 txID，保留本地 LocalID。签名只针对这个 txID。
// 参考区块与有效期以节点为准，有效期须晚于本地构建时间且不超过 MaxExpiration。
func Canonicalize(ctx context.Context, src CanonicalSource, local *types.UnsignedTransaction) (*types.UnsignedTransaction, error) {
	if local == nil || local.RawData.Operation == nil {
		return nil, errno.NewValidation(errno.ErrInvalidTransaction, "raw_data.contract", "", "transaction has no operation")
	}

	var (
		remote *types.UnsignedTransaction
		err    error
	)
	switch op := local.RawData.Operation.(type) {
	case types.NativeTransfer:
		remote, err = src.CreateTransaction(ctx, op)
	case types.ContractCall:
		remote, err = src.TriggerSmartContract(ctx, op, local.RawData.FeeLimit)
	default:
		return nil, fmt.Errorf("unsupported operation %T", op)
	}
	if err != nil {
		return nil, err
	}

	if err := verifyCanonical(local, remote); err != nil {
		logger.Error("节点返回的交易与本地构建不一致",
			zap.String("local_id", local.LocalID),
			zap.Error(err),
		)
		return nil, err
	}

	if remote.RawData.RefBlockHash != local.RawData.RefBlockHash {
		logger.Debug("节点选用了不同的参考区块",
			zap.String("local_id", local.LocalID),
			zap.String("local_ref", local.RawData.RefBlockBytes),
			zap.String("node_ref", remote.RawData.RefBlockBytes),
		)
	}

	out := *remote
	out.LocalID = local.LocalID
	return &out, nil
}

func verifyCanonical(local, remote *types.UnsignedTransaction) error {
	mismatch := func(reason string) error {
		return errno.NewValidation(errno.ErrInvalidTransaction, "raw_data", remote.TxID, reason)
	}

	if remote.RawDataHex == "" || remote.TxID == "" {
		return mismatch("node returned no raw_data_hex or txID")
	}
	raw, err := hex.DecodeString(remote.RawDataHex)
	if err != nil {
		return mismatch("malformed raw_data_hex")
	}
	if !strings.EqualFold(crypto_util.CalculateSHA256(raw), remote.TxID) {
		return mismatch("txID is not sha256(raw_data_hex)")
	}
	if remote.RawData.Operation == nil {
		return mismatch("node returned no operation")
	}

	same, err := sameOperation(local.RawData.Operation, remote.RawData.Operation)
	if err != nil {
		return mismatch(err.Error())
	}
	if !same {
		return mismatch("operation differs from the locally built one")
	}
	if remote.RawData.FeeLimit != local.RawData.FeeLimit {
		return mismatch("fee_limit differs")
	}

	exp := remote.RawData.Expiration
	if exp <= local.RawData.Timestamp {
		return mismatch("expiration is not after the build time")
	}
	if exp > local.RawData.Timestamp+MaxExpiration.Milliseconds() {
		return mismatch("expiration exceeds " + MaxExpiration.String())
	}
	if remote.RawData.RefBlockBytes == "" || remote.RawData.RefBlockHash == "" {
		return mismatch("node returned no ref block")
	}
	return nil
}

// sameOperation 地址统一为 T 开头格式后比较
func sameOperation(a, b types.Operation) (bool, error) {
	switch x := a.(type) {
	case types.NativeTransfer:
		y, ok := b.(types.NativeTransfer)
		if !ok {
			return false, nil
		}
		return sameAddr(x.OwnerAddress, y.OwnerAddress) && sameAddr(x.ToAddress, y.ToAddress) && x.Amount == y.Amount, nil
	case types.ContractCall:
		y, ok := b.(types.ContractCall)
		if !ok {
			return false, nil
		}
		return sameAddr(x.OwnerAddress, y.OwnerAddress) &&
			sameAddr(x.ContractAddress, y.ContractAddress) &&
			strings.EqualFold(strings.TrimPrefix(x.Data, "0x"), strings.TrimPrefix(y.Data, "0x")) &&
			x.CallValue == y.CallValue, nil
	}
	return false, fmt.Errorf("unsupported operation %T", a)
}

func sameAddr(a, b string) bool {
	pa, err := address.Decode(a)
	if err != nil {
		return false
	}
	pb, err := address.Decode(b)
	if err != nil {
		return false
	}
	return pa == pb
}
