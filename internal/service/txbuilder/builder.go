// Package txbuilder 校验转账参数并构建未签名交易。
package txbuilder

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"tron-wallet-core/internal/model"
	"tron-wallet-core/pkg/address"
	"tron-wallet-core/pkg/crypto_util"
	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/wallet/types"
)

var transferSelector = crypto_util.MethodSelector("transfer(address,uint256)")

// ErrInvalidBlock 引用区块格式不正确
var ErrInvalidBlock = errors.New("invalid reference block")

// Request 原始转账参数
type Request struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"` // 十进制金额，如 "10.5"
	Token  string `json:"token"`  // TRX 或配置的 TRC20 符号，空为 TRC20
}

// ValidatedRequest 校验后的参数，地址统一为 T 开头格式
type ValidatedRequest struct {
	From           string
	To             string
	Amount         decimal.Decimal
	AmountSmallest *big.Int
	Token          model.Token
}

type Builder struct {
	tokens     *model.TokenRegistry
	feeLimit   int64
	expiration time.Duration
	now        func() time.Time
}

// NewBuilder feeLimit 单位 SUN，expiration 为交易有效期
func NewBuilder(tokens *model.TokenRegistry, feeLimit int64, expiration time.Duration) *Builder {
	if expiration <= 0 {
		expiration = 10 * time.Minute
	}
	return &Builder{tokens: tokens, feeLimit: feeLimit, expiration: expiration, now: time.Now}
}

// WithClock 替换时钟，测试使用
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Validate 在任何网络调用之前校验地址、代币与金额
func (b *Builder) Validate(req Request) (*ValidatedRequest, error) {
	from, err := address.ToBase58(strings.TrimSpace(req.From))
	if err != nil {
		return nil, errno.NewValidation(errno.ErrInvalidAddress, "from", req.From, "")
	}
	to, err := address.ToBase58(strings.TrimSpace(req.To))
	if err != nil {
		return nil, errno.NewValidation(errno.ErrInvalidAddress, "to", req.To, "")
	}

	token, ok := b.tokens.Resolve(req.Token)
	if !ok {
		return nil, errno.NewValidation(errno.ErrInvalidToken, "token", req.Token, "supported: TRX, "+b.tokens.TRC20().Symbol)
	}
	if token.IsNative() && from == to {
		return nil, errno.NewValidation(errno.ErrInvalidAddress, "to", req.To, "cannot transfer TRX to the sender itself")
	}

	amount, err := model.ParseAmount(req.Amount)
	if errors.Is(err, model.ErrAmountOutOfRange) {
		return nil, errno.NewValidation(errno.ErrInvalidAmount, "amount", truncateValue(req.Amount), "out of range")
	}
	if err != nil {
		return nil, errno.NewValidation(errno.ErrInvalidAmount, "amount", req.Amount, "not a decimal number")
	}
	if !amount.IsPositive() {
		return nil, errno.NewValidation(errno.ErrInvalidAmount, "amount", req.Amount, "must be positive")
	}

	// TRX 四舍五入到 SUN；TRC20 不允许超出代币精度
	smallest := model.ToSmallest(amount, token.Decimals)
	if token.IsNative() {
		if smallest.Sign() <= 0 {
			return nil, errno.NewValidation(errno.ErrInvalidAmount, "amount", req.Amount, "rounds to 0 SUN")
		}
		amount = model.FromSmallest(smallest, token.Decimals)
	} else if !amount.Equal(amount.Truncate(token.Decimals)) {
		return nil, errno.NewValidation(errno.ErrInvalidAmount, "amount", req.Amount,
			fmt.Sprintf("%s supports at most %d decimal places", token.Symbol, token.Decimals))
	}

	if token.IsNative() && !smallest.IsInt64() {
		return nil, errno.NewValidation(errno.ErrInvalidAmount, "amount", req.Amount, "exceeds int64 SUN")
	}
	if smallest.BitLen() > 256 {
		return nil, errno.NewValidation(errno.ErrInvalidAmount, "amount", req.Amount, "exceeds uint256")
	}

	return &ValidatedRequest{
		From:           from,
		To:             to,
		Amount:         amount,
		AmountSmallest: smallest,
		Token:          token,
	}, nil
}

// Build 用最新区块构建未签名交易，不访问网络
func (b *Builder) Build(v *ValidatedRequest, block model.Block) (*types.UnsignedTransaction, error) {
	refBytes, refHash, err := RefBlock(block)
	if err != nil {
		return nil, err
	}

	now := b.now()
	raw := types.RawData{
		RefBlockBytes: refBytes,
		RefBlockHash:  refHash,
		Timestamp:     now.UnixMilli(),
		Expiration:    now.Add(b.expiration).UnixMilli(),
	}

	if v.Token.IsNative() {
		raw.Operation = types.NativeTransfer{
			OwnerAddress: v.From,
			ToAddress:    v.To,
			Amount:       v.AmountSmallest.Int64(),
		}
	} else {
		data, err := EncodeTransferCall(v.To, v.AmountSmallest)
		if err != nil {
			return nil, err
		}
		raw.Operation = types.ContractCall{
			OwnerAddress:    v.From,
			ContractAddress: v.Token.Contract,
			Data:            data,
		}
		raw.FeeLimit = b.feeLimit
	}
	if err := raw.Operation.Validate(); err != nil {
		return nil, err
	}

	localID, err := LocalID(raw)
	if err != nil {
		return nil, err
	}
	return &types.UnsignedTransaction{LocalID: localID, RawData: raw, Visible: true}, nil
}

// RefBlock 区块号低 16 位（4 位 hex）与区块哈希第 8..15 字节
func RefBlock(block model.Block) (string, string, error) {
	if block.Number < 0 {
		return "", "", fmt.Errorf("%w: negative number %d", ErrInvalidBlock, block.Number)
	}
	h := strings.TrimPrefix(strings.ToLower(block.Hash), "0x")
	if len(h) != 64 {
		return "", "", fmt.Errorf("%w: hash %q", ErrInvalidBlock, block.Hash)
	}
	if _, err := hex.DecodeString(h); err != nil {
		return "", "", fmt.Errorf("%w: hash %q", ErrInvalidBlock, block.Hash)
	}
	return fmt.Sprintf("%04x", block.Number&0xffff), h[16:32], nil
}

// EncodeTransferCall transfer(address,uint256) 调用数据：
// 选择器 ++ 32 字节左补零的接收方（去掉 41）++ 32 字节大端金额
func EncodeTransferCall(to string, amount *big.Int) (string, error) {
	p, err := address.Decode(to)
	if err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() < 0 || amount.BitLen() > 256 {
		return "", errno.NewValidation(errno.ErrInvalidAmount, "amount", fmt.Sprint(amount), "out of uint256 range")
	}

	data := make([]byte, 0, 4+32+32)
	data = append(data, transferSelector...)
	data = append(data, common.LeftPadBytes(p.Bytes20(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return hex.EncodeToString(data), nil
}

// LocalID raw_data JSON 的 BLAKE3 哈希，只用于本地记账，不是链上交易 ID
func LocalID(raw types.RawData) (string, error) {
	b, err := json.Marshal(raw)
	if err != nil {
		return "", err
	}
	return crypto_util.CalculateBlake3(b), nil
}

// truncateValue 错误信息中只保留输入的前 32 个字符
func truncateValue(s string) string {
	if len(s) > 32 {
		return s[:32] + "..."
	}
	return s
}
