package model

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenKind 转账资产类型
type TokenKind string

const (
	TokenNative TokenKind = "TRX"
	TokenTRC20  TokenKind = "TRC20"
)

// NativeDecimals TRX 精度，1 TRX = 1,000,000 SUN
const NativeDecimals int32 = 6

// Token 可转账资产。Native 为 TRX，其余为配置中的 TRC20 合约。
type Token struct {
	Kind     TokenKind `json:"kind"`
	Symbol   string    `json:"symbol"`
	Contract string    `json:"contract,omitempty"`
	Decimals int32     `json:"decimals"`
}

// Native 返回 TRX 描述
func Native() Token {
	return Token{Kind: TokenNative, Symbol: "TRX", Decimals: NativeDecimals}
}

// IsNative 是否 TRX
func (t Token) IsNative() bool { return t.Kind == TokenNative }

// TokenRegistry 按符号解析用户输入的代币名
type TokenRegistry struct {
	trc20 Token
}

func NewTokenRegistry(symbol, contract string, decimals int32) *TokenRegistry {
	return &TokenRegistry{trc20: Token{
		Kind:     TokenTRC20,
		Symbol:   strings.ToUpper(symbol),
		Contract: contract,
		Decimals: decimals,
	}}
}

// Resolve 只接受 TRX 与配置的 TRC20 符号（大小写不敏感），空串按 TRC20 处理
func (r *TokenRegistry) Resolve(symbol string) (Token, bool) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	switch s {
	case "TRX":
		return Native(), true
	case "", r.trc20.Symbol:
		return r.trc20, true
	}
	return Token{}, false
}

// TRC20 返回配置的代币
func (r *TokenRegistry) TRC20() Token { return r.trc20 }

// ToSmallest 将十进制金额转换为最小单位，四舍五入到整数
func ToSmallest(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Round(0).BigInt()
}

// FromSmallest 最小单位转十进制金额
func FromSmallest(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// SunToTRX 便于日志与提示展示
func SunToTRX(sun int64) decimal.Decimal {
	return decimal.New(sun, -NativeDecimals)
}

// 金额字符串长度与指数上限。uint256 最多 78 位十进制数字，
// 超出范围的指数在换算最小单位时会构造巨大的 big.Int。
const (
	MaxAmountLen      = 100
	MaxAmountExponent = 80
)

var ErrAmountOutOfRange = errors.New("amount out of range")

// ParseAmount 解析十进制金额字符串，拒绝超长输入与超范围指数
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if len(s) > MaxAmountLen {
		return decimal.Zero, fmt.Errorf("parse amount: %w: longer than %d chars", ErrAmountOutOfRange, MaxAmountLen)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if exp := d.Exponent(); exp > MaxAmountExponent || exp < -MaxAmountExponent {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w: exponent %d", s, ErrAmountOutOfRange, exp)
	}
	return d, nil
}
