// Package fee 估算转账费用。纯函数，无 I/O。
package fee

import (
	"github.com/shopspring/decimal"

	"tron-wallet-core/internal/model"
	"tron-wallet-core/pkg/config"
)

// Params 费用常量，全部来自配置
type Params struct {
	MinNativeTransferFeeSun int64 // TRX 转账最低费用
	TokenEnergyUnits        int64 // TRC20 transfer 预估能量
	EnergyPriceSun          int64 // 每单位能量价格
	TokenBandwidthBytes     int64 // TRC20 交易带宽字节数
	BandwidthPriceSun       int64 // 每字节带宽价格
	FreeDailyBandwidth      int64 // 每日免费带宽额度
}

// DefaultParams 与主网常见取值一致
func DefaultParams() Params {
	return Params{
		MinNativeTransferFeeSun: 100_000,
		TokenEnergyUnits:        65_000,
		EnergyPriceSun:          420,
		TokenBandwidthBytes:     350,
		BandwidthPriceSun:       1000,
		FreeDailyBandwidth:      600,
	}
}

// ParamsFromConfig 由配置构造
func ParamsFromConfig(c config.FeeConfig) Params {
	return Params{
		MinNativeTransferFeeSun: c.MinNativeTransferFee,
		TokenEnergyUnits:        c.TokenEnergy,
		EnergyPriceSun:          c.EnergyPrice,
		TokenBandwidthBytes:     c.TokenBandwidth,
		BandwidthPriceSun:       c.BandwidthPrice,
		FreeDailyBandwidth:      c.FreeDailyBandwidth,
	}
}

// Estimate 费用估算结果及明细
type Estimate struct {
	Kind              model.TokenKind `json:"kind"`
	TotalSun          int64           `json:"total_sun"`
	TotalTRX          decimal.Decimal `json:"total_trx"`
	EnergyFeeSun      int64           `json:"energy_fee_sun"`
	BandwidthFeeSun   int64           `json:"bandwidth_fee_sun"`
	BandwidthDiscount int64           `json:"bandwidth_discount_bytes"` // 免费额度抵扣的字节数
}

// Model 费用模型
type Model struct {
	p Params
}

func NewModel(p Params) *Model {
	return &Model{p: p}
}

// Params 返回当前常量
func (m *Model) Params() Params { return m.p }

// NativeTransferFee TRX 转账固定费用
func (m *Model) NativeTransferFee() int64 {
	return nonNegative(m.p.MinNativeTransferFeeSun)
}

// TokenTransferFee = energy×price + max(0, bw − min(bw, free))×bwPrice。
// 负的免费额度按 0 处理，结果不会为负。
func (m *Model) TokenTransferFee(freeAllowance int64) int64 {
	return m.tokenEstimate(freeAllowance).TotalSun
}

// Estimate 使用配置中的免费额度估算
func (m *Model) Estimate(kind model.TokenKind) Estimate {
	if kind == model.TokenNative {
		fee := m.NativeTransferFee()
		return Estimate{Kind: kind, TotalSun: fee, TotalTRX: model.SunToTRX(fee)}
	}
	return m.tokenEstimate(m.p.FreeDailyBandwidth)
}

func (m *Model) tokenEstimate(freeAllowance int64) Estimate {
	energy := nonNegative(m.p.TokenEnergyUnits) * nonNegative(m.p.EnergyPriceSun)

	bw := nonNegative(m.p.TokenBandwidthBytes)
	discount := min(bw, nonNegative(freeAllowance))
	bandwidth := (bw - discount) * nonNegative(m.p.BandwidthPriceSun)

	total := energy + bandwidth
	return Estimate{
		Kind:              model.TokenTRC20,
		TotalSun:          total,
		TotalTRX:          model.SunToTRX(total),
		EnergyFeeSun:      energy,
		BandwidthFeeSun:   bandwidth,
		BandwidthDiscount: discount,
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
