package risk

import (
	"fmt"
	"strings"
)

// State 信任状态
type State string

const (
	StateSafe              State = "safe"
	StateRisky             State = "risky"
	StateUnknown           State = "unknown"
	StatePartiallyVerified State = "partially_verified"
)

// 风险类型，红标存在时直接使用红标文本
const (
	TypeSafe              = "Safe"
	TypeUnknown           = "Unknown"
	TypePartiallyVerified = "Partially Verified"
	TypeGreyTag           = "Grey Tag"
	TypePublicTag         = "Public Tag"
	TypeUserFeedback      = "User Feedback"
	TypeBlacklisted       = "Blacklisted"
	TypeFraudTransaction  = "Fraud Transaction"
	TypeFakeTokenCreator  = "Fake Token Creator"
	TypeSpamAccount       = "Spam Account"
)

// 来源名称，出现在 SourceErrors 与降级提示中
const (
	SourceTags     = "tags"
	SourceBehavior = "behavior"
)

// DegradationReason 两个来源都失败时附加的标准提示
const DegradationReason = "安全检查服务不可用: unable to verify recipient risk, both risk sources failed"

// Verdict 风险判定结果
type Verdict struct {
	Address      string            `json:"address"`
	IsRisky      bool              `json:"is_risky"`
	State        State             `json:"state"`
	RiskType     string            `json:"risk_type"`
	Reasons      []string          `json:"reasons"`
	Tags         map[string]string `json:"tags,omitempty"`
	SourceErrors map[string]string `json:"source_errors,omitempty"`
}

// Degraded 是否有来源未完成检查
func (v *Verdict) Degraded() bool {
	return v.State == StateUnknown || v.State == StatePartiallyVerified
}

// Summary 一句话结论。只有 Safe 状态才会声称安全。
func (v *Verdict) Summary() string {
	switch v.State {
	case StateSafe:
		if blue := v.Tags["blue"]; blue != "" {
			return fmt.Sprintf("address %s: no known risk found, verified entity (%s)", v.Address, blue)
		}
		return fmt.Sprintf("address %s: no known risk found", v.Address)
	case StateRisky:
		return fmt.Sprintf("address %s: RISKY (%s): %s", v.Address, v.RiskType, strings.Join(v.Reasons, " | "))
	case StatePartiallyVerified:
		return fmt.Sprintf("address %s: partially verified, not confirmed safe: %s", v.Address, strings.Join(v.Reasons, " | "))
	default:
		return fmt.Sprintf("address %s: unable to verify risk, proceed with caution", v.Address)
	}
}
