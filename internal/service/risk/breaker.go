package risk

import (
	"context"
	"time"

	"go.uber.org/zap"

	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/monitor"
)

// 熔断与降级提示码
const (
	CodeRiskBlocked           = "risk_blocked"
	CodeRiskUnknown           = "risk_unverified"
	CodeRiskPartiallyVerified = "risk_partially_verified"
	OverrideHint              = "transfer blocked because the recipient is flagged as risky; resubmit with force_execution=true to override after reviewing the reasons"
)

// BlockedResult 风控拦截。Error=false：这是有意的拦截而不是失败。
type BlockedResult struct {
	Blocked  bool     `json:"blocked"`
	Error    bool     `json:"error"`
	Code     string   `json:"code"`
	Address  string   `json:"address"`
	RiskType string   `json:"risk_type"`
	Reasons  []string `json:"reasons"`
	Hint     string   `json:"hint"`
	Summary  string   `json:"summary"`
}

// DegradationWarning 风险检查不完整时附加到结果上
type DegradationWarning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Decision Gate 的输出
type Decision struct {
	Proceed    bool
	Overridden bool
	Blocked    *BlockedResult
	Warning    *DegradationWarning
}

// OverrideEvent 强制放行审计记录
type OverrideEvent struct {
	Recipient string    `json:"recipient"`
	From      string    `json:"from,omitempty"`
	Amount    string    `json:"amount,omitempty"`
	Token     string    `json:"token,omitempty"`
	State     State     `json:"state"`
	RiskType  string    `json:"risk_type"`
	Reasons   []string  `json:"reasons"`
	At        time.Time `json:"at"`
}

// AuditRecorder 记录强制放行
type AuditRecorder interface {
	RecordOverride(ctx context.Context, ev OverrideEvent) error
}

// GateOption 为审计记录补充转账信息
type GateOption func(*OverrideEvent)

func WithTransfer(from, amount, token string) GateOption {
	return func(ev *OverrideEvent) {
		ev.From = from
		ev.Amount = amount
		ev.Token = token
	}
}

// Breaker 风险熔断器，风险存在时默认拦截
type Breaker struct {
	audit AuditRecorder
	now   func() time.Time
	log   *zap.Logger
}

func NewBreaker(audit AuditRecorder) *Breaker {
	return &Breaker{audit: audit, now: time.Now, log: logger.Named("breaker")}
}

// Gate 将判定结果与 force 标志转换为放行/拦截
func (b *Breaker) Gate(ctx context.Context, v *Verdict, force bool, opts ...GateOption) Decision {
	if v == nil {
		// 没有判定结果等同于无法验证
		v = &Verdict{State: StateUnknown, RiskType: TypeUnknown, Reasons: []string{DegradationReason}}
	}

	if v.IsRisky && !force {
		monitor.Business.TransferBlockedTotal.Inc()
		b.log.Warn("转账被风控拦截",
			zap.String("recipient", v.Address),
			zap.String("risk_type", v.RiskType),
			zap.Strings("reasons", v.Reasons),
		)
		return Decision{Blocked: &BlockedResult{
			Blocked:  true,
			Error:    false,
			Code:     CodeRiskBlocked,
			Address:  v.Address,
			RiskType: v.RiskType,
			Reasons:  append([]string(nil), v.Reasons...),
			Hint:     OverrideHint,
			Summary:  v.Summary(),
		}}
	}

	if v.IsRisky {
		b.recordOverride(ctx, v, opts)
		return Decision{Proceed: true, Overridden: true}
	}

	d := Decision{Proceed: true}
	switch v.State {
	case StateUnknown:
		d.Warning = &DegradationWarning{Code: CodeRiskUnknown, Message: DegradationReason}
	case StatePartiallyVerified:
		d.Warning = &DegradationWarning{Code: CodeRiskPartiallyVerified, Message: v.Summary()}
	}
	if d.Warning != nil {
		monitor.Business.RiskDegradedTotal.WithLabelValues(string(v.State)).Inc()
	}
	return d
}

// recordOverride 在放行前同步写审计；审计失败只记录日志
func (b *Breaker) recordOverride(ctx context.Context, v *Verdict, opts []GateOption) {
	monitor.Business.RiskOverrideTotal.Inc()

	ev := OverrideEvent{
		Recipient: v.Address,
		State:     v.State,
		RiskType:  v.RiskType,
		Reasons:   append([]string(nil), v.Reasons...),
		At:        b.now().UTC(),
	}
	for _, opt := range opts {
		opt(&ev)
	}

	if b.audit == nil {
		b.log.Warn("强制放行未配置审计", zap.String("recipient", ev.Recipient))
		return
	}
	if err := b.audit.RecordOverride(ctx, ev); err != nil {
		b.log.Error("强制放行审计写入失败",
			zap.String("recipient", ev.Recipient),
			zap.Error(err),
		)
	}
}
