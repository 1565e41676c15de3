// Package risk 汇总两个不可靠的风险来源，得出信任状态，并在转账前做熔断判断。
package risk

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tron-wallet-core/pkg/errno"
	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/monitor"
)

// DefaultKeywords publicTag 命中即视为风险
var DefaultKeywords = []string{
	"scam", "phish", "hack", "fraud", "suspicious", "stolen", "exploit", "ponzi", "laundering",
}

type Evaluator struct {
	tags     TagSource
	behavior BehaviorSource
	keywords []string
	timeout  time.Duration
	log      *zap.Logger
}

// NewEvaluator timeout 为每个来源单独的超时
func NewEvaluator(tags TagSource, behavior BehaviorSource, keywords []string, timeout time.Duration) *Evaluator {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lower := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lower = append(lower, k)
		}
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Evaluator{
		tags:     tags,
		behavior: behavior,
		keywords: lower,
		timeout:  timeout,
		log:      logger.Named("risk"),
	}
}

type trigger struct {
	riskType string
	reason   string
}

// Evaluate 并行查询两个来源。任何来源失败都不会被当作“安全”。
func (e *Evaluator) Evaluate(ctx context.Context, addr string) *Verdict {
	var (
		tags              AccountTags
		flags             BehaviorFlags
		tagsErr, flagsErr error
	)

	// 不使用 WithContext：一个来源失败不能取消另一个
	var g errgroup.Group
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		tags, tagsErr = e.tags.GetAccountTags(cctx, addr)
		tagsErr = errno.Transport("risk.tags", e.timeout, tagsErr)
		return nil
	})
	g.Go(func() error {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		flags, flagsErr = e.behavior.GetAccountBehaviorFlags(cctx, addr)
		flagsErr = errno.Transport("risk.behavior", e.timeout, flagsErr)
		return nil
	})
	_ = g.Wait()

	v := e.decide(addr, tags, tagsErr, flags, flagsErr)

	monitor.Business.RiskVerdictTotal.WithLabelValues(string(v.State)).Inc()
	e.log.Info("风险评估完成",
		zap.String("address", addr),
		zap.String("state", string(v.State)),
		zap.String("risk_type", v.RiskType),
		zap.Int("reasons", len(v.Reasons)),
	)
	return v
}

// decide 纯函数，状态规则集中在这里
func (e *Evaluator) decide(addr string, tags AccountTags, tagsErr error, flags BehaviorFlags, flagsErr error) *Verdict {
	v := &Verdict{Address: addr, Tags: map[string]string{}, SourceErrors: map[string]string{}}

	var triggers []trigger
	if tagsErr == nil {
		recordTags(v, tags)
		triggers = append(triggers, e.tagTriggers(tags)...)
	} else {
		v.SourceErrors[SourceTags] = describe(tagsErr)
	}
	if flagsErr == nil {
		triggers = append(triggers, behaviorTriggers(flags)...)
	} else {
		v.SourceErrors[SourceBehavior] = describe(flagsErr)
	}

	for _, t := range triggers {
		v.Reasons = append(v.Reasons, t.reason)
	}

	failed := len(v.SourceErrors)
	switch {
	case len(triggers) > 0:
		v.IsRisky = true
		v.State = StateRisky
		v.RiskType = triggers[0].riskType
		if failed > 0 {
			v.Reasons = append(v.Reasons, partialReason(v.SourceErrors))
		}
	case failed == 2:
		v.State = StateUnknown
		v.RiskType = TypeUnknown
		v.Reasons = append(v.Reasons, DegradationReason)
	case failed == 1:
		v.State = StatePartiallyVerified
		v.RiskType = TypePartiallyVerified
		v.Reasons = append(v.Reasons, partialReason(v.SourceErrors))
	default:
		v.State = StateSafe
		v.RiskType = TypeSafe
	}

	if len(v.SourceErrors) == 0 {
		v.SourceErrors = nil
	}
	return v
}

// tagTriggers 顺序固定：红标、灰标、公共标签、投诉
func (e *Evaluator) tagTriggers(t AccountTags) []trigger {
	var out []trigger
	if red := strings.TrimSpace(t.RedTag); red != "" {
		out = append(out, trigger{riskType: red, reason: "red tag: " + red})
	}
	if grey := strings.TrimSpace(t.GreyTag); grey != "" {
		out = append(out, trigger{riskType: TypeGreyTag, reason: "grey tag (suspicious): " + grey})
	}
	if pub := strings.TrimSpace(t.PublicTag); pub != "" {
		if kw := e.matchKeyword(pub); kw != "" {
			out = append(out, trigger{riskType: TypePublicTag, reason: fmt.Sprintf("public tag %q contains risk keyword %q", pub, kw)})
		}
	}
	if t.FeedbackRisk {
		out = append(out, trigger{riskType: TypeUserFeedback, reason: "reported by user feedback"})
	}
	return out
}

// behaviorTriggers 顺序固定：黑名单、欺诈交易、假币创建者、垃圾广告
func behaviorTriggers(f BehaviorFlags) []trigger {
	var out []trigger
	if f.Blacklist {
		out = append(out, trigger{riskType: TypeBlacklisted, reason: "address is blacklisted"})
	}
	if f.FraudHistory {
		out = append(out, trigger{riskType: TypeFraudTransaction, reason: "has fraud transaction history"})
	}
	if f.FakeAssetCreator {
		out = append(out, trigger{riskType: TypeFakeTokenCreator, reason: "created counterfeit tokens"})
	}
	if f.SpamBehavior {
		out = append(out, trigger{riskType: TypeSpamAccount, reason: "sends spam via transfer memos"})
	}
	return out
}

func (e *Evaluator) matchKeyword(tag string) string {
	lower := strings.ToLower(tag)
	for _, kw := range e.keywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

func recordTags(v *Verdict, t AccountTags) {
	for k, val := range map[string]string{"red": t.RedTag, "grey": t.GreyTag, "blue": t.BlueTag, "public": t.PublicTag} {
		if val != "" {
			v.Tags[k] = val
		}
	}
}

func partialReason(sourceErrors map[string]string) string {
	var names []string
	for _, s := range []string{SourceTags, SourceBehavior} {
		if _, ok := sourceErrors[s]; ok {
			names = append(names, s)
		}
	}
	return "risk check incomplete: " + strings.Join(names, ", ") + " source unavailable"
}

func describe(err error) string {
	if errno.IsTimeout(err) {
		return "timeout: " + err.Error()
	}
	return err.Error()
}
