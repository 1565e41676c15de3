package risk

import "context"

// AccountTags 浏览器标签与投诉信号
type AccountTags struct {
	RedTag       string `json:"red_tag"`
	GreyTag      string `json:"grey_tag"`
	BlueTag      string `json:"blue_tag"` // 官方认证标签，仅展示
	PublicTag    string `json:"public_tag"`
	FeedbackRisk bool   `json:"feedback_risk"`
}

// BehaviorFlags 行为风险指标
type BehaviorFlags struct {
	Blacklist        bool `json:"blacklist"`
	FraudHistory     bool `json:"fraud_history"`
	FakeAssetCreator bool `json:"fake_asset_creator"`
	SpamBehavior     bool `json:"spam_behavior"`
}

// TagSource 标签来源（Tronscan accountv2）
type TagSource interface {
	GetAccountTags(ctx context.Context, addr string) (AccountTags, error)
}

// BehaviorSource 行为指标来源（Tronscan security）
type BehaviorSource interface {
	GetAccountBehaviorFlags(ctx context.Context, addr string) (BehaviorFlags, error)
}
