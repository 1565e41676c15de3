// Package audit 记录风控强制放行事件。
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tron-wallet-core/internal/service/mq"
	"tron-wallet-core/internal/service/risk"
	"tron-wallet-core/pkg/config"
	"tron-wallet-core/pkg/logger"
)

// 审计落地方式
const (
	SinkLog   = "log"
	SinkRedis = "redis"
	SinkKafka = "kafka"
)

// LogRecorder 仅写结构化日志
type LogRecorder struct {
	log *zap.Logger
}

func NewLogRecorder() *LogRecorder {
	return &LogRecorder{log: logger.Named("audit")}
}

func (r *LogRecorder) RecordOverride(_ context.Context, ev risk.OverrideEvent) error {
	r.log.Warn("风险地址被强制放行",
		zap.String("recipient", ev.Recipient),
		zap.String("from", ev.From),
		zap.String("amount", ev.Amount),
		zap.String("token", ev.Token),
		zap.String("state", string(ev.State)),
		zap.String("risk_type", ev.RiskType),
		zap.Strings("reasons", ev.Reasons),
		zap.Time("at", ev.At),
	)
	return nil
}

// MQRecorder 把事件以 JSON 发布到消息队列，同时写日志
type MQRecorder struct {
	producer mq.Producer
	topic    string
	log      *LogRecorder
}

func NewMQRecorder(producer mq.Producer, topic string) *MQRecorder {
	return &MQRecorder{producer: producer, topic: topic, log: NewLogRecorder()}
}

func (r *MQRecorder) RecordOverride(ctx context.Context, ev risk.OverrideEvent) error {
	_ = r.log.RecordOverride(ctx, ev)

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal override event: %w", err)
	}
	// 以接收方地址为分区键，同一地址的事件保持顺序
	return r.producer.Publish(ctx, r.topic, ev.Recipient, payload)
}

// NewRecorder 按配置选择落地方式，返回的 Producer 需由调用方关闭（log 模式为 nil）
func NewRecorder(cfg config.Config, rdb redis.UniversalClient) (risk.AuditRecorder, mq.Producer, error) {
	switch strings.ToLower(cfg.Audit.Sink) {
	case "", SinkLog:
		return NewLogRecorder(), nil, nil
	case SinkRedis:
		if rdb == nil {
			return nil, nil, fmt.Errorf("audit sink redis requires a redis client")
		}
		p := mq.NewRedisProducer(rdb, 100_000)
		return NewMQRecorder(p, cfg.Audit.Topic), p, nil
	case SinkKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, nil, fmt.Errorf("audit sink kafka requires brokers")
		}
		p := mq.NewKafkaProducer(cfg.Kafka.Brokers)
		return NewMQRecorder(p, cfg.Audit.Topic), p, nil
	default:
		return nil, nil, fmt.Errorf("unknown audit sink %q", cfg.Audit.Sink)
	}
}

// Tail 消费审计主题，逐条回调已解码的事件，阻塞直到 ctx 取消
func Tail(ctx context.Context, consumer mq.Consumer, topic string, fn func(risk.OverrideEvent) error) error {
	return consumer.Subscribe(ctx, topic, func(msg *mq.Message) error {
		var ev risk.OverrideEvent
		if err := json.Unmarshal(msg.Payload, &ev); err != nil {
			// 格式错误的消息无法重放，直接确认
			logger.Warn("审计消息解码失败", zap.String("id", msg.ID), zap.Error(err))
			return nil
		}
		return fn(ev)
	})
}
