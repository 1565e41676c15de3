package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tron-wallet-core/internal/service/mq"
	"tron-wallet-core/internal/service/risk"
	"tron-wallet-core/pkg/config"
)

const recipient = "TMVQGm1qAQYVdetCeGRRkTWYYrLXuHK2HC"

func sampleEvent() risk.OverrideEvent {
	return risk.OverrideEvent{
		Recipient: recipient,
		From:      "TFwpzzQoGTJW4hUhGKKUZe4wSVCgyMoodZ",
		Amount:    "10",
		Token:     "USDT",
		State:     risk.StateRisky,
		RiskType:  "Scam",
		Reasons:   []string{"red tag: Scam"},
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

type failingProducer struct{}

func (failingProducer) Publish(context.Context, string, string, []byte) error {
	return errors.New("broker down")
}
func (failingProducer) Close() error { return nil }

func TestMQRecorderPublishesJSON(t *testing.T) {
	client := newRedis(t)
	rec := NewMQRecorder(mq.NewRedisProducer(client, 0), "tron.risk.override")

	require.NoError(t, rec.RecordOverride(context.Background(), sampleEvent()))

	msgs, err := client.XRange(context.Background(), "tron.risk.override", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, recipient, msgs[0].Values["key"])

	var got risk.OverrideEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Values["payload"].(string)), &got))
	assert.Equal(t, sampleEvent(), got)
}

func TestMQRecorderSurfacesPublishError(t *testing.T) {
	rec := NewMQRecorder(failingProducer{}, "topic")
	assert.Error(t, rec.RecordOverride(context.Background(), sampleEvent()))
}

func TestNewRecorderBySink(t *testing.T) {
	cfg := config.Default()

	rec, p, err := NewRecorder(*cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &LogRecorder{}, rec)
	assert.Nil(t, p)

	cfg.Audit.Sink = SinkRedis
	_, _, err = NewRecorder(*cfg, nil)
	assert.Error(t, err)

	rec, p, err = NewRecorder(*cfg, newRedis(t))
	require.NoError(t, err)
	assert.IsType(t, &MQRecorder{}, rec)
	require.NotNil(t, p)
	assert.NoError(t, p.Close())

	cfg.Audit.Sink = "smtp"
	_, _, err = NewRecorder(*cfg, nil)
	assert.Error(t, err)
}

func TestTailDecodesEvents(t *testing.T) {
	client := newRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	producer := mq.NewRedisProducer(client, 0)
	require.NoError(t, producer.Publish(ctx, "audit", "k", []byte("not json")))
	require.NoError(t, NewMQRecorder(producer, "audit").RecordOverride(ctx, sampleEvent()))

	var got []risk.OverrideEvent
	err := Tail(ctx, mq.NewRedisConsumer(client, "cli", "tail"), "audit", func(ev risk.OverrideEvent) error {
		got = append(got, ev)
		cancel()
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, recipient, got[0].Recipient)
}
