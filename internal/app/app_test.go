package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tron-wallet-core/pkg/config"
)

func TestBuildClosesRedisOnFailure(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Tron.JSONRPCURL = "http://127.0.0.1:1/jsonrpc"
	cfg.Redis.Addr = mr.Addr()
	cfg.Risk.CacheRedis = true
	cfg.Audit.Sink = "bogus"

	c, err := Build(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown audit sink")
	assert.Nil(t, c)

	// Ping 建立的连接必须随失败一起释放
	assert.Eventually(t, func() bool {
		return mr.CurrentConnectionCount() == 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestBuildLogSink(t *testing.T) {
	cfg := config.Default()
	cfg.Tron.JSONRPCURL = "http://127.0.0.1:1/jsonrpc"
	cfg.Risk.CacheRedis = false
	cfg.Audit.Sink = "log"

	c, err := Build(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Redis)
	assert.Nil(t, c.Transfers.Locks)
	assert.NotNil(t, c.Transfers.Breaker)
	_, err = c.AuditConsumer("cli")
	assert.Error(t, err)
}
