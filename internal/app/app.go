// Package app 按配置组装客户端与服务，供 server 与 CLI 共用。
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tron-wallet-core/internal/client/trongrid"
	"tron-wallet-core/internal/client/tronrpc"
	"tron-wallet-core/internal/client/tronscan"
	"tron-wallet-core/internal/model"
	"tron-wallet-core/internal/service/audit"
	"tron-wallet-core/internal/service/balance"
	"tron-wallet-core/internal/service/broadcaster"
	"tron-wallet-core/internal/service/fee"
	"tron-wallet-core/internal/service/mq"
	"tron-wallet-core/internal/service/risk"
	"tron-wallet-core/internal/service/transfer"
	"tron-wallet-core/internal/service/txbuilder"
	"tron-wallet-core/pkg/cache"
	"tron-wallet-core/pkg/config"
	"tron-wallet-core/pkg/database"
	"tron-wallet-core/pkg/logger"
	"tron-wallet-core/pkg/utils/lock"
)

type Components struct {
	Config *config.Config

	Tronscan *tronscan.Client
	TronGrid *trongrid.Client
	RPC      *tronrpc.Client
	Redis    *redis.Client

	Tokens      *model.TokenRegistry
	Fee         *fee.Model
	Evaluator   *risk.Evaluator
	Breaker     *risk.Breaker
	Checker     *balance.Checker
	Builder     *txbuilder.Builder
	Broadcaster *broadcaster.Broadcaster
	Transfers   *transfer.Service

	auditProducer mq.Producer
}

// needsRedis 审计走 Redis Stream 或开启 Redis 二级缓存时才连接
func needsRedis(cfg *config.Config) bool {
	return cfg.Risk.CacheRedis || strings.EqualFold(cfg.Audit.Sink, audit.SinkRedis)
}

// Build 组装全部组件，失败时已创建的连接会被关闭
func Build(ctx context.Context, cfg *config.Config) (_ *Components, err error) {
	c := &Components{Config: cfg}
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	// 1. 外部接入点
	c.Tronscan = tronscan.NewClient(cfg.Tron.TronscanURL, cfg.Tron.TronscanAPIKey, cfg.Tron.Timeout)
	c.TronGrid = trongrid.NewClient(cfg.Tron.TronGridURL, cfg.Tron.TronGridAPIKey, cfg.Tron.Timeout)
	c.RPC, err = tronrpc.Dial(ctx, cfg.Tron.JSONRPCURL, cfg.Tron.TronGridAPIKey, cfg.Tron.Timeout)
	if err != nil {
		return nil, err
	}

	// 2. Redis (可选)
	if needsRedis(cfg) {
		c.Redis, err = database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
	}

	// 3. 风控：标签查询走缓存
	var tagCache cache.Cache = cache.NewMemoryCache(cfg.Risk.CacheTTL, 2*cfg.Risk.CacheTTL)
	if cfg.Risk.CacheRedis && c.Redis != nil {
		tagCache = cache.NewMultiLevelCache(tagCache, cache.NewRedisCache(c.Redis, "tron-wallet:"))
	}
	tags := risk.NewCachedTagSource(c.Tronscan, tagCache, cfg.Risk.CacheTTL)
	c.Evaluator = risk.NewEvaluator(tags, c.Tronscan, cfg.Risk.Keywords, cfg.Risk.SourceTimeout)

	// 4. 审计
	var rdb redis.UniversalClient
	if c.Redis != nil {
		rdb = c.Redis
	}
	recorder, producer, err := audit.NewRecorder(*cfg, rdb)
	if err != nil {
		return nil, err
	}
	c.auditProducer = producer
	c.Breaker = risk.NewBreaker(recorder)

	// 5. 余额、构建、广播
	c.Tokens = model.NewTokenRegistry(cfg.Token.Symbol, cfg.Token.Contract, cfg.Token.Decimals)
	c.Fee = fee.NewModel(fee.ParamsFromConfig(cfg.Fee))
	c.Checker = balance.NewChecker(c.RPC, c.Fee)
	c.Builder = txbuilder.NewBuilder(c.Tokens, cfg.Token.FeeLimit, cfg.Tx.Expiration)
	c.Broadcaster = broadcaster.NewBroadcaster(c.TronGrid, c.RPC)

	// 6. 编排
	c.Transfers = &transfer.Service{
		Builder:          c.Builder,
		Evaluator:        c.Evaluator,
		Breaker:          c.Breaker,
		Checker:          c.Checker,
		Blocks:           c.RPC,
		Recipients:       c.Tronscan,
		Canonical:        c.TronGrid,
		Broadcaster:      c.Broadcaster,
		RecipientTimeout: cfg.Risk.SourceTimeout,
	}
	if c.Redis != nil {
		c.Transfers.Locks = lock.NewRedisLock(c.Redis)
	}

	logger.Info("组件初始化完成",
		zap.String("network", cfg.Tron.Network),
		zap.String("token", c.Tokens.TRC20().Symbol),
		zap.String("token_contract", c.Tokens.TRC20().Contract),
		zap.String("audit_sink", cfg.Audit.Sink),
	)
	return c, nil
}

// Close 释放连接
func (c *Components) Close() {
	if c == nil {
		return
	}
	if c.auditProducer != nil {
		if err := c.auditProducer.Close(); err != nil {
			logger.Warn("关闭审计 Producer 失败", zap.Error(err))
		}
	}
	if c.RPC != nil {
		c.RPC.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}

// AuditConsumer 审计主题的消费者，用于 CLI 查看放行记录
func (c *Components) AuditConsumer(group string) (mq.Consumer, error) {
	switch strings.ToLower(c.Config.Audit.Sink) {
	case audit.SinkRedis:
		return mq.NewRedisConsumer(c.Redis, group, group+"-"+uuid.NewString()[:8]), nil
	case audit.SinkKafka:
		return mq.NewKafkaConsumer(c.Config.Kafka.Brokers, group), nil
	default:
		return nil, fmt.Errorf("audit sink %q has no consumer", c.Config.Audit.Sink)
	}
}
