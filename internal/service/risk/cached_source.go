package risk

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"tron-wallet-core/pkg/cache"
	"tron-wallet-core/pkg/logger"
)

// CachedTagSource 缓存成功的标签查询结果，失败从不缓存
type CachedTagSource struct {
	next  TagSource
	cache cache.Cache
	ttl   time.Duration
}

func NewCachedTagSource(next TagSource, c cache.Cache, ttl time.Duration) *CachedTagSource {
	return &CachedTagSource{next: next, cache: c, ttl: ttl}
}

func (s *CachedTagSource) GetAccountTags(ctx context.Context, addr string) (AccountTags, error) {
	key := "risk:tags:" + addr

	var tags AccountTags
	err := s.cache.Get(ctx, key, &tags)
	if err == nil {
		return tags, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn("风险标签缓存读取失败", zap.String("address", addr), zap.Error(err))
	}

	tags, err = s.next.GetAccountTags(ctx, addr)
	if err != nil {
		return AccountTags{}, err
	}
	if err := s.cache.Set(ctx, key, tags, s.ttl); err != nil {
		logger.Warn("风险标签缓存写入失败", zap.String("address", addr), zap.Error(err))
	}
	return tags, nil
}
