package market

import (
	"context"
	"errors"
	"time"

	"ComicScout/internal/domain/models"
	domsvc "ComicScout/internal/domain/service"
	"ComicScout/pkg/cache"
	"ComicScout/pkg/logger"
)

const keyPrefix = "mv"

type cachedValue struct {
	Found bool                `json:"found"`
	Value *models.MarketValue `json:"value,omitempty"`
}

// CachedValuer memoizes another MarketValuer by (issueId, gradeId, windowDays).
// Empty results are remembered for a quarter of the TTL.
type CachedValuer struct {
	next  domsvc.MarketValuer
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedValuer(next domsvc.MarketValuer, c cache.Service, ttl time.Duration, log *logger.Logger) *CachedValuer {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if log == nil {
		log = logger.Nop()
	}
	return &CachedValuer{next: next, cache: c, ttl: ttl, log: log}
}

func (v *CachedValuer) MarketValue(ctx context.Context, issueID, gradeID string, windowDays int) (*models.MarketValue, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	key := cache.GenerateKeyWithParams(keyPrefix, issueID, gradeID, windowDays)

	var hit cachedValue
	err := v.cache.Get(ctx, key, &hit)
	switch {
	case err == nil:
		if !hit.Found {
			return nil, nil
		}
		return hit.Value, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		v.log.Warn("market value cache read failed", logger.String("key", key), logger.Error(err))
	}

	mv, err := v.next.MarketValue(ctx, issueID, gradeID, windowDays)
	if err != nil {
		return nil, err
	}

	ttl := v.ttl
	if mv == nil {
		ttl = v.ttl / 4
	}
	if err := v.cache.Set(ctx, key, cachedValue{Found: mv != nil, Value: mv}, ttl); err != nil {
		v.log.Warn("market value cache write failed", logger.String("key", key), logger.Error(err))
	}
	return mv, nil
}

// Invalidate drops every memoized window for the pair.
func (v *CachedValuer) Invalidate(ctx context.Context, issueID, gradeID string) error {
	prefix := cache.GenerateKeyWithParams(keyPrefix, issueID, gradeID) + ":"
	return v.cache.DeleteByPattern(ctx, cache.BuildPattern(prefix))
}
