package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/digitaltitann/soltrader/internal/domain"
)

// AnalysisCache stores token market data as JSON under "analysis:{mint}"
// with a short TTL, so repeated price refreshes within one cycle and the
// dashboard do not hammer the upstream feeds.
type AnalysisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewAnalysisCache(c *Client, ttl time.Duration) *AnalysisCache {
	return &AnalysisCache{rdb: c.rdb, ttl: ttl}
}

func analysisKey(mint string) string {
	return "analysis:" + mint
}

// Get returns domain.ErrNotFound on a miss.
func (ac *AnalysisCache) Get(ctx context.Context, mint string) (*domain.TokenAnalysis, error) {
	data, err := ac.rdb.Get(ctx, analysisKey(mint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get analysis %s: %w", mint, err)
	}
	var a domain.TokenAnalysis
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("redis: decode analysis %s: %w", mint, err)
	}
	return &a, nil
}

func (ac *AnalysisCache) Set(ctx context.Context, a *domain.TokenAnalysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("redis: encode analysis %s: %w", a.Mint, err)
	}
	if err := ac.rdb.Set(ctx, analysisKey(a.Mint), data, ac.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set analysis %s: %w", a.Mint, err)
	}
	return nil
}
