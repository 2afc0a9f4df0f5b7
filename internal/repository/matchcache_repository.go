package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/amara/cobagage/internal/model"
)

// MatchCacheRepository is the external caching layer for match results.
//
// The matching core only stamps an advisory ExpiresAt on each result;
// this repository enforces it by storing serialized result sets in Redis
// with a matching TTL. Cache failures degrade to recomputation — they
// are never surfaced to the caller.
type MatchCacheRepository struct {
	redis *redis.Client
}

// NewMatchCacheRepository creates a match cache over the given Redis client.
func NewMatchCacheRepository(redis *redis.Client) *MatchCacheRepository {
	return &MatchCacheRepository{redis: redis}
}

const (
	colisCacheKeyPrefix  = "match:colis:"
	trajetCacheKeyPrefix = "match:trajet:"

	// matchCacheTTL mirrors the advisory ExpiresAt = CalculatedAt + 24h
	// stamped on every result.
	matchCacheTTL = 24 * time.Hour
)

// cacheKey folds the options into the key: different options produce
// different result sets.
func cacheKey(prefix, id string, opts model.MatchOptions) string {
	return fmt.Sprintf("%s%s:s%g:l%d:r%d:b%t",
		prefix, id, opts.MinScore, opts.Limit, opts.DateSearchRadius, opts.WantBreakdown())
}

// GetColisResults returns cached colis-direction results, or (nil, false)
// on a miss.
func (r *MatchCacheRepository) GetColisResults(ctx context.Context, colisID string, opts model.MatchOptions) (*model.ColisMatchResults, bool) {
	payload, err := r.redis.Get(ctx, cacheKey(colisCacheKeyPrefix, colisID, opts)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] get colis results: %v", err)
		}
		return nil, false
	}

	var results model.ColisMatchResults
	if err := json.Unmarshal(payload, &results); err != nil {
		log.Printf("[cache] decode colis results: %v", err)
		return nil, false
	}
	return &results, true
}

// StoreColisResults caches colis-direction results until their advisory
// expiry. Fire-and-forget: errors are logged, never returned.
func (r *MatchCacheRepository) StoreColisResults(ctx context.Context, colisID string, opts model.MatchOptions, results *model.ColisMatchResults) {
	payload, err := json.Marshal(results)
	if err != nil {
		log.Printf("[cache] encode colis results: %v", err)
		return
	}
	if err := r.redis.Set(ctx, cacheKey(colisCacheKeyPrefix, colisID, opts), payload, matchCacheTTL).Err(); err != nil {
		log.Printf("[cache] store colis results: %v", err)
	}
}

// GetTrajetResults returns cached trajet-direction results, or (nil, false)
// on a miss.
func (r *MatchCacheRepository) GetTrajetResults(ctx context.Context, trajetID string, opts model.MatchOptions) (*model.TrajetMatchResults, bool) {
	payload, err := r.redis.Get(ctx, cacheKey(trajetCacheKeyPrefix, trajetID, opts)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("[cache] get trajet results: %v", err)
		}
		return nil, false
	}

	var results model.TrajetMatchResults
	if err := json.Unmarshal(payload, &results); err != nil {
		log.Printf("[cache] decode trajet results: %v", err)
		return nil, false
	}
	return &results, true
}

// StoreTrajetResults caches trajet-direction results until their advisory
// expiry.
func (r *MatchCacheRepository) StoreTrajetResults(ctx context.Context, trajetID string, opts model.MatchOptions, results *model.TrajetMatchResults) {
	payload, err := json.Marshal(results)
	if err != nil {
		log.Printf("[cache] encode trajet results: %v", err)
		return
	}
	if err := r.redis.Set(ctx, cacheKey(trajetCacheKeyPrefix, trajetID, opts), payload, matchCacheTTL).Err(); err != nil {
		log.Printf("[cache] store trajet results: %v", err)
	}
}
