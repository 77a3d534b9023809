package utils

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cppla/fitquest/models"
)

const (
	defaultCacheTTL = time.Hour
	planCacheKey    = "insurance:plans:generated"
)

// CacheGetBytes returns cached bytes for a key from Redis.
func CacheGetBytes(ctx context.Context, key string) ([]byte, bool) {
	rc := GetRedis()
	if rc == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	b, err := rc.Get(ctx, key).Bytes()
	if err != nil {
		if Sugar != nil {
			Sugar.Debugf("cache get miss key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// CacheSetBytes stores bytes with the given TTL, or the default when ttl <= 0.
func CacheSetBytes(ctx context.Context, key string, b []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	rc := GetRedis()
	if rc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Set(ctx, key, b, ttl).Err(); err != nil {
		if Sugar != nil {
			Sugar.Warnf("cache set failed key=%s err=%v", key, err)
		}
	}
}

// CacheSetJSON marshals v and stores JSON bytes.
func CacheSetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	CacheSetBytes(ctx, key, b, ttl)
}

// RedisPlanCache keeps the last generated insurance catalog in Redis.
// Without a Redis client every Load misses and Store is a no-op.
type RedisPlanCache struct {
	Key string
}

// NewRedisPlanCache returns a cache under the default key.
func NewRedisPlanCache() RedisPlanCache {
	return RedisPlanCache{Key: planCacheKey}
}

// Load returns the cached catalog when present and decodable.
func (c RedisPlanCache) Load(ctx context.Context) ([]models.InsurancePlan, bool) {
	b, ok := CacheGetBytes(ctx, c.Key)
	if !ok {
		return nil, false
	}
	var plans []models.InsurancePlan
	if err := json.Unmarshal(b, &plans); err != nil || len(plans) == 0 {
		return nil, false
	}
	return plans, true
}

// Store saves the catalog for ttl.
func (c RedisPlanCache) Store(ctx context.Context, plans []models.InsurancePlan, ttl time.Duration) {
	CacheSetJSON(ctx, c.Key, plans, ttl)
}
