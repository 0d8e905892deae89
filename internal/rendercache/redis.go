package rendercache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/mailroom/internal/metrics"
	"github.com/dropDatabas3/mailroom/internal/observability/logger"
	"github.com/redis/go-redis/v9"
)

// redisCache implementa Cache sobre Redis. Entradas serializadas como JSON,
// expiración delegada al TTL de Redis. Las fallas del backend se loguean y
// degradan a miss; el render sigue sin cache.
type redisCache struct {
	rdb        *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewRedis crea un cache respaldado por Redis.
func NewRedis(cfg Config) (Cache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "mailroom:render"
	}
	return &redisCache{rdb: rdb, prefix: prefix, defaultTTL: cfg.DefaultTTL}, nil
}

func (r *redisCache) key(k string) string { return r.prefix + ":" + k }

func (r *redisCache) Get(ctx context.Context, key string) (*Entry, bool) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Result()
	if err != nil {
		if err != redis.Nil {
			logger.From(ctx).Warn("render cache get failed", logger.Component("rendercache"), logger.Err(err))
		}
		metrics.RenderCacheMisses.Inc()
		return nil, false
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		metrics.RenderCacheMisses.Inc()
		return nil, false
	}
	metrics.RenderCacheHits.Inc()
	return &e, true
}

func (r *redisCache) Set(ctx context.Context, key string, e *Entry, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, r.key(key), raw, ttl).Err(); err != nil {
		logger.From(ctx).Warn("render cache set failed", logger.Component("rendercache"), logger.Err(err))
	}
}

func (r *redisCache) InvalidateTemplate(ctx context.Context, templateID string) int {
	pattern := r.key(templatePrefix(templateID)) + "*"
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			logger.From(ctx).Warn("render cache scan failed", logger.Component("rendercache"), logger.Err(err))
			return total
		}
		if len(keys) > 0 {
			if n, err := r.rdb.Del(ctx, keys...).Result(); err == nil {
				total += int(n)
			}
		}
		cursor = next
		if cursor == 0 {
			return total
		}
	}
}

func (r *redisCache) Clear(ctx context.Context) {
	pattern := r.prefix + ":*"
	var cursor uint64
	for {
		keys, next, err := r.rdb.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			return
		}
		if len(keys) > 0 {
			_ = r.rdb.Del(ctx, keys...).Err()
		}
		cursor = next
		if cursor == 0 {
			return
		}
	}
}
