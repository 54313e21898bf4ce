package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/zora/internal/domain/product"
	"github.com/geocoder89/zora/internal/observability"
	"github.com/redis/go-redis/v9"
)

const productsKeyPrefix = "zora:products:list:v1:"

// ProductsListKey builds the cache key for one product listing. Categories
// match exactly, so the key keeps the caller's spelling.
func ProductsListKey(category *string) string {
	c := ""
	if category != nil {
		c = *category
	}

	return productsKeyPrefix + "category=" + c
}

// MemoryProducts caches product listings in process.
type MemoryProducts struct {
	c    *Cache
	prom *observability.Prom
}

func NewMemoryProducts(ttl time.Duration, prom *observability.Prom) *MemoryProducts {
	return &MemoryProducts{c: New(ttl), prom: prom}
}

func (m *MemoryProducts) GetProducts(ctx context.Context, key string) ([]product.Product, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		m.prom.ObserveCache("memory", "miss")
		return nil, false
	}

	products, ok := v.([]product.Product)
	if !ok {
		m.prom.ObserveCache("memory", "error")
		return nil, false
	}

	m.prom.ObserveCache("memory", "hit")
	return products, true
}

func (m *MemoryProducts) SetProducts(ctx context.Context, key string, products []product.Product) {
	m.c.Set(key, products)
}

func (m *MemoryProducts) InvalidateProducts(ctx context.Context) error {
	m.c.DeletePrefix(productsKeyPrefix)
	return nil
}

// RedisProducts caches product listings as JSON in Redis so every API replica
// sees the same catalog snapshot and provisioning can invalidate it.
type RedisProducts struct {
	rdb  *redis.Client
	ttl  time.Duration
	prom *observability.Prom
	log  *slog.Logger
}

func NewRedisProducts(rdb *redis.Client, ttl time.Duration, prom *observability.Prom, log *slog.Logger) *RedisProducts {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &RedisProducts{rdb: rdb, ttl: ttl, prom: prom, log: log}
}

func (r *RedisProducts) GetProducts(ctx context.Context, key string) ([]product.Product, bool) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			r.prom.ObserveCache("redis", "miss")
			return nil, false
		}

		// cache outages degrade to database reads
		r.prom.ObserveCache("redis", "error")
		r.log.WarnContext(ctx, "product cache read failed", "key", key, "err", err)
		return nil, false
	}

	var products []product.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		r.prom.ObserveCache("redis", "error")
		return nil, false
	}

	r.prom.ObserveCache("redis", "hit")
	return products, true
}

func (r *RedisProducts) SetProducts(ctx context.Context, key string, products []product.Product) {
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}

	if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		r.log.WarnContext(ctx, "product cache write failed", "key", key, "err", err)
	}
}

func (r *RedisProducts) InvalidateProducts(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, productsKeyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}

	if err := iter.Err(); err != nil {
		return err
	}

	if len(keys) == 0 {
		return nil
	}

	return r.rdb.Del(ctx, keys...).Err()
}
