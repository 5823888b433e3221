package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"zerocrash/internal/cache"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared cache tier and the popular-query board.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if strings.TrimSpace(prefix) == "" {
		prefix = "zerocrash"
	}
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) resultKey(fp string) string {
	return fmt.Sprintf("%s:search:result:%s", s.prefix, fp)
}

func (s *RedisStore) queriesZKey() string {
	return fmt.Sprintf("%s:search:queries", s.prefix)
}

// Load fetches a cached search result and its remaining TTL.
func (s *RedisStore) Load(ctx context.Context, fp string) (cache.Value, time.Duration, bool, error) {
	var zero cache.Value
	key := s.resultKey(fp)
	pipe := s.rdb.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return zero, 0, false, err
	}
	b, err := getCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, 0, false, nil
	}
	if err != nil {
		return zero, 0, false, err
	}
	var v cache.Value
	if err := json.Unmarshal(b, &v); err != nil {
		return zero, 0, false, fmt.Errorf("decode cached result: %w", err)
	}
	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return zero, 0, false, nil
	}
	return v, ttl, true, nil
}

// Save stores a search result with an expiry.
func (s *RedisStore) Save(ctx context.Context, fp string, v cache.Value, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, s.resultKey(fp), b, ttl).Err()
}

// Delete removes a cached search result.
func (s *RedisStore) Delete(ctx context.Context, fp string) error {
	return s.rdb.Del(ctx, s.resultKey(fp)).Err()
}

// RecordQuery bumps the popularity of a normalized query text.
func (s *RedisStore) RecordQuery(ctx context.Context, query string) error {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	return s.rdb.ZIncrBy(ctx, s.queriesZKey(), 1, q).Err()
}

// QueryCount is a query with how often it was searched.
type QueryCount struct {
	Query string  `json:"query"`
	Count float64 `json:"count"`
}

// TopQueries returns the n most searched queries.
func (s *RedisStore) TopQueries(ctx context.Context, n int) ([]QueryCount, error) {
	if n <= 0 {
		return nil, nil
	}
	zs, err := s.rdb.ZRevRangeWithScores(ctx, s.queriesZKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]QueryCount, 0, len(zs))
	for _, z := range zs {
		m, _ := z.Member.(string)
		out = append(out, QueryCount{Query: m, Count: z.Score})
	}
	return out, nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}
