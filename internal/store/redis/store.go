package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sembrant/chatdir/internal/model"
	"github.com/sembrant/chatdir/internal/store"
)

// Store is the Redis-backed implementation of the store primitives.
type Store struct {
	client *redis.Client
}

// New creates a Redis store and verifies the connection.
func New(cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Redis store with an existing client (for testing).
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ensure Store implements the interface
var _ store.Store = (*Store)(nil)

// unavailable wraps a transport failure so callers can match it with
// errors.Is(err, model.ErrStoreUnavailable).
func unavailable(err error) error {
	return fmt.Errorf("%w: %v", model.ErrStoreUnavailable, err)
}

// Attribute records

func (s *Store) RecordGet(ctx context.Context, key, field string) (string, bool, error) {
	val, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable(err)
	}
	return val, true, nil
}

func (s *Store) RecordSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// Membership sets

func (s *Store) SetAdd(ctx context.Context, key string, members ...string) error {
	if err := s.client.SAdd(ctx, key, toAny(members)...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) SetRemove(ctx context.Context, key string, members ...string) error {
	if err := s.client.SRem(ctx, key, toAny(members)...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) SetContains(ctx context.Context, key, member string) (bool, error) {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return ok, nil
}

func (s *Store) SetMembers(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return members, nil
}

func (s *Store) SetRandomMember(ctx context.Context, key string) (string, bool, error) {
	member, err := s.client.SRandMember(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable(err)
	}
	return member, true, nil
}

func (s *Store) SetLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.SCard(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Score-ordered sets

func (s *Store) RankedAdd(ctx context.Context, key, member string, score int64) error {
	z := redis.Z{Score: float64(score), Member: member}
	if err := s.client.ZAdd(ctx, key, z).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) RankedIncr(ctx context.Context, key, member string, delta int64) (int64, error) {
	score, err := s.client.ZIncrBy(ctx, key, float64(delta), member).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return int64(score), nil
}

func (s *Store) RankedScore(ctx context.Context, key, member string) (int64, bool, error) {
	score, err := s.client.ZScore(ctx, key, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, unavailable(err)
	}
	return int64(score), true, nil
}

func (s *Store) RankedRank(ctx context.Context, key, member string) (int64, bool, error) {
	rank, err := s.client.ZRevRank(ctx, key, member).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, unavailable(err)
	}
	return rank, true, nil
}

func (s *Store) RankedRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.client.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return members, nil
}

func (s *Store) RankedRangeWithScores(ctx context.Context, key string, start, stop int64) ([]store.Entry, error) {
	zs, err := s.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	entries := make([]store.Entry, len(zs))
	for i, z := range zs {
		entries[i] = store.Entry{
			Member: z.Member.(string),
			Score:  int64(z.Score),
		}
	}
	return entries, nil
}

func (s *Store) RankedRemove(ctx context.Context, key string, members ...string) error {
	if err := s.client.ZRem(ctx, key, toAny(members)...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) RankedLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

func (s *Store) RankedIntersectTop(ctx context.Context, key, filterKey string, n int64) ([]store.Entry, error) {
	if n <= 0 {
		return []store.Entry{}, nil
	}

	// ZINTERSTORE into a scratch key, read the top range, drop the
	// scratch. Plain-set members contribute weight 1, so composed
	// scores carry a +1 bias over true scores.
	dest := "Tmp:Inter:" + key + ":" + filterKey

	err := s.client.ZInterStore(ctx, dest, &redis.ZStore{
		Keys: []string{key, filterKey},
	}).Err()
	if err != nil {
		return nil, unavailable(err)
	}

	zs, err := s.client.ZRevRangeWithScores(ctx, dest, 0, n-1).Result()
	if err != nil {
		return nil, unavailable(err)
	}

	if err := s.client.Del(ctx, dest).Err(); err != nil {
		return nil, unavailable(err)
	}

	entries := make([]store.Entry, len(zs))
	for i, z := range zs {
		entries[i] = store.Entry{
			Member: z.Member.(string),
			Score:  int64(z.Score),
		}
	}
	return entries, nil
}

// Whole-key operations

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, unavailable(err)
	}
	return n > 0, nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Rename(ctx context.Context, oldKey, newKey string) error {
	if err := s.client.Rename(ctx, oldKey, newKey).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}

// toAny converts members for the go-redis variadic APIs.
func toAny(members []string) []interface{} {
	out := make([]interface{}, len(members))
	for i, m := range members {
		out[i] = m
	}
	return out
}
