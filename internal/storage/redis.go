package storage

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisSeenStore keeps seen headlines as members of a single redis set.
type RedisSeenStore struct {
	rdb *redis.Client
	key string
}

func NewRedisSeenStore(ctx context.Context, opts RedisOptions) (*RedisSeenStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", opts.Addr, err)
	}
	return newRedisSeenStore(rdb, opts.Key), nil
}

func newRedisSeenStore(rdb *redis.Client, key string) *RedisSeenStore {
	if key == "" {
		key = "headwatch:seen"
	}
	return &RedisSeenStore{rdb: rdb, key: key}
}

// Load returns the set members. Redis sets are unordered, so the result is sorted.
func (rs *RedisSeenStore) Load(ctx context.Context) ([]string, error) {
	members, err := rs.rdb.SMembers(ctx, rs.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load seen set %s: %w", rs.key, err)
	}
	sort.Strings(members)
	return members, nil
}

func (rs *RedisSeenStore) Append(ctx context.Context, entries []string) error {
	if len(entries) == 0 {
		return nil
	}
	members := make([]interface{}, len(entries))
	for i, e := range entries {
		members[i] = e
	}
	if err := rs.rdb.SAdd(ctx, rs.key, members...).Err(); err != nil {
		return fmt.Errorf("failed to append to seen set %s: %w", rs.key, err)
	}
	return nil
}

func (rs *RedisSeenStore) Count(ctx context.Context) (int, error) {
	n, err := rs.rdb.SCard(ctx, rs.key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count seen set %s: %w", rs.key, err)
	}
	return int(n), nil
}

func (rs *RedisSeenStore) Close() error {
	return rs.rdb.Close()
}
