package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKV はRedisを使用したKeyValueStore。
// 複数のAPIサーバーでストレージを共有する場合に使用する。
type RedisKV struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisKV はRedisKVを生成する。prefixは全キーの先頭に付与される。
func NewRedisKV(rdb *redis.Client, prefix string) *RedisKV {
	return &RedisKV{rdb: rdb, prefix: prefix}
}

// OpenRedis はURLからRedisクライアントを生成し、接続を確認する。
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// Get は指定キーの値を返す。見つからない場合はnilを返す。
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get redis key %q: %w", key, err)
	}
	return value, nil
}

// Set は指定キーに値を保存する。有効期限は設定しない。
func (r *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	if err := r.rdb.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set redis key %q: %w", key, err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete redis key %q: %w", key, err)
	}
	return nil
}

// compile-time interface check
var _ KeyValueStore = (*RedisKV)(nil)
