package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/hitoshi/edumap/internal/config"
	"github.com/hitoshi/edumap/internal/database"
	"github.com/hitoshi/edumap/internal/repository"
)

// redisKeyPrefix はRedisに保存する全キーの接頭辞。
const redisKeyPrefix = "edumap:"

// Storage はSTORAGE_DRIVERに応じて構成された永続化層。
type Storage struct {
	KV       repository.KeyValueStore
	Sessions repository.SessionRepository
	// Ping はバックエンドへの疎通を確認する。/healthで使用する。
	Ping     func(ctx context.Context) error

	closers []func() error
}

// Close は開いている接続をすべて閉じる。
func (s *Storage) Close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// OpenStorage は設定されたドライバーでストレージを開く。
// sqliteは起動時にマイグレーションを適用する。postgresはmigrateコマンドで事前に適用しておくこと。
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.StorageMemory:
		kv := repository.NewMemoryKV()
		return &Storage{
			KV:       kv,
			Sessions: repository.NewKVSessionRepo(kv),
			Ping:     func(context.Context) error { return nil },
		}, nil

	case config.StorageSQLite:
		if err := database.RunMigrations(database.DriverSQLite, cfg.StorageDSN); err != nil {
			return nil, fmt.Errorf("failed to migrate sqlite storage: %w", err)
		}
		db, err := database.OpenSQLite(cfg.StorageDSN)
		if err != nil {
			return nil, err
		}
		kv := repository.NewSQLiteKV(db)
		slog.Debug("sqlite storage opened", slog.String("path", cfg.StorageDSN))
		return &Storage{
			KV:       kv,
			Sessions: repository.NewKVSessionRepo(kv),
			Ping:     db.PingContext,
			closers:  []func() error{db.Close},
		}, nil

	case config.StoragePostgres:
		db, err := openPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &Storage{
			KV:       repository.NewPostgresKV(db),
			Sessions: repository.NewPostgresSessionRepo(db),
			Ping:     db.PingContext,
			closers:  []func() error{db.Close},
		}, nil

	case config.StorageRedis:
		rdb, err := repository.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		kv := repository.NewRedisKV(rdb, redisKeyPrefix)
		return &Storage{
			KV:       kv,
			Sessions: repository.NewKVSessionRepo(kv),
			Ping:     func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			closers:  []func() error{rdb.Close},
		}, nil

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}
}

func openPostgres(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := database.Open(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")
	return db, nil
}
