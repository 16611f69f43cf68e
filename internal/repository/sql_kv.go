package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// sqlKVQueries はSQL方言ごとのクエリ文字列。
type sqlKVQueries struct {
	get    string
	upsert string
	delete string
}

var postgresKVQueries = sqlKVQueries{
	get: `SELECT value FROM kv_entries WHERE key = $1`,
	upsert: `INSERT INTO kv_entries (key, value, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
	delete: `DELETE FROM kv_entries WHERE key = $1`,
}

var sqliteKVQueries = sqlKVQueries{
	get: `SELECT value FROM kv_entries WHERE key = ?`,
	upsert: `INSERT INTO kv_entries (key, value, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
	delete: `DELETE FROM kv_entries WHERE key = ?`,
}

// SQLKV はkv_entriesテーブルを使用したKeyValueStore。
// PostgreSQLとSQLiteの両方に対応し、スキーマはマイグレーションで作成される。
type SQLKV struct {
	db      *sql.DB
	queries sqlKVQueries
}

// NewPostgresKV はPostgreSQL用のSQLKVを生成する。
func NewPostgresKV(db *sql.DB) *SQLKV {
	return &SQLKV{db: db, queries: postgresKVQueries}
}

// NewSQLiteKV はSQLite用のSQLKVを生成する。
func NewSQLiteKV(db *sql.DB) *SQLKV {
	return &SQLKV{db: db, queries: sqliteKVQueries}
}

// Get は指定キーの値を返す。見つからない場合はnilを返す。
func (r *SQLKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, r.queries.get, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv entry %q: %w", key, err)
	}
	return value, nil
}

// Set は指定キーに値をUPSERTする。
func (r *SQLKV) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, r.queries.upsert, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set kv entry %q: %w", key, err)
	}
	return nil
}

// Delete は指定キーを削除する。
func (r *SQLKV) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, r.queries.delete, key)
	if err != nil {
		return fmt.Errorf("failed to delete kv entry %q: %w", key, err)
	}
	return nil
}

// compile-time interface check
var _ KeyValueStore = (*SQLKV)(nil)
