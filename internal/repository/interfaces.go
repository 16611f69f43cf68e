// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/edumap/internal/model"
)

// KeyValueStore はブラウザのlocalStorageに相当する永続キー・バリューストア。
// 認証レジストリ、現在のセッション、ユーザーごとのカリキュラムはすべてこの上に保存される。
// 値はJSONドキュメント全体であり、部分更新は行わない。
type KeyValueStore interface {
	// Get は指定キーの値を返す。見つからない場合はnilを返す。
	Get(ctx context.Context, key string) ([]byte, error)

	// Set は指定キーに値を上書き保存する。
	Set(ctx context.Context, key string, value []byte) error

	// Delete は指定キーを削除する。存在しない場合もエラーにしない。
	Delete(ctx context.Context, key string) error
}

// SessionRepository はサーバーモードのセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}
