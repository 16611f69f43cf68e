package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hitoshi/edumap/internal/model"
)

// sessionsKey はKVSessionRepoがセッション一覧を保存するキー。
const sessionsKey = "edumap_server_sessions"

// KVSessionRepo はKeyValueStore上にセッションを保存するリポジトリ。
// PostgreSQLを使わない構成(SQLite/Redis/メモリ)で使用する。
// 全セッションを1つのJSONドキュメントとして保持するため、書き込みはミューテックスで直列化する。
type KVSessionRepo struct {
	kv  KeyValueStore
	mu  sync.Mutex
	now func() time.Time
}

// NewKVSessionRepo はKVSessionRepoを生成する。
func NewKVSessionRepo(kv KeyValueStore) *KVSessionRepo {
	return &KVSessionRepo{kv: kv, now: time.Now}
}

func (r *KVSessionRepo) load(ctx context.Context) (map[string]model.Session, error) {
	raw, err := r.kv.Get(ctx, sessionsKey)
	if err != nil {
		return nil, err
	}
	sessions := make(map[string]model.Session)
	if len(raw) == 0 {
		return sessions, nil
	}
	if err := json.Unmarshal(raw, &sessions); err != nil {
		// 壊れたドキュメントは空として扱い、次の書き込みで上書きする
		return make(map[string]model.Session), nil
	}
	return sessions, nil
}

func (r *KVSessionRepo) save(ctx context.Context, sessions map[string]model.Session) error {
	raw, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to encode sessions: %w", err)
	}
	return r.kv.Set(ctx, sessionsKey, raw)
}

// Create はセッションを作成する。
func (r *KVSessionRepo) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	sessions[session.ID] = *session
	if err := r.save(ctx, sessions); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *KVSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	s, ok := sessions[id]
	if !ok || s.Expired(r.now()) {
		return nil, nil
	}
	return &s, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *KVSessionRepo) DeleteByID(ctx context.Context, id string) error {
	return r.deleteWhere(ctx, func(s model.Session) bool { return s.ID == id })
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *KVSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	return r.deleteWhere(ctx, func(s model.Session) bool { return s.UserID == userID })
}

// DeleteExpired は期限切れのセッションを削除する。
func (r *KVSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	now := r.now()
	var n int64
	err := r.deleteWhere(ctx, func(s model.Session) bool {
		if s.Expired(now) {
			n++
			return true
		}
		return false
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *KVSessionRepo) deleteWhere(ctx context.Context, match func(model.Session) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	removed := false
	for id, s := range sessions {
		if match(s) {
			delete(sessions, id)
			removed = true
		}
	}
	if !removed {
		return nil
	}
	if err := r.save(ctx, sessions); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*KVSessionRepo)(nil)
