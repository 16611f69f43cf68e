package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hitoshi/edumap/internal/model"
)

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

func newTestKVSessionRepo(now time.Time) *KVSessionRepo {
	repo := NewKVSessionRepo(NewMemoryKV())
	repo.now = func() time.Time { return now }
	return repo
}

func TestKVSessionRepo_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestKVSessionRepo(now)

	s := &model.Session{
		ID:        "s1",
		UserID:    "u1",
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("Create error = %v", err)
	}

	got, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID error = %v", err)
	}
	if got == nil {
		t.Fatal("expected session, got nil")
	}
	if got.UserID != "u1" {
		t.Errorf("UserID = %q, want %q", got.UserID, "u1")
	}

	// 存在しないIDはnilを返す
	got, err = repo.FindByID(ctx, "unknown")
	if err != nil {
		t.Fatalf("FindByID(unknown) error = %v", err)
	}
	if got != nil {
		t.Errorf("FindByID(unknown) = %+v, want nil", got)
	}
}

// 期限切れセッションはFindByIDで返されないことを検証
func TestKVSessionRepo_FindByID_Expired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestKVSessionRepo(now)

	_ = repo.Create(ctx, &model.Session{ID: "old", UserID: "u1", ExpiresAt: now.Add(-time.Minute)})

	got, err := repo.FindByID(ctx, "old")
	if err != nil {
		t.Fatalf("FindByID error = %v", err)
	}
	if got != nil {
		t.Errorf("expired session should not be returned, got %+v", got)
	}
}

func TestKVSessionRepo_DeleteByIDAndUserID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestKVSessionRepo(now)

	for _, s := range []model.Session{
		{ID: "a", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
		{ID: "b", UserID: "u1", ExpiresAt: now.Add(time.Hour)},
		{ID: "c", UserID: "u2", ExpiresAt: now.Add(time.Hour)},
	} {
		if err := repo.Create(ctx, &s); err != nil {
			t.Fatalf("Create error = %v", err)
		}
	}

	if err := repo.DeleteByID(ctx, "a"); err != nil {
		t.Fatalf("DeleteByID error = %v", err)
	}
	if got, _ := repo.FindByID(ctx, "a"); got != nil {
		t.Error("session a should be deleted")
	}

	if err := repo.DeleteByUserID(ctx, "u1"); err != nil {
		t.Fatalf("DeleteByUserID error = %v", err)
	}
	if got, _ := repo.FindByID(ctx, "b"); got != nil {
		t.Error("session b should be deleted")
	}
	if got, _ := repo.FindByID(ctx, "c"); got == nil {
		t.Error("session c of another user should remain")
	}
}

func TestKVSessionRepo_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	repo := newTestKVSessionRepo(now)

	_ = repo.Create(ctx, &model.Session{ID: "live", UserID: "u1", ExpiresAt: now.Add(time.Hour)})
	_ = repo.Create(ctx, &model.Session{ID: "dead1", UserID: "u1", ExpiresAt: now.Add(-time.Hour)})
	_ = repo.Create(ctx, &model.Session{ID: "dead2", UserID: "u2", ExpiresAt: now})

	n, err := repo.DeleteExpired(ctx)
	if err != nil {
		t.Fatalf("DeleteExpired error = %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteExpired = %d, want 2", n)
	}
	if got, _ := repo.FindByID(ctx, "live"); got == nil {
		t.Error("live session should remain")
	}
}

// 壊れたドキュメントは空として扱われることを検証
func TestKVSessionRepo_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	_ = kv.Set(ctx, sessionsKey, []byte("{not json"))
	repo := NewKVSessionRepo(kv)

	got, err := repo.FindByID(ctx, "x")
	if err != nil {
		t.Fatalf("FindByID error = %v", err)
	}
	if got != nil {
		t.Errorf("FindByID = %+v, want nil", got)
	}
	if err := repo.Create(ctx, &model.Session{ID: "x", UserID: "u", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Create after corruption error = %v", err)
	}
}
