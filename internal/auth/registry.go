package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/repository"
)

// UsersKey はユーザーレジストリを保存するストレージキー。
const UsersKey = "edumap_mock_users"

// record はレジストリに保存されるユーザーレコード。
// パスワードは平文ではなくbcryptハッシュで保持する。
type record struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash"`
	DisplayName  string `json:"displayName"`
}

func (r record) user() *model.User {
	return &model.User{UID: r.UID, Email: r.Email, DisplayName: r.DisplayName}
}

// RegistryOption はRegistryの生成オプション。
type RegistryOption func(*Registry)

// WithHashCost はbcryptのコストを指定する。テストではbcrypt.MinCostを使用する。
func WithHashCost(cost int) RegistryOption {
	return func(r *Registry) {
		r.cost = cost
	}
}

// Registry はKeyValueStore上のユーザーレジストリ。
// 全レコードを1つのJSON配列として保持し、読み込み・変更・書き込みをミューテックスで直列化する。
type Registry struct {
	kv   repository.KeyValueStore
	mu   sync.Mutex
	cost int
}

// NewRegistry はRegistryを生成する。
func NewRegistry(kv repository.KeyValueStore, opts ...RegistryOption) *Registry {
	r := &Registry{kv: kv, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) load(ctx context.Context) ([]record, error) {
	raw, err := r.kv.Get(ctx, UsersKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load user registry: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		slog.Warn("user registry is corrupt, treating as empty",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}
	return records, nil
}

func (r *Registry) save(ctx context.Context, records []record) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode user registry: %w", err)
	}
	if err := r.kv.Set(ctx, UsersKey, raw); err != nil {
		return fmt.Errorf("failed to save user registry: %w", err)
	}
	return nil
}

// Register は新規ユーザーを登録する。
// 登録済みのメールアドレスの場合はErrEmailAlreadyRegisteredを返し、レジストリは変更しない。
func (r *Registry) Register(ctx context.Context, email, password, displayName string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Email == email {
			return nil, ErrEmailAlreadyRegistered
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	rec := record{
		UID:          uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  displayName,
	}
	if err := r.save(ctx, append(records, rec)); err != nil {
		return nil, err
	}

	return rec.user(), nil
}

// Authenticate はメールアドレスとパスワードが一致するユーザーを返す。
// 一致しない場合はErrInvalidCredentialsを返す。
func (r *Registry) Authenticate(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.TrimSpace(email)

	r.mu.Lock()
	records, err := r.load(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if rec.Email != email {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)) != nil {
			return nil, ErrInvalidCredentials
		}
		return rec.user(), nil
	}
	return nil, ErrInvalidCredentials
}

// FindByID は指定UIDのユーザーを取得する。見つからない場合はnilを返す。
func (r *Registry) FindByID(ctx context.Context, uid string) (*model.User, error) {
	r.mu.Lock()
	records, err := r.load(ctx)
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if rec.UID == uid {
			return rec.user(), nil
		}
	}
	return nil, nil
}

// Remove は指定UIDのユーザーをレジストリから削除する。存在しない場合は何もしない。
func (r *Registry) Remove(ctx context.Context, uid string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return err
	}

	kept := records[:0]
	for _, rec := range records {
		if rec.UID != uid {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return nil
	}
	return r.save(ctx, kept)
}

// Count は登録ユーザー数を返す。
func (r *Registry) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}
