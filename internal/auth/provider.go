package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/repository"
)

// SessionKey は現在のセッション(ログイン中のユーザー)を保存するストレージキー。
const SessionKey = "edumap_mock_session"

// ProviderConfig はProviderの設定。
type ProviderConfig struct {
	// SignInDelay はサインイン完了までの擬似的な待ち時間。
	SignInDelay time.Duration
	// SignUpDelay はサインアップ完了までの擬似的な待ち時間。
	SignUpDelay time.Duration
}

// Provider はローカルストレージ上で動作する認証プロバイダー。
// ユーザーレジストリと単一の「現在のセッション」を保持し、
// 状態の変化を購読者へ同期的に通知する。
type Provider struct {
	registry  *Registry
	kv        repository.KeyValueStore
	observers *Observable
	config    ProviderConfig

	mu       sync.Mutex
	current  *model.User
	disposed bool
}

// NewProvider はProviderを生成し、保存済みのセッションを復元する。
// 保存済みセッションが壊れている場合は未ログイン状態で開始する。
func NewProvider(ctx context.Context, kv repository.KeyValueStore, registry *Registry, config ProviderConfig) (*Provider, error) {
	p := &Provider{
		registry:  registry,
		kv:        kv,
		observers: NewObservable(),
		config:    config,
	}

	raw, err := kv.Get(ctx, SessionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load current session: %w", err)
	}
	if len(raw) > 0 {
		var u model.User
		if err := json.Unmarshal(raw, &u); err != nil || u.UID == "" {
			slog.Warn("stored session is corrupt, starting signed out")
		} else {
			p.current = &u
		}
	}

	return p, nil
}

// SignUp は新規ユーザーを登録し、そのユーザーでログインする。
func (p *Provider) SignUp(ctx context.Context, email, password, displayName string) (*model.User, error) {
	if err := p.checkUsable(); err != nil {
		return nil, err
	}
	if err := wait(ctx, p.config.SignUpDelay); err != nil {
		return nil, err
	}

	user, err := p.registry.Register(ctx, email, password, displayName)
	if err != nil {
		return nil, err
	}
	if err := p.setCurrent(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user signed up", slog.String("user_id", user.UID))
	return cloneUser(user), nil
}

// SignIn はメールアドレスとパスワードが一致するユーザーでログインする。
func (p *Provider) SignIn(ctx context.Context, email, password string) (*model.User, error) {
	if err := p.checkUsable(); err != nil {
		return nil, err
	}
	if err := wait(ctx, p.config.SignInDelay); err != nil {
		return nil, err
	}

	user, err := p.registry.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := p.setCurrent(ctx, user); err != nil {
		return nil, err
	}

	slog.Info("user signed in", slog.String("user_id", user.UID))
	return cloneUser(user), nil
}

// SignOut は現在のセッションを破棄し、購読者にnilを通知する。
func (p *Provider) SignOut(ctx context.Context) error {
	if err := p.checkUsable(); err != nil {
		return err
	}
	if err := p.setCurrent(ctx, nil); err != nil {
		return err
	}
	slog.Info("user signed out")
	return nil
}

// Subscribe はリスナーを登録し、直ちに現在の状態で一度呼び出す。
// 戻り値の関数で登録を解除する。
func (p *Provider) Subscribe(fn Listener) func() {
	if fn == nil || p.checkUsable() != nil {
		return func() {}
	}
	unsubscribe := p.observers.Subscribe(fn)
	fn(p.CurrentUser())
	return unsubscribe
}

// CurrentUser は現在ログイン中のユーザーを返す。未ログインの場合はnilを返す。
func (p *Provider) CurrentUser() *model.User {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneUser(p.current)
}

// Dispose は全購読者を解除し、以降の操作を拒否する。
func (p *Provider) Dispose() {
	p.mu.Lock()
	p.disposed = true
	p.mu.Unlock()
	p.observers.Dispose()
}

func (p *Provider) checkUsable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed {
		return ErrProviderDisposed
	}
	return nil
}

// setCurrent は現在のセッションを永続化してから購読者へ通知する。
func (p *Provider) setCurrent(ctx context.Context, user *model.User) error {
	p.mu.Lock()
	if user == nil {
		if err := p.kv.Delete(ctx, SessionKey); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to clear current session: %w", err)
		}
	} else {
		raw, err := json.Marshal(user)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to encode current session: %w", err)
		}
		if err := p.kv.Set(ctx, SessionKey, raw); err != nil {
			p.mu.Unlock()
			return fmt.Errorf("failed to save current session: %w", err)
		}
	}
	p.current = cloneUser(user)
	p.mu.Unlock()

	p.observers.Notify(user)
	return nil
}

// wait は指定時間だけ待機する。ctxがキャンセルされた場合はそのエラーを返す。
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
