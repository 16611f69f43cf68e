// Package auth はローカル認証プロバイダーとサーバー用のセッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/repository"
)

// EventRecorder は認証イベントの記録先。metrics.Collectorが実装する。
type EventRecorder interface {
	RecordAuthEvent(action, outcome string)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Login はサインイン・サインアップの結果。
type Login struct {
	User    *model.User
	Session *model.Session
	Token   string
}

// Service はHTTPサーバー向けの認証ロジックを提供する。
// Providerと同じRegistryを共有し、クライアントごとのセッションをリポジトリに保持する。
type Service struct {
	registry    *Registry
	sessionRepo repository.SessionRepository
	signer      *TokenSigner
	recorder    EventRecorder
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	registry *Registry,
	sessionRepo repository.SessionRepository,
	signer *TokenSigner,
	config ServiceConfig,
) *Service {
	return &Service{
		registry:    registry,
		sessionRepo: sessionRepo,
		signer:      signer,
		config:      config,
	}
}

// SetEventRecorder は認証イベントの記録先を設定する。
func (s *Service) SetEventRecorder(r EventRecorder) {
	s.recorder = r
}

// SignUp は新規ユーザーを登録し、セッションを発行する。
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (*Login, error) {
	user, err := s.registry.Register(ctx, email, password, displayName)
	if err != nil {
		s.record("signup", outcomeOf(err))
		return nil, err
	}

	login, err := s.issue(ctx, user)
	if err != nil {
		s.record("signup", "error")
		return nil, err
	}

	s.record("signup", "success")
	slog.Info("new user created",
		slog.String("user_id", user.UID),
		slog.String("email", user.Email),
	)
	return login, nil
}

// SignIn はメールアドレスとパスワードを検証し、セッションを発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*Login, error) {
	user, err := s.registry.Authenticate(ctx, email, password)
	if err != nil {
		s.record("signin", outcomeOf(err))
		return nil, err
	}

	login, err := s.issue(ctx, user)
	if err != nil {
		s.record("signin", "error")
		return nil, err
	}

	s.record("signin", "success")
	slog.Info("user signed in", slog.String("user_id", user.UID))
	return login, nil
}

// SignOut はセッションを破棄する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	s.record("signout", "success")
	slog.Info("user signed out", slog.String("session_id", sessionID))
	return nil
}

// ResolveSession はCookieのトークンから有効なセッションを取得する。
// トークンが不正、またはセッションが存在しない・期限切れの場合はnilを返す。
func (s *Service) ResolveSession(ctx context.Context, token string) (*model.Session, error) {
	sessionID, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	return session, nil
}

// GetCurrentUser はユーザーIDからユーザー情報を取得する。
func (s *Service) GetCurrentUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.registry.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

// issue はセッションを作成・永続化し、署名済みトークンを返す。
func (s *Service) issue(ctx context.Context, user *model.User) (*Login, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := time.Now()
	session := &model.Session{
		ID:        sessionID,
		UserID:    user.UID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	token, err := s.signer.Sign(session)
	if err != nil {
		return nil, err
	}

	return &Login{User: user, Session: session, Token: token}, nil
}

func (s *Service) record(action, outcome string) {
	if s.recorder != nil {
		s.recorder.RecordAuthEvent(action, outcome)
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrEmailAlreadyRegistered), errors.Is(err, ErrMissingCredentials):
		return "rejected"
	default:
		return "error"
	}
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
