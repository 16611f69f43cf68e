// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/repository"
)

// Directory はユーザー登録情報の取得と削除のインターフェース。auth.Registryが実装する。
type Directory interface {
	FindByID(ctx context.Context, uid string) (*model.User, error)
	Remove(ctx context.Context, uid string) error
}

// LibraryClearer はユーザーのカリキュラムを一括削除するインターフェース。library.Storeが実装する。
type LibraryClearer interface {
	Clear(ctx context.Context, userID string) error
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	directory   Directory
	sessionRepo repository.SessionRepository
	library     LibraryClearer
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	directory Directory,
	sessionRepo repository.SessionRepository,
	library LibraryClearer,
) *Service {
	return &Service{
		directory:   directory,
		sessionRepo: sessionRepo,
		library:     library,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: カリキュラム → セッション → 登録情報
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	user, err := s.directory.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. カリキュラムを削除
	if s.library != nil {
		if err := s.library.Clear(ctx, userID); err != nil {
			return fmt.Errorf("カリキュラムの削除に失敗しました: %w", err)
		}
	}

	// 2. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 3. 登録情報を削除
	if err := s.directory.Remove(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
