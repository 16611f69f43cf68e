// Package assistant はアプリ内アシスタントとの対話を提供する。
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/edumap/internal/generation"
)

// FallbackReply は応答が空だった場合に返す定型文。
const FallbackReply = "I apologize, but I encountered an error. How else can I assist?"

// DefaultView は表示中の画面が不明な場合の画面名。
const DefaultView = "dashboard"

var (
	// ErrEmptyMessage はメッセージが空の場合のエラー。
	ErrEmptyMessage = errors.New("assistant: message is empty")
	// ErrUnavailable は生成バックエンドの呼び出しに失敗した場合のエラー。
	ErrUnavailable = errors.New("assistant: backend unavailable")
)

// Recorder はアシスタント呼び出しの結果の記録先。
type Recorder interface {
	RecordAssistant(outcome string)
}

// Service はアシスタントへの問い合わせを行う。
type Service struct {
	backend  generation.Backend
	model    string
	recorder Recorder
}

// NewService はServiceを生成する。modelは常に使用するモデルID。
func NewService(backend generation.Backend, model string) *Service {
	return &Service{backend: backend, model: model}
}

// SetRecorder は結果の記録先を設定する。
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// Prompt は表示中の画面名とユーザーのメッセージからアシスタントへの指示文を組み立てる。
func Prompt(view, message string) string {
	if strings.TrimSpace(view) == "" {
		view = DefaultView
	}
	return fmt.Sprintf("You are EduMap AI, an expert academic assistant. "+
		"The user is currently in the %q view of the application. "+
		"Help them with their questions about curriculum design, academic standards, industry alignment, or using the app features. "+
		"Be concise and professional.\nUser says: %s", view, message)
}

// Ask はメッセージを1回だけ送信して応答を返す。
// 応答が空の場合はFallbackReplyを返し、バックエンドの失敗はErrUnavailableとして返す。
func (s *Service) Ask(ctx context.Context, view, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	reply, err := s.backend.Generate(ctx, generation.Call{
		Model:  s.model,
		Prompt: Prompt(view, message),
	})
	if err != nil {
		s.record("failed")
		slog.Error("assistant request failed",
			slog.String("view", view),
			slog.String("error", err.Error()),
		)
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if strings.TrimSpace(reply) == "" {
		s.record("empty")
		return FallbackReply, nil
	}
	s.record("success")
	return reply, nil
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.RecordAssistant(outcome)
	}
}
