package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/edumap/internal/auth"
	"github.com/hitoshi/edumap/internal/middleware"
	"github.com/hitoshi/edumap/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	SignUp(ctx context.Context, email, password, displayName string) (*auth.Login, error)
	SignIn(ctx context.Context, email, password string) (*auth.Login, error)
	SignOut(ctx context.Context, sessionID string) error
	ResolveSession(ctx context.Context, token string) (*model.Session, error)
	GetCurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はメールアドレス・パスワード認証のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// signUpRequest はサインアップのリクエストボディ。
type signUpRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// signInRequest はサインインのリクエストボディ。
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp は新規ユーザーを登録し、セッションCookieを設定する。
// POST /auth/signup
func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	login, err := h.service.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	setSessionCookie(w, h.config, login.Token, h.config.SessionMaxAge)
	writeJSON(w, http.StatusCreated, login.User)
}

// SignIn はメールアドレスとパスワードを検証し、セッションCookieを設定する。
// POST /auth/signin
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	login, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	setSessionCookie(w, h.config, login.Token, h.config.SessionMaxAge)
	writeJSON(w, http.StatusOK, login.User)
}

// SignOut はセッションを破棄する。Cookieが無くても成功とする。
// POST /auth/signout
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		session, resolveErr := h.service.ResolveSession(r.Context(), cookie.Value)
		if resolveErr != nil {
			slog.Error("failed to resolve session on signout", slog.String("error", resolveErr.Error()))
		}
		if session != nil {
			if signOutErr := h.service.SignOut(r.Context(), session.ID); signOutErr != nil {
				// 失敗してもCookieはクリアする
				slog.Error("failed to sign out", slog.String("error", signOutErr.Error()))
			}
		}
	}

	clearSessionCookie(w, h.config)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のログインユーザー情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.service.GetCurrentUser(r.Context(), userID)
	if err != nil {
		slog.Warn("failed to get current user",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func setSessionCookie(w http.ResponseWriter, config AuthHandlerConfig, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, config AuthHandlerConfig) {
	setSessionCookie(w, config, "", -1)
}
