package auth

import "errors"

var (
	// ErrInvalidCredentials はメールアドレスとパスワードの組が一致しない場合のエラー。
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrEmailAlreadyRegistered は登録済みのメールアドレスでサインアップした場合のエラー。
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrMissingCredentials はメールアドレスまたはパスワードが空の場合のエラー。
	ErrMissingCredentials = errors.New("email and password are required")
	// ErrInvalidToken はセッショントークンの署名・形式が不正な場合のエラー。
	ErrInvalidToken = errors.New("invalid session token")
	// ErrProviderDisposed は破棄済みのProviderを操作した場合のエラー。
	ErrProviderDisposed = errors.New("auth provider disposed")
)
