// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, generation, library, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeInvalidCredentials     = "INVALID_CREDENTIALS"
	ErrCodeEmailAlreadyRegistered = "EMAIL_ALREADY_REGISTERED"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeGenerationFailed       = "GENERATION_FAILED"
	ErrCodeMalformedResponse      = "MALFORMED_RESPONSE"
	ErrCodeSchemaViolation        = "SCHEMA_VIOLATION"
	ErrCodeUnsupportedModel       = "UNSUPPORTED_MODEL"
	ErrCodeCurriculumNotFound     = "CURRICULUM_NOT_FOUND"
	ErrCodeInvalidRating          = "INVALID_RATING"
	ErrCodeInvalidExportFormat    = "INVALID_EXPORT_FORMAT"
	ErrCodeAssistantUnavailable   = "ASSISTANT_UNAVAILABLE"
	ErrCodeCSRFTokenInvalid       = "CSRF_TOKEN_INVALID"
	ErrCodeRateLimitExceeded      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal               = "INTERNAL_ERROR"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewInvalidCredentialsError はメールアドレスまたはパスワード不一致エラーを生成する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password.",
		Category: "auth",
		Action:   "メールアドレスとパスワードを確認してください。",
	}
}

// NewEmailAlreadyRegisteredError はメールアドレス重複エラーを生成する。
func NewEmailAlreadyRegisteredError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailAlreadyRegistered,
		Message:  "Email already registered.",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewGenerationFailedError はカリキュラム生成失敗エラーを生成する。
// 原因の詳細はログにのみ記録し、ユーザーには一般的なメッセージを返す。
func NewGenerationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeGenerationFailed,
		Message:  "EduMap generation failed. Please check connection and try again.",
		Category: "generation",
		Action:   "接続を確認し、しばらく待ってから再度お試しください。",
	}
}

// NewMalformedResponseError は生成モデルの応答がJSONとして解釈できない場合のエラーを生成する。
func NewMalformedResponseError() *APIError {
	return &APIError{
		Code:     ErrCodeMalformedResponse,
		Message:  "生成モデルの応答を解析できませんでした。",
		Category: "generation",
		Action:   "もう一度生成をお試しください。",
	}
}

// NewSchemaViolationError は生成モデルの応答がスキーマに適合しない場合のエラーを生成する。
func NewSchemaViolationError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeSchemaViolation,
		Message:  fmt.Sprintf("生成されたカリキュラムが不完全です: %s", detail),
		Category: "generation",
		Action:   "もう一度生成をお試しください。別のモデルを選択すると改善する場合があります。",
	}
}

// NewUnsupportedModelError は未対応モデル指定エラーを生成する。
func NewUnsupportedModelError(modelID string) *APIError {
	return &APIError{
		Code:     ErrCodeUnsupportedModel,
		Message:  fmt.Sprintf("未対応のモデルです: %s", modelID),
		Category: "validation",
		Action:   "モデル一覧から選択してください。",
	}
}

// NewCurriculumNotFoundError はカリキュラム未検出エラーを生成する。
func NewCurriculumNotFoundError(id string) *APIError {
	return &APIError{
		Code:     ErrCodeCurriculumNotFound,
		Message:  fmt.Sprintf("指定されたカリキュラムが見つかりません: %s", id),
		Category: "library",
		Action:   "カリキュラムIDを確認してください。",
	}
}

// NewInvalidRatingError は評価値が範囲外の場合のエラーを生成する。
func NewInvalidRatingError(rating int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRating,
		Message:  fmt.Sprintf("無効な評価値です: %d", rating),
		Category: "validation",
		Action:   "評価は1から5の整数で指定してください。",
	}
}

// NewInvalidExportFormatError はエクスポート形式不正エラーを生成する。
func NewInvalidExportFormatError(format string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidExportFormat,
		Message:  fmt.Sprintf("無効なエクスポート形式です: %s", format),
		Category: "validation",
		Action:   "形式には md または html を指定してください。",
	}
}

// NewAssistantUnavailableError はアシスタント呼び出し失敗エラーを生成する。
func NewAssistantUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeAssistantUnavailable,
		Message:  "EduMap connection lost. Please check your network.",
		Category: "system",
		Action:   "ネットワーク接続を確認してください。",
	}
}

// NewCSRFTokenInvalidError はCSRFトークン検証失敗エラーを生成する。
func NewCSRFTokenInvalidError() *APIError {
	return &APIError{
		Code:     ErrCodeCSRFTokenInvalid,
		Message:  "CSRF token validation failed.",
		Category: "auth",
		Action:   "ページを再読み込みしてから再度お試しください。",
	}
}

// NewRateLimitExceededError はレート制限超過エラーを生成する。
func NewRateLimitExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimitExceeded,
		Message:  "Too many requests. Please try again later.",
		Category: "system",
		Action:   "Retry-Afterヘッダーの秒数だけ待ってから再度お試しください。",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログのみに記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
