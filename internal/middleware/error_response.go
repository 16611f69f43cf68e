package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/hitoshi/edumap/internal/model"
)

// 生成・アシスタント系の失敗時にクライアントへ示す再試行までの秒数
const (
	generationRetryAfterSec = 5
	assistantRetryAfterSec  = 30
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法に加え、同じリクエストを再送して回復し得るかを含む。
type ErrorResponseBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Category  string `json:"category"`
	Action    string `json:"action"`
	Retryable bool   `json:"retryable"`
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
// 生成モデルやアシスタントの失敗では、呼び出し側が未設定ならRetry-Afterを付ける。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	if sec := retryAfter(apiErr); sec > 0 && h.Get("Retry-After") == "" {
		h.Set("Retry-After", strconv.Itoa(sec))
	}
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		Category:  apiErr.Category,
		Action:    apiErr.Action,
		Retryable: IsRetryable(apiErr),
	})
}

// WriteAPIError はエラーコードから決まるHTTPステータスで統一レスポンスを書き込む。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	WriteErrorResponse(w, StatusForAPIError(apiErr), apiErr)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

// StatusForAPIError はAPIErrorコードに対応するHTTPステータスを返す。
// 未知のコードはカテゴリで判断し、それも不明なら500とする。
func StatusForAPIError(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidRequest, model.ErrCodeInvalidRating,
		model.ErrCodeInvalidExportFormat, model.ErrCodeUnsupportedModel:
		return http.StatusBadRequest
	case model.ErrCodeEmailAlreadyRegistered:
		return http.StatusConflict
	case model.ErrCodeUserNotFound, model.ErrCodeCurriculumNotFound:
		return http.StatusNotFound
	case model.ErrCodeGenerationFailed, model.ErrCodeMalformedResponse, model.ErrCodeSchemaViolation:
		return http.StatusBadGateway
	case model.ErrCodeAssistantUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeCSRFTokenInvalid:
		return http.StatusForbidden
	case model.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	}

	switch apiErr.Category {
	case "auth":
		return http.StatusUnauthorized
	case "validation":
		return http.StatusBadRequest
	case "library":
		return http.StatusNotFound
	case "generation":
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// IsRetryable は同じリクエストを再送すれば成功し得るエラーかを返す。
// 生成カテゴリは全て再試行可能。入力や認証の誤りは再送しても変わらない。
func IsRetryable(apiErr *model.APIError) bool {
	switch apiErr.Code {
	case model.ErrCodeAssistantUnavailable, model.ErrCodeRateLimitExceeded, model.ErrCodeInternal:
		return true
	}
	return apiErr.Category == "generation"
}

func retryAfter(apiErr *model.APIError) int {
	switch {
	case apiErr.Code == model.ErrCodeAssistantUnavailable:
		return assistantRetryAfterSec
	case apiErr.Category == "generation":
		return generationRetryAfterSec
	}
	return 0
}
