// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/edumap/internal/assistant"
	"github.com/hitoshi/edumap/internal/auth"
	"github.com/hitoshi/edumap/internal/generation"
	"github.com/hitoshi/edumap/internal/library"
	"github.com/hitoshi/edumap/internal/middleware"
	"github.com/hitoshi/edumap/internal/model"
)

// maxRequestBodySize はJSONリクエストボディの上限。
// 画像のbase64を含む生成リクエストを受け付けられる大きさにする。
const maxRequestBodySize = 32 << 20

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// decodeJSON はリクエストボディをvにデコードする。
// 失敗時は400を書き込み、falseを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("invalid JSON body"))
		return false
	}
	return true
}

// writeAPIErrorResponse は統一エラーフォーマットでレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// requireUserID はコンテキストからユーザーIDを取得する。
// 取得できない場合は401を書き込み、falseを返す。
func requireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteAPIError(w, model.NewUnauthorizedError())
		return "", false
	}
	return userID, true
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	statusCode, apiErr := classifyError(err)
	if statusCode >= http.StatusInternalServerError {
		slog.Error("request failed",
			slog.Int("status", statusCode),
			slog.String("error", err.Error()),
		)
	}
	writeAPIErrorResponse(w, statusCode, apiErr)
}

// classifyError はエラーをHTTPステータスとAPIErrorに対応付ける。
func classifyError(err error) (int, *model.APIError) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return middleware.StatusForAPIError(apiErr), apiErr
	}

	var schemaErr *generation.SchemaError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, model.NewInvalidCredentialsError()
	case errors.Is(err, auth.ErrEmailAlreadyRegistered):
		return http.StatusConflict, model.NewEmailAlreadyRegisteredError()
	case errors.Is(err, auth.ErrMissingCredentials):
		return http.StatusBadRequest, model.NewInvalidRequestError("email and password are required")
	case errors.Is(err, generation.ErrInvalidRequest), errors.Is(err, generation.ErrInvalidImage):
		return http.StatusBadRequest, model.NewInvalidRequestError(err.Error())
	case errors.Is(err, generation.ErrUnsupportedModel):
		modelID := strings.TrimPrefix(err.Error(), generation.ErrUnsupportedModel.Error()+": ")
		return http.StatusBadRequest, model.NewUnsupportedModelError(modelID)
	case errors.As(err, &schemaErr):
		return http.StatusBadGateway, model.NewSchemaViolationError(schemaDetail(schemaErr))
	case errors.Is(err, generation.ErrMalformedResponse):
		return http.StatusBadGateway, model.NewMalformedResponseError()
	case errors.Is(err, generation.ErrGenerationFailed):
		return http.StatusBadGateway, model.NewGenerationFailedError()
	case errors.Is(err, library.ErrNotFound):
		return http.StatusNotFound, model.NewCurriculumNotFoundError("")
	case errors.Is(err, library.ErrInvalidRating):
		return http.StatusBadRequest, model.NewInvalidRequestError(err.Error())
	case errors.Is(err, library.ErrMissingID):
		return http.StatusBadRequest, model.NewInvalidRequestError(err.Error())
	case errors.Is(err, assistant.ErrEmptyMessage):
		return http.StatusBadRequest, model.NewInvalidRequestError(err.Error())
	case errors.Is(err, assistant.ErrUnavailable):
		return http.StatusServiceUnavailable, model.NewAssistantUnavailableError()
	}
	return http.StatusInternalServerError, model.NewInternalError()
}

// schemaDetail はスキーマ違反の要約を返す。
func schemaDetail(e *generation.SchemaError) string {
	switch len(e.Violations) {
	case 0:
		return "response does not match schema"
	case 1:
		return e.Violations[0].String()
	}
	return fmt.Sprintf("%s (and %d more)", e.Violations[0].String(), len(e.Violations)-1)
}
