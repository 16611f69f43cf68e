package handler

import (
	"context"
	"net/http"
)

// AssistantServiceInterface はアシスタントハンドラーが必要とするサービスインターフェース。
type AssistantServiceInterface interface {
	Ask(ctx context.Context, view, message string) (string, error)
}

// AssistantHandler はアプリ内アシスタントのHTTPハンドラー。
type AssistantHandler struct {
	service AssistantServiceInterface
}

// NewAssistantHandler はAssistantHandlerを生成する。
func NewAssistantHandler(service AssistantServiceInterface) *AssistantHandler {
	return &AssistantHandler{service: service}
}

// askRequest はアシスタントへの問い合わせのボディ。
type askRequest struct {
	View    string `json:"view"`
	Message string `json:"message"`
}

// askResponse はアシスタントの応答。
type askResponse struct {
	Reply string `json:"reply"`
}

// Ask はメッセージをアシスタントへ送り、応答を返す。
// POST /api/assistant
func (h *AssistantHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUserID(w, r); !ok {
		return
	}

	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reply, err := h.service.Ask(r.Context(), req.View, req.Message)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{Reply: reply})
}
