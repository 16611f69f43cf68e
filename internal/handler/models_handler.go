package handler

import "net/http"

// ModelInfo は選択可能な生成モデル。
type ModelInfo struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// ModelCatalog は選択可能なモデルの一覧と既定モデル。
type ModelCatalog struct {
	Default string      `json:"defaultModel"`
	Models  []ModelInfo `json:"models"`
}

// ModelsHandler はモデル一覧を返すハンドラーを生成する。
// GET /api/models
func ModelsHandler(catalog ModelCatalog) http.HandlerFunc {
	if catalog.Models == nil {
		catalog.Models = []ModelInfo{}
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, catalog)
	}
}
