package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/edumap/internal/export"
	"github.com/hitoshi/edumap/internal/generation"
	"github.com/hitoshi/edumap/internal/library"
	"github.com/hitoshi/edumap/internal/model"
	"github.com/hitoshi/edumap/internal/resource"
)

// GeneratorInterface はカリキュラム生成を行うサービスインターフェース。
type GeneratorInterface interface {
	Generate(ctx context.Context, req *generation.Request) (*model.Curriculum, error)
}

// LibraryInterface はユーザーごとのカリキュラムライブラリのインターフェース。
type LibraryInterface interface {
	Search(ctx context.Context, userID string, f library.Filter) ([]model.Curriculum, error)
	Get(ctx context.Context, userID, id string) (*model.Curriculum, error)
	Save(ctx context.Context, userID string, c *model.Curriculum) (bool, error)
	Update(ctx context.Context, userID string, c *model.Curriculum) error
	Rate(ctx context.Context, userID, id string, rating int, feedback string) (*model.Curriculum, error)
	Delete(ctx context.Context, userID, id string) error
	Subjects(ctx context.Context, userID string) ([]string, error)
}

// RendererInterface はカリキュラムを文書に変換するインターフェース。
type RendererInterface interface {
	Render(c *model.Curriculum, format export.Format) ([]byte, error)
}

// CurriculumHandler はカリキュラムの生成・ライブラリ管理・エクスポートのHTTPハンドラー。
type CurriculumHandler struct {
	generator GeneratorInterface
	library   LibraryInterface
	renderer  RendererInterface
}

// NewCurriculumHandler はCurriculumHandlerを生成する。
func NewCurriculumHandler(generator GeneratorInterface, lib LibraryInterface, renderer RendererInterface) *CurriculumHandler {
	return &CurriculumHandler{
		generator: generator,
		library:   lib,
		renderer:  renderer,
	}
}

// generateRequest は生成リクエストのボディ。
// Saveがtrueの場合、生成結果をそのままライブラリへ保存する。
type generateRequest struct {
	generation.Request
	Save bool `json:"save"`
}

// curriculumListResponse は一覧レスポンス。
type curriculumListResponse struct {
	Curricula []model.Curriculum `json:"curricula"`
	Total     int                `json:"total"`
}

// ratingRequest は評価リクエストのボディ。
type ratingRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// resourceLinkResponse はリンク解決済みのリソース。
type resourceLinkResponse struct {
	Module      string             `json:"module"`
	Title       string             `json:"title"`
	Author      string             `json:"author,omitempty"`
	Type        model.ResourceType `json:"type"`
	Description string             `json:"description"`
	URL         string             `json:"url"`
	Derived     bool               `json:"derived"`
}

// Generate はフォーム入力からカリキュラムを生成する。
// POST /api/curricula/generate
func (h *CurriculumHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req generateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := h.generator.Generate(r.Context(), &req.Request)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if !req.Save {
		writeJSON(w, http.StatusOK, c)
		return
	}

	if _, err := h.library.Save(r.Context(), userID, c); err != nil {
		handleServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// List はライブラリを検索条件で絞り込んで返す。
// GET /api/curricula?query=...&subject=...&level=...
func (h *CurriculumHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	list, err := h.library.Search(r.Context(), userID, library.Filter{
		Query:   q.Get("query"),
		Subject: q.Get("subject"),
		Level:   q.Get("level"),
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if list == nil {
		list = []model.Curriculum{}
	}

	writeJSON(w, http.StatusOK, curriculumListResponse{Curricula: list, Total: len(list)})
}

// Save はカリキュラムをライブラリの先頭に追加する。同じIDが既にあれば何もしない。
// POST /api/curricula
func (h *CurriculumHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var c model.Curriculum
	if !decodeJSON(w, r, &c) {
		return
	}
	if c.ID == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("id is required"))
		return
	}

	added, err := h.library.Save(r.Context(), userID, &c)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	writeJSON(w, status, &c)
}

// Subjects は科目フィルタの選択肢を返す。
// GET /api/curricula/subjects
func (h *CurriculumHandler) Subjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	subjects, err := h.library.Subjects(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"subjects": subjects})
}

// Get はカリキュラムを1件返す。
// GET /api/curricula/{id}
func (h *CurriculumHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update はカリキュラムを置き換える。ボディのIDはURLのIDと一致しなければならない。
// PUT /api/curricula/{id}
func (h *CurriculumHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var c model.Curriculum
	if !decodeJSON(w, r, &c) {
		return
	}
	if c.ID == "" {
		c.ID = id
	}
	if c.ID != id {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("id does not match the URL"))
		return
	}

	if err := h.library.Update(r.Context(), userID, &c); err != nil {
		h.handleLibraryError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, &c)
}

// Delete はカリキュラムをライブラリから削除する。
// DELETE /api/curricula/{id}
func (h *CurriculumHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.library.Delete(r.Context(), userID, id); err != nil {
		h.handleLibraryError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Rate はカリキュラムに評価とフィードバックを記録する。
// PUT /api/curricula/{id}/rating
func (h *CurriculumHandler) Rate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	var req ratingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRatingError(req.Rating))
		return
	}

	c, err := h.library.Rate(r.Context(), userID, id, req.Rating, req.Feedback)
	if err != nil {
		h.handleLibraryError(w, id, err)
		return
	}

	slog.Info("curriculum rated",
		slog.String("user_id", userID),
		slog.String("curriculum_id", id),
		slog.Int("rating", req.Rating),
	)
	writeJSON(w, http.StatusOK, c)
}

// Resources はすべてのモジュールのリソースをリンク解決済みで返す。
// GET /api/curricula/{id}/resources
func (h *CurriculumHandler) Resources(w http.ResponseWriter, r *http.Request) {
	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	links := make([]resourceLinkResponse, 0)
	for _, m := range c.Modules {
		for _, res := range m.Resources {
			links = append(links, resourceLinkResponse{
				Module:      m.Title,
				Title:       res.Title,
				Author:      res.Author,
				Type:        res.Type,
				Description: res.Description,
				URL:         resource.Resolve(res, c.CourseTitle),
				Derived:     !resource.HasUsableURL(res),
			})
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"resources": links})
}

// Export はカリキュラムを文書としてダウンロードさせる。
// GET /api/curricula/{id}/export?format=md|html
func (h *CurriculumHandler) Export(w http.ResponseWriter, r *http.Request) {
	rawFormat := r.URL.Query().Get("format")
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidExportFormatError(rawFormat))
		return
	}

	c, ok := h.lookup(w, r)
	if !ok {
		return
	}

	body, err := h.renderer.Render(c, format)
	if err != nil {
		handleServiceError(w, fmt.Errorf("failed to render curriculum: %w", err))
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s%s"`, exportFileName(c.CourseTitle), format.Extension()))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// lookup はURLのIDでカリキュラムを取得する。失敗時はエラーレスポンスを書き込む。
func (h *CurriculumHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.Curriculum, bool) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return nil, false
	}
	id := chi.URLParam(r, "id")

	c, err := h.library.Get(r.Context(), userID, id)
	if err != nil {
		h.handleLibraryError(w, id, err)
		return nil, false
	}
	return c, true
}

func (h *CurriculumHandler) handleLibraryError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, library.ErrNotFound) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewCurriculumNotFoundError(id))
		return
	}
	handleServiceError(w, err)
}

// exportFileName はコース名からダウンロード用のファイル名を作る。
func exportFileName(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	name := strings.TrimSuffix(b.String(), "-")
	if name == "" {
		return "curriculum"
	}
	return name
}
