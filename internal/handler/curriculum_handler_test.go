package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"

	"github.com/hitoshi/edumap/internal/export"
	"github.com/hitoshi/edumap/internal/generation"
	"github.com/hitoshi/edumap/internal/library"
	"github.com/hitoshi/edumap/internal/middleware"
	"github.com/hitoshi/edumap/internal/model"
)

// --- モック定義 ---

type mockGenerator struct {
	generateFn func(ctx context.Context, req *generation.Request) (*model.Curriculum, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req *generation.Request) (*model.Curriculum, error) {
	if m.generateFn != nil {
		return m.generateFn(ctx, req)
	}
	return nil, nil
}

type mockLibrary struct {
	searchFn   func(ctx context.Context, userID string, f library.Filter) ([]model.Curriculum, error)
	getFn      func(ctx context.Context, userID, id string) (*model.Curriculum, error)
	saveFn     func(ctx context.Context, userID string, c *model.Curriculum) (bool, error)
	updateFn   func(ctx context.Context, userID string, c *model.Curriculum) error
	rateFn     func(ctx context.Context, userID, id string, rating int, feedback string) (*model.Curriculum, error)
	deleteFn   func(ctx context.Context, userID, id string) error
	subjectsFn func(ctx context.Context, userID string) ([]string, error)
}

func (m *mockLibrary) Search(ctx context.Context, userID string, f library.Filter) ([]model.Curriculum, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, userID, f)
	}
	return nil, nil
}

func (m *mockLibrary) Get(ctx context.Context, userID, id string) (*model.Curriculum, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID, id)
	}
	return nil, library.ErrNotFound
}

func (m *mockLibrary) Save(ctx context.Context, userID string, c *model.Curriculum) (bool, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, userID, c)
	}
	return true, nil
}

func (m *mockLibrary) Update(ctx context.Context, userID string, c *model.Curriculum) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, c)
	}
	return nil
}

func (m *mockLibrary) Rate(ctx context.Context, userID, id string, rating int, feedback string) (*model.Curriculum, error) {
	if m.rateFn != nil {
		return m.rateFn(ctx, userID, id, rating, feedback)
	}
	return nil, nil
}

func (m *mockLibrary) Delete(ctx context.Context, userID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, id)
	}
	return nil
}

func (m *mockLibrary) Subjects(ctx context.Context, userID string) ([]string, error) {
	if m.subjectsFn != nil {
		return m.subjectsFn(ctx, userID)
	}
	return []string{library.All}, nil
}

type mockRenderer struct {
	renderFn func(c *model.Curriculum, format export.Format) ([]byte, error)
}

func (m *mockRenderer) Render(c *model.Curriculum, format export.Format) ([]byte, error) {
	if m.renderFn != nil {
		return m.renderFn(c, format)
	}
	return []byte("# " + c.CourseTitle), nil
}

// --- テストヘルパー ---

// withUserID はテスト用にリクエストコンテキストにユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// withChiURLParam はテスト用にchiのURLパラメータを注入するヘルパー。
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return map[string]string{
		"code":      body.Code,
		"message":   body.Message,
		"category":  body.Category,
		"action":    body.Action,
		"retryable": strconv.FormatBool(body.Retryable),
	}
}

// sampleCurriculum はテスト用のカリキュラムを返す。
func sampleCurriculum(id string) *model.Curriculum {
	return &model.Curriculum{
		ID:             id,
		OriginalID:     id,
		Version:        1,
		CourseTitle:    "Applied Topology",
		Description:    "Shapes of data.",
		TargetAudience: "Undergraduate",
		Difficulty:     model.DifficultyIntermediate,
		Modules: []model.Module{
			{
				Title:    "Spaces",
				Duration: "5 Hours",
				Resources: []model.Resource{
					{Title: "Topology", Author: "James Munkres", URL: "#", Type: model.ResourceReading, Description: "Classic text"},
					{Title: "Homepage", URL: "https://example.com/topology", Type: model.ResourceTool, Description: "Course site"},
				},
			},
		},
		CreatedAt: "2026-03-01T09:30:00.000Z",
		ModelUsed: "gemini-3-flash-preview",
	}
}

func newCurriculumRequest(method, target, body, userID string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return withUserID(req, userID)
}

// --- POST /api/curricula/generate テスト ---

func TestCurriculumHandler_Generate_ReturnsCurriculumWithoutSaving(t *testing.T) {
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, req *generation.Request) (*model.Curriculum, error) {
			if req.Title != "Applied Topology" {
				t.Errorf("Title = %q, want %q", req.Title, "Applied Topology")
			}
			if req.Difficulty != model.DifficultyIntermediate {
				t.Errorf("Difficulty = %q, want %q", req.Difficulty, model.DifficultyIntermediate)
			}
			if len(req.SourceImages) != 1 {
				t.Errorf("len(SourceImages) = %d, want 1", len(req.SourceImages))
			}
			return sampleCurriculum("c-1"), nil
		},
	}
	lib := &mockLibrary{
		saveFn: func(ctx context.Context, userID string, c *model.Curriculum) (bool, error) {
			t.Error("Save should not be called when save is false")
			return false, nil
		},
	}
	h := NewCurriculumHandler(gen, lib, &mockRenderer{})

	body := `{"title":"Applied Topology","subject":"Mathematics","level":"Undergraduate",` +
		`"difficulty":"Intermediate","goals":"Persistent homology","sourceImages":["aGVsbG8="]}`
	req := newCurriculumRequest(http.MethodPost, "/api/curricula/generate", body, "user-1")
	w := httptest.NewRecorder()

	h.Generate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got model.Curriculum
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != "c-1" {
		t.Errorf("id = %q, want %q", got.ID, "c-1")
	}
}

func TestCurriculumHandler_Generate_SaveFlagStoresResult(t *testing.T) {
	var savedFor string
	gen := &mockGenerator{
		generateFn: func(ctx context.Context, req *generation.Request) (*model.Curriculum, error) {
			return sampleCurriculum("c-1"), nil
		},
	}
	lib := &mockLibrary{
		saveFn: func(ctx context.Context, userID string, c *model.Curriculum) (bool, error) {
			savedFor = userID
			return true, nil
		},
	}
	h := NewCurriculumHandler(gen, lib, &mockRenderer{})

	req := newCurriculumRequest(http.MethodPost, "/api/curricula/generate", `{"title":"x","save":true}`, "user-1")
	w := httptest.NewRecorder()

	h.Generate(w, req)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d, want %d", w.Code, http.StatusCreated)
	}
	if savedFor != "user-1" {
		t.Errorf("saved for %q, want %q", savedFor, "user-1")
	}
}

func TestCurriculumHandler_Generate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "入力不足は400",
			err:        fmt.Errorf("%w: missing goals", generation.ErrInvalidRequest),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInvalidRequest,
		},
		{
			name:       "未対応モデルは400",
			err:        fmt.Errorf("%w: %s", generation.ErrUnsupportedModel, "gpt-x"),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeUnsupportedModel,
		},
		{
			name:       "バックエンド失敗は502",
			err:        fmt.Errorf("%w: connection refused", generation.ErrGenerationFailed),
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeGenerationFailed,
		},
		{
			name:       "JSONでない応答は502",
			err:        fmt.Errorf("%w: unexpected token", generation.ErrMalformedResponse),
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeMalformedResponse,
		},
		{
			name: "スキーマ違反は502",
			err: &generation.SchemaError{Violations: []generation.Violation{
				{Path: "modules", Reason: "must not be empty"},
			}},
			wantStatus: http.StatusBadGateway,
			wantCode:   model.ErrCodeSchemaViolation,
		},
		{
			name:       "画像不正は400",
			err:        fmt.Errorf("%w: bad base64", generation.ErrInvalidImage),
			wantStatus: http.StatusBadRequest,
			wantCode:   model.ErrCodeInvalidRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{
				generateFn: func(ctx context.Context, req *generation.Request) (*model.Curriculum, error) {
					return nil, tt.err
				},
			}
			h := NewCurriculumHandler(gen, &mockLibrary{}, &mockRenderer{})

			req := newCurriculumRequest(http.MethodPost, "/api/curricula/generate", `{"title":"x"}`, "user-1")
			w := httptest.NewRecorder()

			h.Generate(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			result := parseAPIErrorResponse(t, w)
			if result["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", result["code"], tt.wantCode)
			}
			// 生成モデル側の失敗だけが再試行の対象
			wantRetryable := tt.wantStatus == http.StatusBadGateway
			if result["retryable"] != strconv.FormatBool(wantRetryable) {
				t.Errorf("retryable = %s, want %v", result["retryable"], wantRetryable)
			}
			if got := w.Header().Get("Retry-After"); (got != "") != wantRetryable {
				t.Errorf("Retry-After = %q, want set only for retryable failures", got)
			}
		})
	}
}

func TestCurriculumHandler_Generate_InvalidJSON_ReturnsBadRequest(t *testing.T) {
	h := NewCurriculumHandler(&mockGenerator{}, &mockLibrary{}, &mockRenderer{})

	req := newCurriculumRequest(http.MethodPost, "/api/curricula/generate", `{invalid`, "user-1")
	w := httptest.NewRecorder()

	h.Generate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCurriculumHandler_Generate_NoUserID_ReturnsUnauthorized(t *testing.T) {
	h := NewCurriculumHandler(&mockGenerator{}, &mockLibrary{}, &mockRenderer{})

	req := httptest.NewRequest(http.MethodPost, "/api/curricula/generate", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()

	h.Generate(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- GET /api/curricula テスト ---

func TestCurriculumHandler_List_PassesFilter(t *testing.T) {
	lib := &mockLibrary{
		searchFn: func(ctx context.Context, userID string, f library.Filter) ([]model.Curriculum, error) {
			want := library.Filter{Query: "topo", Subject: "Applied", Level: "Undergraduate"}
			if diff := cmp.Diff(want, f); diff != "" {
				t.Errorf("filter mismatch (-want +got):\n%s", diff)
			}
			return []model.Curriculum{*sampleCurriculum("c-1")}, nil
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

	req := newCurriculumRequest(http.MethodGet, "/api/curricula?query=topo&subject=Applied&level=Undergraduate", "", "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got curriculumListResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Total != 1 || len(got.Curricula) != 1 {
		t.Errorf("total = %d, len = %d, want 1", got.Total, len(got.Curricula))
	}
}

func TestCurriculumHandler_List_EmptyLibraryReturnsEmptyArray(t *testing.T) {
	h := NewCurriculumHandler(&mockGenerator{}, &mockLibrary{}, &mockRenderer{})

	req := newCurriculumRequest(http.MethodGet, "/api/curricula", "", "user-1")
	w := httptest.NewRecorder()

	h.List(w, req)

	if !strings.Contains(w.Body.String(), `"curricula":[]`) {
		t.Errorf("body = %s, want empty curricula array", w.Body.String())
	}
}

// --- POST /api/curricula テスト ---

func TestCurriculumHandler_Save(t *testing.T) {
	tests := []struct {
		name       string
		added      bool
		wantStatus int
	}{
		{name: "新規追加は201", added: true, wantStatus: http.StatusCreated},
		{name: "保存済みは200", added: false, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := &mockLibrary{
				saveFn: func(ctx context.Context, userID string, c *model.Curriculum) (bool, error) {
					if c.ID != "c-1" {
						t.Errorf("ID = %q, want %q", c.ID, "c-1")
					}
					return tt.added, nil
				},
			}
			h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

			body, _ := json.Marshal(sampleCurriculum("c-1"))
			req := newCurriculumRequest(http.MethodPost, "/api/curricula", string(body), "user-1")
			w := httptest.NewRecorder()

			h.Save(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestCurriculumHandler_Save_MissingID_ReturnsBadRequest(t *testing.T) {
	h := NewCurriculumHandler(&mockGenerator{}, &mockLibrary{}, &mockRenderer{})

	req := newCurriculumRequest(http.MethodPost, "/api/curricula", `{"courseTitle":"x"}`, "user-1")
	w := httptest.NewRecorder()

	h.Save(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// --- GET /api/curricula/{id} テスト ---

func TestCurriculumHandler_Get_NotFound(t *testing.T) {
	h := NewCurriculumHandler(&mockGenerator{}, &mockLibrary{}, &mockRenderer{})

	req := newCurriculumRequest(http.MethodGet, "/api/curricula/missing", "", "user-1")
	req = withChiURLParam(req, "id", "missing")
	w := httptest.NewRecorder()

	h.Get(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeCurriculumNotFound {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeCurriculumNotFound)
	}
	if !strings.Contains(result["message"], "missing") {
		t.Errorf("message = %q, want it to name the id", result["message"])
	}
}

// --- PUT /api/curricula/{id} テスト ---

func TestCurriculumHandler_Update_IDMismatch_ReturnsBadRequest(t *testing.T) {
	lib := &mockLibrary{
		updateFn: func(ctx context.Context, userID string, c *model.Curriculum) error {
			t.Error("Update should not be called on id mismatch")
			return nil
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

	body, _ := json.Marshal(sampleCurriculum("c-2"))
	req := newCurriculumRequest(http.MethodPut, "/api/curricula/c-1", string(body), "user-1")
	req = withChiURLParam(req, "id", "c-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestCurriculumHandler_Update_FillsIDFromURL(t *testing.T) {
	var updated *model.Curriculum
	lib := &mockLibrary{
		updateFn: func(ctx context.Context, userID string, c *model.Curriculum) error {
			updated = c
			return nil
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

	req := newCurriculumRequest(http.MethodPut, "/api/curricula/c-1", `{"courseTitle":"Renamed"}`, "user-1")
	req = withChiURLParam(req, "id", "c-1")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if updated == nil || updated.ID != "c-1" || updated.CourseTitle != "Renamed" {
		t.Errorf("updated = %+v, want id c-1 titled Renamed", updated)
	}
}

func TestCurriculumHandler_Update_NotFound(t *testing.T) {
	lib := &mockLibrary{
		updateFn: func(ctx context.Context, userID string, c *model.Curriculum) error {
			return library.ErrNotFound
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

	req := newCurriculumRequest(http.MethodPut, "/api/curricula/c-9", `{"id":"c-9"}`, "user-1")
	req = withChiURLParam(req, "id", "c-9")
	w := httptest.NewRecorder()

	h.Update(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// --- DELETE /api/curricula/{id} テスト ---

func TestCurriculumHandler_Delete(t *testing.T) {
	var deletedID string
	lib := &mockLibrary{
		deleteFn: func(ctx context.Context, userID, id string) error {
			deletedID = id
			return nil
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

	req := newCurriculumRequest(http.MethodDelete, "/api/curricula/c-1", "", "user-1")
	req = withChiURLParam(req, "id", "c-1")
	w := httptest.NewRecorder()

	h.Delete(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNoContent)
	}
	if deletedID != "c-1" {
		t.Errorf("deleted id = %q, want %q", deletedID, "c-1")
	}
}

// --- PUT /api/curricula/{id}/rating テスト ---

func TestCurriculumHandler_Rate(t *testing.T) {
	lib := &mockLibrary{
		rateFn: func(ctx context.Context, userID, id string, rating int, feedback string) (*model.Curriculum, error) {
			if rating != 4 || feedback != "Solid" {
				t.Errorf("rating = %d, feedback = %q, want 4, %q", rating, feedback, "Solid")
			}
			c := sampleCurriculum(id)
			c.Rating = &rating
			c.Feedback = feedback
			return c, nil
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

	req := newCurriculumRequest(http.MethodPut, "/api/curricula/c-1/rating", `{"rating":4,"feedback":"Solid"}`, "user-1")
	req = withChiURLParam(req, "id", "c-1")
	w := httptest.NewRecorder()

	h.Rate(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got model.Curriculum
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.Rating == nil || *got.Rating != 4 {
		t.Errorf("rating = %v, want 4", got.Rating)
	}
}

func TestCurriculumHandler_Rate_OutOfRange_ReturnsBadRequest(t *testing.T) {
	for _, rating := range []int{0, 6, -1} {
		t.Run(fmt.Sprintf("rating=%d", rating), func(t *testing.T) {
			lib := &mockLibrary{
				rateFn: func(ctx context.Context, userID, id string, rating int, feedback string) (*model.Curriculum, error) {
					t.Error("Rate should not be called for out-of-range ratings")
					return nil, nil
				},
			}
			h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

			req := newCurriculumRequest(http.MethodPut, "/api/curricula/c-1/rating", fmt.Sprintf(`{"rating":%d}`, rating), "user-1")
			req = withChiURLParam(req, "id", "c-1")
			w := httptest.NewRecorder()

			h.Rate(w, req)

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
			result := parseAPIErrorResponse(t, w)
			if result["code"] != model.ErrCodeInvalidRating {
				t.Errorf("code = %q, want %q", result["code"], model.ErrCodeInvalidRating)
			}
		})
	}
}

// --- GET /api/curricula/{id}/resources テスト ---

func TestCurriculumHandler_Resources_ResolvesLinks(t *testing.T) {
	lib := &mockLibrary{
		getFn: func(ctx context.Context, userID, id string) (*model.Curriculum, error) {
			return sampleCurriculum(id), nil
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, &mockRenderer{})

	req := newCurriculumRequest(http.MethodGet, "/api/curricula/c-1/resources", "", "user-1")
	req = withChiURLParam(req, "id", "c-1")
	w := httptest.NewRecorder()

	h.Resources(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var got struct {
		Resources []resourceLinkResponse `json:"resources"`
	}
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	want := []resourceLinkResponse{
		{
			Module:      "Spaces",
			Title:       "Topology",
			Author:      "James Munkres",
			Type:        model.ResourceReading,
			Description: "Classic text",
			URL:         "https://scholar.google.com/scholar?q=Topology%20James%20Munkres%20Classic%20text",
			Derived:     true,
		},
		{
			Module:      "Spaces",
			Title:       "Homepage",
			Type:        model.ResourceTool,
			Description: "Course site",
			URL:         "https://example.com/topology",
			Derived:     false,
		},
	}
	if diff := cmp.Diff(want, got.Resources); diff != "" {
		t.Errorf("resources mismatch (-want +got):\n%s", diff)
	}
}

// --- GET /api/curricula/{id}/export テスト ---

func TestCurriculumHandler_Export_SetsDownloadHeaders(t *testing.T) {
	lib := &mockLibrary{
		getFn: func(ctx context.Context, userID, id string) (*model.Curriculum, error) {
			return sampleCurriculum(id), nil
		},
	}
	renderer := &mockRenderer{
		renderFn: func(c *model.Curriculum, format export.Format) ([]byte, error) {
			if format != export.FormatHTML {
				t.Errorf("format = %q, want %q", format, export.FormatHTML)
			}
			return []byte("<html></html>"), nil
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, renderer)

	req := newCurriculumRequest(http.MethodGet, "/api/curricula/c-1/export?format=html", "", "user-1")
	req = withChiURLParam(req, "id", "c-1")
	w := httptest.NewRecorder()

	h.Export(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := w.Header().Get("Content-Type"); got != export.FormatHTML.ContentType() {
		t.Errorf("Content-Type = %q, want %q", got, export.FormatHTML.ContentType())
	}
	wantDisposition := `attachment; filename="applied-topology.html"`
	if got := w.Header().Get("Content-Disposition"); got != wantDisposition {
		t.Errorf("Content-Disposition = %q, want %q", got, wantDisposition)
	}
	if w.Body.String() != "<html></html>" {
		t.Errorf("body = %q, want rendered document", w.Body.String())
	}
}

func TestCurriculumHandler_Export_UnknownFormat_ReturnsBadRequest(t *testing.T) {
	h := NewCurriculumHandler(&mockGenerator{}, &mockLibrary{}, &mockRenderer{})

	req := newCurriculumRequest(http.MethodGet, "/api/curricula/c-1/export?format=pdf", "", "user-1")
	req = withChiURLParam(req, "id", "c-1")
	w := httptest.NewRecorder()

	h.Export(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	result := parseAPIErrorResponse(t, w)
	if result["code"] != model.ErrCodeInvalidExportFormat {
		t.Errorf("code = %q, want %q", result["code"], model.ErrCodeInvalidExportFormat)
	}
}

func TestCurriculumHandler_Export_RenderFailure_ReturnsInternalServerError(t *testing.T) {
	lib := &mockLibrary{
		getFn: func(ctx context.Context, userID, id string) (*model.Curriculum, error) {
			return sampleCurriculum(id), nil
		},
	}
	renderer := &mockRenderer{
		renderFn: func(c *model.Curriculum, format export.Format) ([]byte, error) {
			return nil, errors.New("template exploded")
		},
	}
	h := NewCurriculumHandler(&mockGenerator{}, lib, renderer)

	req := newCurriculumRequest(http.MethodGet, "/api/curricula/c-1/export", "", "user-1")
	req = withChiURLParam(req, "id", "c-1")
	w := httptest.NewRecorder()

	h.Export(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestExportFileName(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Applied Topology", "applied-topology"},
		{"  Data  Science 101!  ", "data-science-101"},
		{"C++ & Systems", "c-systems"},
		{"数学入門", "curriculum"},
		{"", "curriculum"},
	}

	for _, tt := range tests {
		if got := exportFileName(tt.title); got != tt.want {
			t.Errorf("exportFileName(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
