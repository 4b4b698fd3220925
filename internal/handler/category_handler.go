package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/model"
)

// CategoryServiceInterface はカテゴリハンドラーが必要とするサービスインターフェース。
type CategoryServiceInterface interface {
	// List はユーザーのカテゴリ一覧を名前昇順・タスク数付きで返す。
	List(ctx context.Context, userID string) ([]model.CategoryWithTaskCount, error)
	// Create はカテゴリを作成する。
	Create(ctx context.Context, userID, name, color string) (*model.Category, error)
	// Get は所有カテゴリとそれを参照するタスク一覧を返す。
	Get(ctx context.Context, userID, categoryID string) (*model.Category, []model.Task, error)
	// Update は所有カテゴリの名前と色を更新する。
	Update(ctx context.Context, userID, categoryID, name, color string) (*model.Category, error)
	// Delete は所有カテゴリをデタッチを伴う2段階で削除する。
	Delete(ctx context.Context, userID, categoryID string) error
}

// CategoryHandler はカテゴリ管理のHTTPハンドラー。
type CategoryHandler struct {
	service CategoryServiceInterface
}

// NewCategoryHandler はCategoryHandlerを生成する。
func NewCategoryHandler(service CategoryServiceInterface) *CategoryHandler {
	return &CategoryHandler{
		service: service,
	}
}

// categoryRequest はカテゴリ作成・更新リクエストのボディ。
type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// categoryResponse はカテゴリのAPIレスポンス。
// TaskCountは一覧取得時のみ設定される。
type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	TaskCount *int      `json:"task_count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// categoryDetailResponse はカテゴリ詳細のAPIレスポンス。
// カテゴリを参照するタスク一覧（作成日時降順）を含む。
type categoryDetailResponse struct {
	categoryResponse
	Tasks []taskResponse `json:"tasks"`
}

// List はユーザーのカテゴリ一覧を取得する。
// GET /api/categories
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	categories, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]categoryResponse, len(categories))
	for i, c := range categories {
		count := c.TaskCount
		resp := toCategoryResponse(&c.Category)
		resp.TaskCount = &count
		results[i] = resp
	}

	writeJSON(w, http.StatusOK, results)
}

// Create はカテゴリを作成する。
// POST /api/categories
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	category, err := h.service.Create(r.Context(), userID, req.Name, req.Color)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// Get はカテゴリ詳細と参照タスク一覧を取得する。
// GET /api/categories/:id
func (h *CategoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	categoryID := chi.URLParam(r, "id")

	category, tasks, err := h.service.Get(r.Context(), userID, categoryID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	detail := categoryDetailResponse{
		categoryResponse: toCategoryResponse(category),
		Tasks:            make([]taskResponse, len(tasks)),
	}
	for i, t := range tasks {
		detail.Tasks[i] = toTaskResponse(&model.TaskWithCategory{Task: t, Category: category})
	}

	writeJSON(w, http.StatusOK, detail)
}

// Update はカテゴリの名前と色を更新する。
// PUT /api/categories/:id
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	categoryID := chi.URLParam(r, "id")

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	category, err := h.service.Update(r.Context(), userID, categoryID, req.Name, req.Color)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(category))
}

// Delete はカテゴリを削除する。参照タスクは削除前にデタッチされる。
// 対象が存在しない場合も204を返す（冪等）。
// DELETE /api/categories/:id
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	categoryID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, categoryID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toCategoryResponse はmodel.CategoryからAPIレスポンスに変換する。
func toCategoryResponse(category *model.Category) categoryResponse {
	return categoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		Color:     category.Color,
		CreatedAt: category.CreatedAt,
		UpdatedAt: category.UpdatedAt,
	}
}
