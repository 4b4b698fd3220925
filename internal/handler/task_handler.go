package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdeck/internal/middleware"
	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/task"
)

// TaskServiceInterface はタスクハンドラーが必要とするサービスインターフェース。
type TaskServiceInterface interface {
	// List はユーザーのタスク一覧をフィルタ・ソート付きで返す。
	List(ctx context.Context, userID string, in task.ListInput) ([]model.TaskWithCategory, error)
	// Create はタスクを作成する。
	Create(ctx context.Context, userID string, in task.CreateInput) (*model.TaskWithCategory, error)
	// Get は所有タスクをカテゴリ付きで取得する。
	Get(ctx context.Context, userID, taskID string) (*model.TaskWithCategory, error)
	// Update は所有タスクの全フィールドを更新する。
	Update(ctx context.Context, userID, taskID string, in task.UpdateInput) (*model.TaskWithCategory, error)
	// UpdateStatus は所有タスクのステータスのみを更新する。
	UpdateStatus(ctx context.Context, userID, taskID, status string) (*model.TaskWithCategory, error)
	// Delete は所有タスクを削除する。
	Delete(ctx context.Context, userID, taskID string) error
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	service TaskServiceInterface
	metrics MetricsRecorder
}

// NewTaskHandler はTaskHandlerを生成する。recorderがnilの場合はメトリクスを記録しない。
func NewTaskHandler(service TaskServiceInterface, recorder MetricsRecorder) *TaskHandler {
	return &TaskHandler{
		service: service,
		metrics: ensureMetricsRecorder(recorder),
	}
}

// taskRequest はタスク作成・更新リクエストのボディ。
type taskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`    // "2006-01-02"形式。空で未設定・クリア
	CategoryID  string `json:"category_id"` // 空で未設定・クリア
}

// taskStatusRequest はステータス更新リクエストのボディ。
type taskStatusRequest struct {
	Status string `json:"status"`
}

// taskCategoryResponse はタスクに埋め込まれるカテゴリ情報。
type taskCategoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// taskResponse はタスクのAPIレスポンス。
type taskResponse struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      string                `json:"status"`
	Priority    string                `json:"priority"`
	DueDate     *string               `json:"due_date"`
	Category    *taskCategoryResponse `json:"category"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// List はユーザーのタスク一覧を取得する。
// クエリパラメータ: status, priority, category, sort
// GET /api/tasks
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	query := r.URL.Query()
	in := task.ListInput{
		Status:     query.Get("status"),
		Priority:   query.Get("priority"),
		CategoryID: query.Get("category"),
		Sort:       query.Get("sort"),
	}

	tasks, err := h.service.List(r.Context(), userID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]taskResponse, len(tasks))
	for i := range tasks {
		results[i] = toTaskResponse(&tasks[i])
	}

	writeJSON(w, http.StatusOK, results)
}

// Create はタスクを作成する。
// POST /api/tasks
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Create(r.Context(), userID, task.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTaskMutation("create")
	writeJSON(w, http.StatusCreated, toTaskResponse(created))
}

// Get はタスク詳細を取得する。
// GET /api/tasks/:id
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	found, err := h.service.Get(r.Context(), userID, taskID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toTaskResponse(found))
}

// Update はタスクの全フィールドを更新する。
// due_dateとcategory_idは空指定で格納値をクリアする。
// PUT /api/tasks/:id
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.Update(r.Context(), userID, taskID, task.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTaskMutation("update")
	writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

// UpdateStatus はタスクのステータスのみを更新する。
// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	var req taskStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), userID, taskID, req.Status)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTaskMutation("update_status")
	writeJSON(w, http.StatusOK, toTaskResponse(updated))
}

// Delete はタスクを削除する。対象が存在しない場合も204を返す（冪等）。
// DELETE /api/tasks/:id
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	taskID := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, taskID); err != nil {
		handleServiceError(w, err)
		return
	}

	h.metrics.RecordTaskMutation("delete")
	w.WriteHeader(http.StatusNoContent)
}

// toTaskResponse はmodel.TaskWithCategoryからAPIレスポンスに変換する。
func toTaskResponse(t *model.TaskWithCategory) taskResponse {
	resp := taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
	if t.DueDate != nil {
		due := t.DueDate.Format("2006-01-02")
		resp.DueDate = &due
	}
	if t.Category != nil {
		resp.Category = &taskCategoryResponse{
			ID:    t.Category.ID,
			Name:  t.Category.Name,
			Color: t.Category.Color,
		}
	}
	return resp
}
