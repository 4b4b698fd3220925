package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
	"github.com/hitoshi/taskdeck/internal/security"
)

// --- モック ---

type mockTaskRepo struct {
	listFn           func(ctx context.Context, userID string, filter model.TaskFilter, sort model.TaskSort) ([]model.TaskWithCategory, error)
	listByCategoryFn func(ctx context.Context, userID, categoryID string) ([]model.Task, error)
	findOwnedFn      func(ctx context.Context, userID, taskID string) (*model.TaskWithCategory, error)
	createFn         func(ctx context.Context, task *model.Task) error
	updateFn         func(ctx context.Context, task *model.Task) (bool, error)
	updateStatusFn   func(ctx context.Context, userID, taskID string, status model.TaskStatus) (bool, error)
	deleteFn         func(ctx context.Context, userID, taskID string) error
	detachCategoryFn func(ctx context.Context, userID, categoryID string) (int64, error)
}

func (m *mockTaskRepo) List(ctx context.Context, userID string, filter model.TaskFilter, sort model.TaskSort) ([]model.TaskWithCategory, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, filter, sort)
	}
	return nil, nil
}
func (m *mockTaskRepo) ListByCategory(ctx context.Context, userID, categoryID string) ([]model.Task, error) {
	if m.listByCategoryFn != nil {
		return m.listByCategoryFn(ctx, userID, categoryID)
	}
	return nil, nil
}
func (m *mockTaskRepo) FindOwned(ctx context.Context, userID, taskID string) (*model.TaskWithCategory, error) {
	if m.findOwnedFn != nil {
		return m.findOwnedFn(ctx, userID, taskID)
	}
	return nil, nil
}
func (m *mockTaskRepo) Create(ctx context.Context, task *model.Task) error {
	if m.createFn != nil {
		return m.createFn(ctx, task)
	}
	return nil
}
func (m *mockTaskRepo) Update(ctx context.Context, task *model.Task) (bool, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, task)
	}
	return false, nil
}
func (m *mockTaskRepo) UpdateStatus(ctx context.Context, userID, taskID string, status model.TaskStatus) (bool, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, userID, taskID, status)
	}
	return false, nil
}
func (m *mockTaskRepo) Delete(ctx context.Context, userID, taskID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, taskID)
	}
	return nil
}
func (m *mockTaskRepo) DetachCategory(ctx context.Context, userID, categoryID string) (int64, error) {
	if m.detachCategoryFn != nil {
		return m.detachCategoryFn(ctx, userID, categoryID)
	}
	return 0, nil
}

type mockCategoryRepo struct {
	findOwnedFn func(ctx context.Context, userID, categoryID string) (*model.Category, error)
}

func (m *mockCategoryRepo) ListByUserID(ctx context.Context, userID string) ([]model.CategoryWithTaskCount, error) {
	return nil, nil
}
func (m *mockCategoryRepo) FindOwned(ctx context.Context, userID, categoryID string) (*model.Category, error) {
	if m.findOwnedFn != nil {
		return m.findOwnedFn(ctx, userID, categoryID)
	}
	return nil, nil
}
func (m *mockCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	return nil
}
func (m *mockCategoryRepo) Update(ctx context.Context, userID, categoryID, name, color string) (*model.Category, error) {
	return nil, nil
}
func (m *mockCategoryRepo) Delete(ctx context.Context, userID, categoryID string) error {
	return nil
}

var _ repository.TaskRepository = (*mockTaskRepo)(nil)
var _ repository.CategoryRepository = (*mockCategoryRepo)(nil)

func newTestService(taskRepo *mockTaskRepo, categoryRepo *mockCategoryRepo) *Service {
	return NewService(taskRepo, categoryRepo, security.NewInputSanitizer())
}

// --- テスト ---

// TestService_Create_Defaults は未指定フィールドへのデフォルト適用を検証する。
func TestService_Create_Defaults(t *testing.T) {
	var created *model.Task
	taskRepo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			created = task
			return nil
		},
	}
	svc := newTestService(taskRepo, &mockCategoryRepo{})

	result, err := svc.Create(context.Background(), "user-1", CreateInput{Title: "資料作成"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if created == nil {
		t.Fatal("expected task to be persisted")
	}
	if created.Status != model.TaskStatusTodo {
		t.Errorf("Status = %q, want default %q", created.Status, model.TaskStatusTodo)
	}
	if created.Priority != model.TaskPriorityMedium {
		t.Errorf("Priority = %q, want default %q", created.Priority, model.TaskPriorityMedium)
	}
	if created.DueDate != nil {
		t.Error("DueDate should default to nil")
	}
	if created.CategoryID != nil {
		t.Error("CategoryID should default to nil")
	}
	if result.Category != nil {
		t.Error("result should not carry a category")
	}
}

// TestService_Create_WithCategory は所有カテゴリの解決を検証する。
func TestService_Create_WithCategory(t *testing.T) {
	categoryRepo := &mockCategoryRepo{
		findOwnedFn: func(ctx context.Context, userID, categoryID string) (*model.Category, error) {
			return &model.Category{ID: categoryID, UserID: userID, Name: "仕事"}, nil
		},
	}
	svc := newTestService(&mockTaskRepo{}, categoryRepo)

	result, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title:      "資料作成",
		CategoryID: "cat-1",
		DueDate:    "2026-09-01",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if result.CategoryID == nil || *result.CategoryID != "cat-1" {
		t.Error("expected CategoryID to be set")
	}
	if result.Category == nil || result.Category.Name != "仕事" {
		t.Error("expected resolved category in result")
	}
	if result.DueDate == nil || result.DueDate.Format("2006-01-02") != "2026-09-01" {
		t.Errorf("unexpected DueDate: %v", result.DueDate)
	}
}

// TestService_Create_ForeignCategory は他ユーザーのカテゴリ指定が
// CategoryNotFoundとして拒否されることを検証する。
func TestService_Create_ForeignCategory(t *testing.T) {
	// FindOwnedはuserIDスコープのため他ユーザー所有はnil
	svc := newTestService(&mockTaskRepo{}, &mockCategoryRepo{})

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title:      "資料作成",
		CategoryID: "cat-owned-by-other",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeCategoryNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeCategoryNotFound)
	}
}

// TestService_Create_Validation は作成時の入力検証を確認する。
func TestService_Create_Validation(t *testing.T) {
	svc := newTestService(&mockTaskRepo{}, &mockCategoryRepo{})

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"空のタイトル", CreateInput{Title: ""}},
		{"長すぎるタイトル", CreateInput{Title: strings.Repeat("あ", 101)}},
		{"長すぎる説明", CreateInput{Title: "ok", Description: strings.Repeat("あ", 501)}},
		{"無効なステータス", CreateInput{Title: "ok", Status: "archived"}},
		{"無効な優先度", CreateInput{Title: "ok", Priority: "urgent"}},
		{"無効な期日", CreateInput{Title: "ok", DueDate: "01/09/2026"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "user-1", tt.in)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeValidationFailed {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
			}
		})
	}
}

// TestService_List_FilterValidation は定義外のフィルタ値が拒否されることを検証する。
func TestService_List_FilterValidation(t *testing.T) {
	svc := newTestService(&mockTaskRepo{}, &mockCategoryRepo{})

	if _, err := svc.List(context.Background(), "user-1", ListInput{Status: "archived"}); err == nil {
		t.Error("expected error for unknown status filter")
	}
	if _, err := svc.List(context.Background(), "user-1", ListInput{Priority: "urgent"}); err == nil {
		t.Error("expected error for unknown priority filter")
	}
}

// TestService_List_UnknownSortFallsBack は未知のソートキーがデフォルトに
// フォールバックすることを検証する。
func TestService_List_UnknownSortFallsBack(t *testing.T) {
	var gotSort model.TaskSort
	taskRepo := &mockTaskRepo{
		listFn: func(ctx context.Context, userID string, filter model.TaskFilter, sort model.TaskSort) ([]model.TaskWithCategory, error) {
			gotSort = sort
			return nil, nil
		},
	}
	svc := newTestService(taskRepo, &mockCategoryRepo{})

	if _, err := svc.List(context.Background(), "user-1", ListInput{Sort: "alphabetical"}); err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if gotSort != model.TaskSortCreated {
		t.Errorf("sort = %q, want default %q", gotSort, model.TaskSortCreated)
	}
}

// TestService_List_PassesFilter はフィルタがリポジトリにそのまま渡ることを検証する。
func TestService_List_PassesFilter(t *testing.T) {
	var gotFilter model.TaskFilter
	taskRepo := &mockTaskRepo{
		listFn: func(ctx context.Context, userID string, filter model.TaskFilter, sort model.TaskSort) ([]model.TaskWithCategory, error) {
			gotFilter = filter
			return nil, nil
		},
	}
	svc := newTestService(taskRepo, &mockCategoryRepo{})

	_, err := svc.List(context.Background(), "user-1", ListInput{
		Status:     "done",
		Priority:   "high",
		CategoryID: "cat-1",
		Sort:       "priority",
	})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if gotFilter.Status != model.TaskStatusDone {
		t.Errorf("filter.Status = %q, want %q", gotFilter.Status, model.TaskStatusDone)
	}
	if gotFilter.Priority != model.TaskPriorityHigh {
		t.Errorf("filter.Priority = %q, want %q", gotFilter.Priority, model.TaskPriorityHigh)
	}
	if gotFilter.CategoryID != "cat-1" {
		t.Errorf("filter.CategoryID = %q, want %q", gotFilter.CategoryID, "cat-1")
	}
}

// TestService_Get_NotOwned は他ユーザーのタスクがNotFoundとして扱われることを検証する。
func TestService_Get_NotOwned(t *testing.T) {
	svc := newTestService(&mockTaskRepo{}, &mockCategoryRepo{})

	_, err := svc.Get(context.Background(), "user-1", "task-owned-by-other")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeTaskNotFound)
	}
}

// TestService_Update_ClearsOptionalFields は期日・カテゴリの空指定が
// 格納値をクリアすることを検証する。
func TestService_Update_ClearsOptionalFields(t *testing.T) {
	var updated *model.Task
	taskRepo := &mockTaskRepo{
		updateFn: func(ctx context.Context, task *model.Task) (bool, error) {
			updated = task
			return true, nil
		},
		findOwnedFn: func(ctx context.Context, userID, taskID string) (*model.TaskWithCategory, error) {
			return &model.TaskWithCategory{
				Task: model.Task{ID: taskID, UserID: userID, Title: "資料作成", UpdatedAt: time.Now()},
			}, nil
		},
	}
	svc := newTestService(taskRepo, &mockCategoryRepo{})

	result, err := svc.Update(context.Background(), "user-1", "task-1", UpdateInput{
		Title:    "資料作成",
		Status:   "in-progress",
		Priority: "low",
		// DueDateとCategoryIDは空指定 = クリア
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.DueDate != nil {
		t.Error("empty DueDate input should clear the stored value")
	}
	if updated.CategoryID != nil {
		t.Error("empty CategoryID input should clear the stored value")
	}
	if result == nil {
		t.Fatal("expected updated task in result")
	}
}

// TestService_Update_RequiresValidEnums は更新時にステータス・優先度が
// 必須であることを検証する。
func TestService_Update_RequiresValidEnums(t *testing.T) {
	svc := newTestService(&mockTaskRepo{}, &mockCategoryRepo{})

	if _, err := svc.Update(context.Background(), "user-1", "task-1", UpdateInput{
		Title: "ok", Status: "", Priority: "low",
	}); err == nil {
		t.Error("expected error for empty status on full update")
	}
	if _, err := svc.Update(context.Background(), "user-1", "task-1", UpdateInput{
		Title: "ok", Status: "todo", Priority: "",
	}); err == nil {
		t.Error("expected error for empty priority on full update")
	}
}

// TestService_Update_NotFound は存在しないタスクの更新がNotFoundになることを検証する。
func TestService_Update_NotFound(t *testing.T) {
	svc := newTestService(&mockTaskRepo{}, &mockCategoryRepo{})

	_, err := svc.Update(context.Background(), "user-1", "missing", UpdateInput{
		Title: "ok", Status: "todo", Priority: "low",
	})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeTaskNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeTaskNotFound)
	}
}

// TestService_UpdateStatus はステータスのみの更新を検証する。
func TestService_UpdateStatus(t *testing.T) {
	var gotStatus model.TaskStatus
	taskRepo := &mockTaskRepo{
		updateStatusFn: func(ctx context.Context, userID, taskID string, status model.TaskStatus) (bool, error) {
			gotStatus = status
			return true, nil
		},
		findOwnedFn: func(ctx context.Context, userID, taskID string) (*model.TaskWithCategory, error) {
			return &model.TaskWithCategory{
				Task: model.Task{ID: taskID, UserID: userID, Title: "資料作成", Status: model.TaskStatusDone},
			}, nil
		},
	}
	svc := newTestService(taskRepo, &mockCategoryRepo{})

	result, err := svc.UpdateStatus(context.Background(), "user-1", "task-1", "done")
	if err != nil {
		t.Fatalf("UpdateStatus returned error: %v", err)
	}
	if gotStatus != model.TaskStatusDone {
		t.Errorf("status = %q, want %q", gotStatus, model.TaskStatusDone)
	}
	if result.Status != model.TaskStatusDone {
		t.Errorf("result.Status = %q, want %q", result.Status, model.TaskStatusDone)
	}
}

// TestService_UpdateStatus_InvalidValue は定義外のステータス値が
// 黙って保存されずに拒否されることを検証する。
func TestService_UpdateStatus_InvalidValue(t *testing.T) {
	updateCalled := false
	taskRepo := &mockTaskRepo{
		updateStatusFn: func(ctx context.Context, userID, taskID string, status model.TaskStatus) (bool, error) {
			updateCalled = true
			return true, nil
		},
	}
	svc := newTestService(taskRepo, &mockCategoryRepo{})

	_, err := svc.UpdateStatus(context.Background(), "user-1", "task-1", "archived")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != model.ErrCodeValidationFailed {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidationFailed)
	}
	if updateCalled {
		t.Error("repository UpdateStatus should not be called for invalid value")
	}
}

// TestService_Delete_Idempotent は対象不在の削除も成功することを検証する。
func TestService_Delete_Idempotent(t *testing.T) {
	svc := newTestService(&mockTaskRepo{}, &mockCategoryRepo{})

	if err := svc.Delete(context.Background(), "user-1", "already-deleted"); err != nil {
		t.Fatalf("Delete should be idempotent: %v", err)
	}
}

// TestService_Create_SanitizesText はタイトル・説明からマークアップが
// 除去されることを検証する。
func TestService_Create_SanitizesText(t *testing.T) {
	var created *model.Task
	taskRepo := &mockTaskRepo{
		createFn: func(ctx context.Context, task *model.Task) error {
			created = task
			return nil
		},
	}
	svc := newTestService(taskRepo, &mockCategoryRepo{})

	_, err := svc.Create(context.Background(), "user-1", CreateInput{
		Title:       "<b>資料作成</b>",
		Description: "<img src=x onerror=alert(1)>詳細",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if strings.ContainsAny(created.Title, "<>") {
		t.Errorf("Title should be sanitized, got %q", created.Title)
	}
	if strings.Contains(created.Description, "onerror") {
		t.Errorf("Description should be sanitized, got %q", created.Description)
	}
}
