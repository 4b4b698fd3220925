// Package task はタスク管理のドメインロジックを提供する。
package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
	"github.com/hitoshi/taskdeck/internal/security"
)

const (
	// maxTitleLength はタスクタイトルの最大文字数。
	maxTitleLength = 100
	// maxDescriptionLength はタスク説明の最大文字数。
	maxDescriptionLength = 500
	// dueDateLayout は期日の入力形式。フォーム送信のdate型に合わせる。
	dueDateLayout = "2006-01-02"
)

// ListInput はタスク一覧取得のリクエストパラメータ。
// 空のフィールドは絞り込みに使用しない。
type ListInput struct {
	Status     string
	Priority   string
	CategoryID string
	Sort       string
}

// CreateInput はタスク作成のリクエストパラメータ。
// Status・Priorityが空の場合はデフォルト（todo・medium）を適用する。
type CreateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string // "2006-01-02"形式。空で未設定
	CategoryID  string // 空で未設定
}

// UpdateInput はタスク全体更新のリクエストパラメータ。
// DueDateとCategoryIDは空指定で格納値をクリアする（フォーム送信のセマンティクス）。
type UpdateInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	DueDate     string
	CategoryID  string
}

// Service はタスク管理のサービス層。
// 一覧取得（フィルタ・ソート）、作成、取得、更新、ステータス更新、削除を提供する。
// 全操作がuserIDスコープで実行される。
type Service struct {
	taskRepo     repository.TaskRepository
	categoryRepo repository.CategoryRepository
	sanitizer    security.InputSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	taskRepo repository.TaskRepository,
	categoryRepo repository.CategoryRepository,
	sanitizer security.InputSanitizerService,
) *Service {
	return &Service{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		sanitizer:    sanitizer,
	}
}

// List はユーザーのタスク一覧をフィルタ・ソート付きで返す。
// 定義外のステータス・優先度フィルタは検証エラーとする。
// 未知のソートキーは作成日時降順（デフォルト）として扱う。
func (s *Service) List(ctx context.Context, userID string, in ListInput) ([]model.TaskWithCategory, error) {
	var filter model.TaskFilter

	if in.Status != "" {
		status := model.TaskStatus(in.Status)
		if !status.Valid() {
			return nil, model.NewValidationError(fmt.Sprintf("無効なステータスです: %s", in.Status))
		}
		filter.Status = status
	}
	if in.Priority != "" {
		priority := model.TaskPriority(in.Priority)
		if !priority.Valid() {
			return nil, model.NewValidationError(fmt.Sprintf("無効な優先度です: %s", in.Priority))
		}
		filter.Priority = priority
	}
	filter.CategoryID = in.CategoryID

	sort := model.TaskSortCreated
	switch model.TaskSort(in.Sort) {
	case model.TaskSortDueDate:
		sort = model.TaskSortDueDate
	case model.TaskSortPriority:
		sort = model.TaskSortPriority
	}

	tasks, err := s.taskRepo.List(ctx, userID, filter, sort)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成し、カテゴリ解決済みのタスクを返す。
// 未指定の任意フィールドにはデフォルト（status=todo, priority=medium,
// dueDate=なし, categoryId=なし）を適用する。
// カテゴリ指定時は自ユーザー所有のカテゴリであることを検証する。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.TaskWithCategory, error) {
	title, description, err := s.normalizeText(in.Title, in.Description)
	if err != nil {
		return nil, err
	}

	status := model.TaskStatusTodo
	if in.Status != "" {
		status = model.TaskStatus(in.Status)
		if !status.Valid() {
			return nil, model.NewValidationError(fmt.Sprintf("無効なステータスです: %s", in.Status))
		}
	}

	priority := model.TaskPriorityMedium
	if in.Priority != "" {
		priority = model.TaskPriority(in.Priority)
		if !priority.Valid() {
			return nil, model.NewValidationError(fmt.Sprintf("無効な優先度です: %s", in.Priority))
		}
	}

	dueDate, err := parseDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, userID, in.CategoryID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := &model.Task{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if category != nil {
		task.CategoryID = &category.ID
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}

	return &model.TaskWithCategory{Task: *task, Category: category}, nil
}

// Get は所有タスクをカテゴリ付きで取得する。
// 存在しない場合と他ユーザー所有の場合はどちらもTaskNotFoundエラーを返し、
// 他ユーザーのタスクの存在を漏らさない。
func (s *Service) Get(ctx context.Context, userID, taskID string) (*model.TaskWithCategory, error) {
	task, err := s.taskRepo.FindOwned(ctx, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}
	if task == nil {
		return nil, model.NewTaskNotFoundError(taskID)
	}
	return task, nil
}

// Update は所有タスクの全フィールドを更新する。
// DueDateとCategoryIDは空指定で格納値をクリアする。
// ステータスと優先度は定義済みの値であること（空は不可）。
// 対象が存在しないか他ユーザー所有の場合はTaskNotFoundエラーを返す。
func (s *Service) Update(ctx context.Context, userID, taskID string, in UpdateInput) (*model.TaskWithCategory, error) {
	title, description, err := s.normalizeText(in.Title, in.Description)
	if err != nil {
		return nil, err
	}

	status := model.TaskStatus(in.Status)
	if !status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("無効なステータスです: %s", in.Status))
	}
	priority := model.TaskPriority(in.Priority)
	if !priority.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("無効な優先度です: %s", in.Priority))
	}

	dueDate, err := parseDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	category, err := s.resolveCategory(ctx, userID, in.CategoryID)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		ID:          taskID,
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		DueDate:     dueDate,
	}
	if category != nil {
		task.CategoryID = &category.ID
	}

	updated, err := s.taskRepo.Update(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	if !updated {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return s.Get(ctx, userID, taskID)
}

// UpdateStatus は所有タスクのステータスのみを更新する。他フィールドには触れない。
// 定義外のステータス値は黙って保存せず、検証エラーとして拒否する。
// 対象が存在しないか他ユーザー所有の場合はTaskNotFoundエラーを返す。
func (s *Service) UpdateStatus(ctx context.Context, userID, taskID, statusStr string) (*model.TaskWithCategory, error) {
	status := model.TaskStatus(statusStr)
	if !status.Valid() {
		return nil, model.NewValidationError(fmt.Sprintf("無効なステータスです: %s", statusStr))
	}

	updated, err := s.taskRepo.UpdateStatus(ctx, userID, taskID, status)
	if err != nil {
		return nil, fmt.Errorf("タスクステータスの更新に失敗しました: %w", err)
	}
	if !updated {
		return nil, model.NewTaskNotFoundError(taskID)
	}

	return s.Get(ctx, userID, taskID)
}

// Delete は所有タスクを削除する。
// 対象が存在しないか他ユーザー所有の場合も成功として返る（冪等）。
func (s *Service) Delete(ctx context.Context, userID, taskID string) error {
	if err := s.taskRepo.Delete(ctx, userID, taskID); err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	return nil
}

// normalizeText はタイトルと説明をサニタイズし、必須・文字数制約を検証する。
func (s *Service) normalizeText(title, description string) (string, string, error) {
	title = s.sanitizer.Sanitize(title)
	if title == "" {
		return "", "", model.NewValidationError("タイトルは必須です")
	}
	if len([]rune(title)) > maxTitleLength {
		return "", "", model.NewValidationError(fmt.Sprintf("タイトルは%d文字以内で指定してください", maxTitleLength))
	}

	description = s.sanitizer.Sanitize(description)
	if len([]rune(description)) > maxDescriptionLength {
		return "", "", model.NewValidationError(fmt.Sprintf("説明は%d文字以内で指定してください", maxDescriptionLength))
	}

	return title, description, nil
}

// resolveCategory はカテゴリ指定を検証して参照先カテゴリを返す。
// 空指定はnil（カテゴリなし）。
// 指定時は自ユーザー所有のカテゴリであることを確認する。
// 他ユーザー所有の場合も存在しない場合と同じCategoryNotFoundエラーを返す。
func (s *Service) resolveCategory(ctx context.Context, userID, categoryID string) (*model.Category, error) {
	if categoryID == "" {
		return nil, nil
	}

	category, err := s.categoryRepo.FindOwned(ctx, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}

	return category, nil
}

// parseDueDate は期日文字列を検証して返す。空指定はnil（期日なし）。
func parseDueDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	due, err := time.Parse(dueDateLayout, value)
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("期日は%s形式で指定してください", dueDateLayout))
	}
	return &due, nil
}
