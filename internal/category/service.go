// Package category はカテゴリ管理のドメインロジックを提供する。
package category

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
	"github.com/hitoshi/taskdeck/internal/security"
)

// maxNameLength はカテゴリ名の最大文字数。
const maxNameLength = 50

// Service はカテゴリ管理のサービス層。
// 一覧取得、作成、取得、更新、削除（デタッチを伴う2段階削除）を提供する。
// 全操作がuserIDスコープで実行される。
type Service struct {
	categoryRepo repository.CategoryRepository
	taskRepo     repository.TaskRepository
	sanitizer    security.InputSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	categoryRepo repository.CategoryRepository,
	taskRepo repository.TaskRepository,
	sanitizer security.InputSanitizerService,
) *Service {
	return &Service{
		categoryRepo: categoryRepo,
		taskRepo:     taskRepo,
		sanitizer:    sanitizer,
	}
}

// List はユーザーのカテゴリ一覧を名前昇順・タスク数付きで返す。
func (s *Service) List(ctx context.Context, userID string) ([]model.CategoryWithTaskCount, error) {
	categories, err := s.categoryRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	return categories, nil
}

// Create はカテゴリを作成する。
// 名前はサニタイズ・トリムされ、50文字以内であること。
// 色が未指定の場合はデフォルト色を使用する。
// 同名カテゴリが既に存在する場合はDuplicateCategoryNameエラーを返す。
func (s *Service) Create(ctx context.Context, userID, name, color string) (*model.Category, error) {
	name, err := s.normalizeName(name)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = model.DefaultCategoryColor
	}

	now := time.Now()
	category := &model.Category{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, model.NewDuplicateCategoryNameError(name)
		}
		return nil, fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}

	return category, nil
}

// Get は所有カテゴリとそれを参照するタスク一覧（作成日時降順）を返す。
// 存在しない場合と他ユーザー所有の場合はどちらもCategoryNotFoundエラーを返し、
// 他ユーザーのカテゴリの存在を漏らさない。
func (s *Service) Get(ctx context.Context, userID, categoryID string) (*model.Category, []model.Task, error) {
	category, err := s.categoryRepo.FindOwned(ctx, userID, categoryID)
	if err != nil {
		return nil, nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}
	if category == nil {
		return nil, nil, model.NewCategoryNotFoundError(categoryID)
	}

	tasks, err := s.taskRepo.ListByCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, nil, fmt.Errorf("カテゴリ別タスク一覧の取得に失敗しました: %w", err)
	}

	return category, tasks, nil
}

// Update は所有カテゴリの名前と色を更新する。
// 対象が存在しないか他ユーザー所有の場合はCategoryNotFoundエラーを返す。
func (s *Service) Update(ctx context.Context, userID, categoryID, name, color string) (*model.Category, error) {
	name, err := s.normalizeName(name)
	if err != nil {
		return nil, err
	}
	if color == "" {
		color = model.DefaultCategoryColor
	}

	category, err := s.categoryRepo.Update(ctx, userID, categoryID, name, color)
	if err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			return nil, model.NewDuplicateCategoryNameError(name)
		}
		return nil, fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}
	if category == nil {
		return nil, model.NewCategoryNotFoundError(categoryID)
	}

	return category, nil
}

// Delete は所有カテゴリを2段階で削除する。
// 第1段階: カテゴリを参照するユーザーの全タスクからcategory_idをクリア（デタッチ）。
// 第2段階: カテゴリ自体を削除。
// 2段階はこの順序で実行されるが、アトミックである必要はない。
// どちらの段階も冪等であり、途中で失敗した場合は再実行で回復できる。
// 参照タスクが0件でも、対象カテゴリが存在しない場合も成功として返る。
func (s *Service) Delete(ctx context.Context, userID, categoryID string) error {
	detached, err := s.taskRepo.DetachCategory(ctx, userID, categoryID)
	if err != nil {
		return fmt.Errorf("カテゴリのデタッチに失敗しました: %w", err)
	}

	if err := s.categoryRepo.Delete(ctx, userID, categoryID); err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}

	slog.Info("category deleted",
		slog.String("user_id", userID),
		slog.String("category_id", categoryID),
		slog.Int64("detached_tasks", detached),
	)

	return nil
}

// normalizeName はカテゴリ名をサニタイズ・トリムし、必須・文字数制約を検証する。
func (s *Service) normalizeName(name string) (string, error) {
	name = s.sanitizer.Sanitize(name)
	if name == "" {
		return "", model.NewValidationError("カテゴリ名は必須です")
	}
	if len([]rune(name)) > maxNameLength {
		return "", model.NewValidationError(fmt.Sprintf("カテゴリ名は%d文字以内で指定してください", maxNameLength))
	}
	return name, nil
}
