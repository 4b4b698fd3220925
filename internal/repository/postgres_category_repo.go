package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/taskdeck/internal/model"
)

// PostgresCategoryRepo はPostgreSQLを使用したカテゴリリポジトリ。
// 全クエリがuser_idでスコープされる。
type PostgresCategoryRepo struct {
	db *sql.DB
}

// NewPostgresCategoryRepo はPostgresCategoryRepoを生成する。
func NewPostgresCategoryRepo(db *sql.DB) *PostgresCategoryRepo {
	return &PostgresCategoryRepo{db: db}
}

// ListByUserID はユーザーのカテゴリ一覧を名前昇順で返す。
// 各カテゴリにはそのユーザーのタスクのうち参照中の件数をLEFT JOINで集計して付与する。
func (r *PostgresCategoryRepo) ListByUserID(ctx context.Context, userID string) ([]model.CategoryWithTaskCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.name, c.color, c.created_at, c.updated_at,
		        COALESCE(tc.cnt, 0)
		 FROM categories c
		 LEFT JOIN (
		     SELECT category_id, COUNT(*) AS cnt
		     FROM tasks
		     WHERE user_id = $1 AND category_id IS NOT NULL
		     GROUP BY category_id
		 ) tc ON tc.category_id = c.id
		 WHERE c.user_id = $1
		 ORDER BY c.name ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []model.CategoryWithTaskCount
	for rows.Next() {
		var c model.CategoryWithTaskCount
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.CreatedAt, &c.UpdatedAt, &c.TaskCount); err != nil {
			return nil, fmt.Errorf("カテゴリ行の読み取りに失敗しました: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// FindOwned は指定ユーザーが所有するカテゴリを取得する。
// 存在しない場合と他ユーザー所有の場合はどちらもnilを返す。
func (r *PostgresCategoryRepo) FindOwned(ctx context.Context, userID, categoryID string) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, color, created_at, updated_at
		 FROM categories WHERE id = $1 AND user_id = $2`,
		categoryID, userID,
	).Scan(&category.ID, &category.UserID, &category.Name, &category.Color, &category.CreatedAt, &category.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("カテゴリの取得に失敗しました: %w", err)
	}

	return category, nil
}

// Create はカテゴリを作成する。
// (user_id, name)が重複する場合はErrUniqueViolationを返す。
func (r *PostgresCategoryRepo) Create(ctx context.Context, category *model.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, color, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		category.ID, category.UserID, category.Name, category.Color, category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("category name already exists: %w", ErrUniqueViolation)
		}
		return fmt.Errorf("カテゴリの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は所有カテゴリの名前と色を更新し、更新後の値を返す。
// 対象が存在しないか他ユーザー所有の場合はnilを返す。
// 名前が重複する場合はErrUniqueViolationを返す。
func (r *PostgresCategoryRepo) Update(ctx context.Context, userID, categoryID, name, color string) (*model.Category, error) {
	category := &model.Category{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE categories
		 SET name = $3, color = $4, updated_at = now()
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, user_id, name, color, created_at, updated_at`,
		categoryID, userID, name, color,
	).Scan(&category.ID, &category.UserID, &category.Name, &category.Color, &category.CreatedAt, &category.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category name already exists: %w", ErrUniqueViolation)
		}
		return nil, fmt.Errorf("カテゴリの更新に失敗しました: %w", err)
	}

	return category, nil
}

// Delete は所有カテゴリを削除する。対象が存在しない場合も冪等にエラーなしで返る。
func (r *PostgresCategoryRepo) Delete(ctx context.Context, userID, categoryID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = $1 AND user_id = $2`,
		categoryID, userID,
	)
	if err != nil {
		return fmt.Errorf("カテゴリの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CategoryRepository = (*PostgresCategoryRepo)(nil)
