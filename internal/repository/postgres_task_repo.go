package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/hitoshi/taskdeck/internal/model"
)

// taskSelectColumns はタスクとカテゴリのLEFT JOINで取得するカラム列。
// カテゴリ側はタスクがカテゴリ未参照の場合NULLになる。
const taskSelectColumns = `
	t.id, t.user_id, t.category_id, t.title, t.description,
	t.status, t.priority, t.due_date, t.created_at, t.updated_at,
	c.id, c.name, c.color, c.created_at, c.updated_at`

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
// 全クエリがuser_idでスコープされる。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

// List はユーザーのタスク一覧をフィルタ・ソート付きで返す。
// ソート句は型付きTaskSortからのホワイトリストでのみ構築し、
// リクエスト由来の文字列を直接SQLに混ぜない。
func (r *PostgresTaskRepo) List(ctx context.Context, userID string, filter model.TaskFilter, sort model.TaskSort) ([]model.TaskWithCategory, error) {
	var b strings.Builder
	b.WriteString(`SELECT ` + taskSelectColumns + `
		 FROM tasks t
		 LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id
		 WHERE t.user_id = $1`)

	args := []interface{}{userID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		b.WriteString(" AND t.status = $" + strconv.Itoa(len(args)))
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		b.WriteString(" AND t.priority = $" + strconv.Itoa(len(args)))
	}
	if filter.CategoryID != "" {
		args = append(args, filter.CategoryID)
		b.WriteString(" AND t.category_id = $" + strconv.Itoa(len(args)))
	}

	b.WriteString(orderClause(sort))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []model.TaskWithCategory
	for rows.Next() {
		task, err := scanTaskWithCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("タスク行の読み取りに失敗しました: %w", err)
		}
		results = append(results, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("タスク一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// orderClause はソート種別に対応するORDER BY句を返す。
// 優先度ソートは文字列順ではなく序数（high=3 > medium=2 > low=1）の降順。
func orderClause(sort model.TaskSort) string {
	switch sort {
	case model.TaskSortDueDate:
		return ` ORDER BY t.due_date ASC NULLS LAST, t.created_at DESC`
	case model.TaskSortPriority:
		return ` ORDER BY CASE t.priority
			 WHEN 'high' THEN 3
			 WHEN 'medium' THEN 2
			 WHEN 'low' THEN 1
			 ELSE 0 END DESC, t.created_at DESC`
	default:
		return ` ORDER BY t.created_at DESC`
	}
}

// ListByCategory は指定カテゴリを参照するユーザーのタスクを作成日時降順で返す。
func (r *PostgresTaskRepo) ListByCategory(ctx context.Context, userID, categoryID string) ([]model.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, category_id, title, description,
		        status, priority, due_date, created_at, updated_at
		 FROM tasks
		 WHERE user_id = $1 AND category_id = $2
		 ORDER BY created_at DESC`,
		userID, categoryID,
	)
	if err != nil {
		return nil, fmt.Errorf("カテゴリ別タスク一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var results []model.Task
	for rows.Next() {
		var task model.Task
		var categoryID sql.NullString
		var dueDate sql.NullTime
		if err := rows.Scan(
			&task.ID, &task.UserID, &categoryID, &task.Title, &task.Description,
			&task.Status, &task.Priority, &dueDate, &task.CreatedAt, &task.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("タスク行の読み取りに失敗しました: %w", err)
		}
		if categoryID.Valid {
			task.CategoryID = &categoryID.String
		}
		if dueDate.Valid {
			due := dueDate.Time
			task.DueDate = &due
		}
		results = append(results, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("カテゴリ別タスク一覧の走査に失敗しました: %w", err)
	}
	return results, nil
}

// FindOwned は指定ユーザーが所有するタスクをカテゴリ付きで取得する。
// 存在しない場合と他ユーザー所有の場合はどちらもnilを返す。
func (r *PostgresTaskRepo) FindOwned(ctx context.Context, userID, taskID string) (*model.TaskWithCategory, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+taskSelectColumns+`
		 FROM tasks t
		 LEFT JOIN categories c ON c.id = t.category_id AND c.user_id = t.user_id
		 WHERE t.id = $1 AND t.user_id = $2`,
		taskID, userID,
	)

	task, err := scanTaskWithCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("タスクの取得に失敗しました: %w", err)
	}

	return task, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, category_id, title, description,
		                    status, priority, due_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.UserID, task.CategoryID, task.Title, task.Description,
		string(task.Status), string(task.Priority), task.DueDate, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("タスクの作成に失敗しました: %w", err)
	}
	return nil
}

// Update は所有タスクの全フィールドを更新する。
// CategoryIDとDueDateはnil指定で格納値をNULLにクリアする。
// 対象が存在しないか他ユーザー所有の場合はfalseを返す。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = $3, description = $4, status = $5, priority = $6,
		     due_date = $7, category_id = $8, updated_at = now()
		 WHERE id = $1 AND user_id = $2`,
		task.ID, task.UserID, task.Title, task.Description,
		string(task.Status), string(task.Priority), task.DueDate, task.CategoryID,
	)
	if err != nil {
		return false, fmt.Errorf("タスクの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// UpdateStatus は所有タスクのステータスのみを更新する。
// 対象が存在しないか他ユーザー所有の場合はfalseを返す。
func (r *PostgresTaskRepo) UpdateStatus(ctx context.Context, userID, taskID string, status model.TaskStatus) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET status = $3, updated_at = now()
		 WHERE id = $1 AND user_id = $2`,
		taskID, userID, string(status),
	)
	if err != nil {
		return false, fmt.Errorf("タスクステータスの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("更新結果の取得に失敗しました: %w", err)
	}
	return rowsAffected > 0, nil
}

// Delete は所有タスクを削除する。対象が存在しない場合も冪等にエラーなしで返る。
func (r *PostgresTaskRepo) Delete(ctx context.Context, userID, taskID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE id = $1 AND user_id = $2`,
		taskID, userID,
	)
	if err != nil {
		return fmt.Errorf("タスクの削除に失敗しました: %w", err)
	}
	return nil
}

// DetachCategory は指定カテゴリを参照するユーザーの全タスクから
// category_idをクリアし、デタッチしたタスク数を返す。
func (r *PostgresTaskRepo) DetachCategory(ctx context.Context, userID, categoryID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET category_id = NULL, updated_at = now()
		 WHERE user_id = $1 AND category_id = $2`,
		userID, categoryID,
	)
	if err != nil {
		return 0, fmt.Errorf("カテゴリのデタッチに失敗しました: %w", err)
	}
	detached, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("デタッチ結果の取得に失敗しました: %w", err)
	}
	return detached, nil
}

// rowScanner は*sql.Rowと*sql.Rowsに共通するScanインターフェース。
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTaskWithCategory はタスクとLEFT JOINされたカテゴリ列を読み取る。
// カテゴリ列が全てNULLの場合、Categoryはnilになる。
func scanTaskWithCategory(row rowScanner) (*model.TaskWithCategory, error) {
	var task model.TaskWithCategory
	var taskCategoryID sql.NullString
	var dueDate sql.NullTime
	var catID, catName, catColor sql.NullString
	var catCreatedAt, catUpdatedAt sql.NullTime

	err := row.Scan(
		&task.ID, &task.UserID, &taskCategoryID, &task.Title, &task.Description,
		&task.Status, &task.Priority, &dueDate, &task.CreatedAt, &task.UpdatedAt,
		&catID, &catName, &catColor, &catCreatedAt, &catUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if taskCategoryID.Valid {
		task.CategoryID = &taskCategoryID.String
	}
	if dueDate.Valid {
		due := dueDate.Time
		task.DueDate = &due
	}
	if catID.Valid {
		task.Category = &model.Category{
			ID:        catID.String,
			UserID:    task.UserID,
			Name:      catName.String,
			Color:     catColor.String,
			CreatedAt: catCreatedAt.Time,
			UpdatedAt: catUpdatedAt.Time,
		}
	}

	return &task, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)
