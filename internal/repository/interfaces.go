// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"

	"github.com/hitoshi/taskdeck/internal/model"
)

// ErrUniqueViolation は一意制約違反を表すセンチネルエラー。
// ユーザー名・メールアドレスの重複、カテゴリ名の重複時に返される。
// サービス層で対応するAPIErrorにマッピングする。
var ErrUniqueViolation = errors.New("unique constraint violation")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。
	// ユーザー名またはメールアドレスが重複する場合はErrUniqueViolationを返す。
	Create(ctx context.Context, user *model.User) error

	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	// 大文字小文字を区別しない。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// ExistsByUsernameOrEmail はユーザー名またはメールアドレスのいずれかが
	// 既に登録済みかどうかを返す。
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しない場合もエラーにしない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	// バックグラウンドスイープジョブから定期的に呼ばれる。
	DeleteExpired(ctx context.Context) (int64, error)
}

// CategoryRepository はカテゴリデータの永続化インターフェース。
// 全メソッドがuserIDを必須の第1スコープとして受け取り、
// 他ユーザーのレコードに到達する問い合わせを構造的に発行できない。
type CategoryRepository interface {
	// ListByUserID はユーザーのカテゴリ一覧を名前昇順で返す。
	// 各カテゴリには参照中タスク数（集計値）が付与される。
	ListByUserID(ctx context.Context, userID string) ([]model.CategoryWithTaskCount, error)

	// FindOwned は指定ユーザーが所有するカテゴリを取得する。
	// 存在しない場合と他ユーザー所有の場合はどちらもnilを返す。
	FindOwned(ctx context.Context, userID, categoryID string) (*model.Category, error)

	// Create はカテゴリを作成する。
	// (user_id, name)が重複する場合はErrUniqueViolationを返す。
	Create(ctx context.Context, category *model.Category) error

	// Update は所有カテゴリの名前と色を更新し、更新後の値を返す。
	// 対象が存在しないか他ユーザー所有の場合はnilを返す。
	// 名前が重複する場合はErrUniqueViolationを返す。
	Update(ctx context.Context, userID, categoryID, name, color string) (*model.Category, error)

	// Delete は所有カテゴリを削除する。対象が存在しない場合も冪等にエラーなしで返る。
	Delete(ctx context.Context, userID, categoryID string) error
}

// TaskRepository はタスクデータの永続化インターフェース。
// CategoryRepositoryと同様、全メソッドがuserIDスコープを必須とする。
type TaskRepository interface {
	// List はユーザーのタスク一覧をフィルタ・ソート付きで返す。
	// 各タスクには参照先カテゴリ（存在する場合）が結合される。
	List(ctx context.Context, userID string, filter model.TaskFilter, sort model.TaskSort) ([]model.TaskWithCategory, error)

	// ListByCategory は指定カテゴリを参照するユーザーのタスクを作成日時降順で返す。
	ListByCategory(ctx context.Context, userID, categoryID string) ([]model.Task, error)

	// FindOwned は指定ユーザーが所有するタスクをカテゴリ付きで取得する。
	// 存在しない場合と他ユーザー所有の場合はどちらもnilを返す。
	FindOwned(ctx context.Context, userID, taskID string) (*model.TaskWithCategory, error)

	// Create はタスクを作成する。
	Create(ctx context.Context, task *model.Task) error

	// Update は所有タスクの全フィールドを更新する。
	// CategoryIDとDueDateはnil指定で格納値をクリアする。
	// 対象が存在しないか他ユーザー所有の場合はfalseを返す。
	Update(ctx context.Context, task *model.Task) (bool, error)

	// UpdateStatus は所有タスクのステータスのみを更新する。他フィールドには触れない。
	// 対象が存在しないか他ユーザー所有の場合はfalseを返す。
	UpdateStatus(ctx context.Context, userID, taskID string, status model.TaskStatus) (bool, error)

	// Delete は所有タスクを削除する。対象が存在しない場合も冪等にエラーなしで返る。
	Delete(ctx context.Context, userID, taskID string) error

	// DetachCategory は指定カテゴリを参照するユーザーの全タスクから
	// category_idをクリアし、デタッチしたタスク数を返す。
	// カテゴリ削除の第1段階として実行される。参照タスクが0件でも成功する。
	DetachCategory(ctx context.Context, userID, categoryID string) (int64, error)
}
