// Package model はドメインモデルを定義する。
package model

import "time"

// Task はユーザー所有のタスクを表す。
// CategoryIDは任意参照であり、参照先カテゴリ削除時にはnilにデタッチされる。
type Task struct {
	ID          string
	UserID      string
	CategoryID  *string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TaskWithCategory はタスクと参照先カテゴリ（存在する場合）を結合したモデル。
// tasksとcategoriesのLEFT JOINで取得される。
type TaskWithCategory struct {
	Task
	Category *Category
}

// TaskStatus はタスクの進行状態を表す。
type TaskStatus string

const (
	// TaskStatusTodo は未着手状態。
	TaskStatusTodo TaskStatus = "todo"
	// TaskStatusInProgress は進行中状態。
	TaskStatusInProgress TaskStatus = "in-progress"
	// TaskStatusDone は完了状態。
	TaskStatusDone TaskStatus = "done"
)

// Valid はステータスが定義済みの値かどうかを返す。
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// TaskPriority はタスクの優先度を表す。
type TaskPriority string

const (
	// TaskPriorityLow は低優先度。
	TaskPriorityLow TaskPriority = "low"
	// TaskPriorityMedium は中優先度。
	TaskPriorityMedium TaskPriority = "medium"
	// TaskPriorityHigh は高優先度。
	TaskPriorityHigh TaskPriority = "high"
)

// Valid は優先度が定義済みの値かどうかを返す。
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Rank は優先度の序数を返す。high=3, medium=2, low=1。
// 優先度ソートは文字列順ではなくこの序数の降順で行う。
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityHigh:
		return 3
	case TaskPriorityMedium:
		return 2
	case TaskPriorityLow:
		return 1
	}
	return 0
}

// TaskSort はタスク一覧のソート種別を表す。
type TaskSort string

const (
	// TaskSortCreated は作成日時の降順（デフォルト）。
	TaskSortCreated TaskSort = "created"
	// TaskSortDueDate は期日の昇順。
	TaskSortDueDate TaskSort = "dueDate"
	// TaskSortPriority は優先度序数の降順。
	TaskSortPriority TaskSort = "priority"
)

// TaskFilter はタスク一覧の絞り込み条件を表す。
// ゼロ値のフィールドは絞り込みに使用しない。
type TaskFilter struct {
	Status     TaskStatus
	Priority   TaskPriority
	CategoryID string
}
