// Package model はドメインモデルを定義する。
package model

import "time"

// DefaultCategoryColor はカテゴリ色が未指定の場合のデフォルト値。
const DefaultCategoryColor = "#6366f1"

// Category はタスクを分類するユーザー所有のカテゴリを表す。
// (UserID, Name) の組はユーザーごとに一意。
type Category struct {
	ID        string
	UserID    string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CategoryWithTaskCount はカテゴリとそれを参照するタスク数を結合したモデル。
// タスク数は保存されず、一覧取得時に集計される。
type CategoryWithTaskCount struct {
	Category
	TaskCount int
}
