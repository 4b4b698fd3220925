// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, task, category, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
	ErrCodeDuplicateIdentity     = "DUPLICATE_IDENTITY"
	ErrCodeDuplicateCategoryName = "DUPLICATE_CATEGORY_NAME"
	ErrCodeInvalidCredentials    = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeAlreadySignedIn       = "ALREADY_SIGNED_IN"
	ErrCodeTaskNotFound          = "TASK_NOT_FOUND"
	ErrCodeCategoryNotFound      = "CATEGORY_NOT_FOUND"
)

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力内容に誤りがあります: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewDuplicateIdentityError はユーザー名またはメールアドレスの重複エラーを生成する。
// どちらが重複したかは区別せず、単一のエラーとして返す。
func NewDuplicateIdentityError() *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateIdentity,
		Message:  "このユーザー名またはメールアドレスは既に使用されています。",
		Category: "auth",
		Action:   "別のユーザー名・メールアドレスで登録するか、サインインしてください。",
	}
}

// NewDuplicateCategoryNameError はカテゴリ名の重複エラーを生成する。
func NewDuplicateCategoryNameError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateCategoryName,
		Message:  fmt.Sprintf("同じ名前のカテゴリが既に存在します: %s", name),
		Category: "category",
		Action:   "別のカテゴリ名を指定してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// メールアドレス不明とパスワード不一致を意図的に区別しない（ユーザー列挙の防止）。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度サインインしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "サインインしてください。",
	}
}

// NewAlreadySignedInError はサインイン済みユーザーがゲスト専用操作を行った場合のエラーを生成する。
func NewAlreadySignedInError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadySignedIn,
		Message:  "既にサインインしています。",
		Category: "auth",
		Action:   "サインアウトしてから再度お試しください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
// 他ユーザー所有のタスクも「見つからない」として扱い、存在を漏らさない。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "task",
		Action:   "タスクIDを確認してください。",
	}
}

// NewCategoryNotFoundError はカテゴリ未検出エラーを生成する。
// 他ユーザー所有のカテゴリも「見つからない」として扱い、存在を漏らさない。
func NewCategoryNotFoundError(categoryID string) *APIError {
	return &APIError{
		Code:     ErrCodeCategoryNotFound,
		Message:  fmt.Sprintf("指定されたカテゴリが見つかりません: %s", categoryID),
		Category: "category",
		Action:   "カテゴリIDを確認してください。",
	}
}
