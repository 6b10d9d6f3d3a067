// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, tenant, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidProfile        = "INVALID_PROFILE"
	ErrCodeUnauthorized          = "UNAUTHORIZED"
	ErrCodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	ErrCodeSeedingIncomplete     = "SEEDING_INCOMPLETE"
	ErrCodeInvalidRequest        = "INVALID_REQUEST"
	ErrCodeInvalidJobStatus      = "INVALID_JOB_STATUS"
	ErrCodeInvalidProgress       = "INVALID_PROGRESS"
	ErrCodeNotFound              = "NOT_FOUND"
	ErrCodeInternal              = "INTERNAL_ERROR"
)

// NewNotFoundError は存在しないルートへのリクエストに対するエラーを生成する。
func NewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "リクエストされたパスが見つかりません。",
		Category: "validation",
		Action:   "リクエストのURLを確認してください。",
	}
}

// NewInvalidProfileError はログイン入力に安定した識別子が含まれない場合の
// エラーを生成する。
func NewInvalidProfileError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProfile,
		Message:  fmt.Sprintf("ログイン情報が不正です: %s", reason),
		Category: "validation",
		Action:   "ユーザー名またはGitHubアカウントを指定してログインしてください。",
	}
}

// NewUnauthorizedError は未認証リクエストのエラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewDependencyUnavailableError はデータストアに到達できない場合の
// エラーを生成する。呼び出し側のリトライは安全。
func NewDependencyUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeDependencyUnavailable,
		Message:  "データストアに接続できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewSeedingIncompleteError はサンプルデータの投入が途中で失敗した状態を
// 表すエラーを生成する。自動リトライは行わない（二重投入防止のため）。
func NewSeedingIncompleteError() *APIError {
	return &APIError{
		Code:     ErrCodeSeedingIncomplete,
		Message:  "初期データの作成が完了していません。",
		Category: "tenant",
		Action:   "管理者に連絡してテナントの復旧を依頼してください。",
	}
}

// NewInvalidJobStatusError は未定義のジョブステータスが指定された場合の
// エラーを生成する。
func NewInvalidJobStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidJobStatus,
		Message:  fmt.Sprintf("無効なジョブステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには active、completed、on-hold、cancelled のいずれかを指定してください。",
	}
}

// NewInvalidProgressError は進捗率が0-100の範囲外の場合のエラーを生成する。
func NewInvalidProgressError(progress int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidProgress,
		Message:  fmt.Sprintf("無効な進捗率です: %d", progress),
		Category: "validation",
		Action:   "進捗率は0から100の範囲で指定してください。",
	}
}
