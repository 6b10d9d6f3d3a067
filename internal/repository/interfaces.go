// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/jobflow/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByExternalID はexternal_idでユーザーを検索する。見つからない場合はnilを返す。
	FindByExternalID(ctx context.Context, externalID string) (*model.User, error)

	// FindByExternalUsername はexternal_usernameでユーザーを検索する。
	// 見つからない場合はnilを返す。
	FindByExternalUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。external_id / external_usernameの
	// 部分ユニークインデックスと競合した場合は作成をスキップし、
	// created=falseを返す（単一の条件付き書き込みで判定する）。
	Create(ctx context.Context, user *model.User) (created bool, err error)

	// UpdateProfile は表示名・メール・アバターを更新する。
	// 一意制約の対象フィールド（external_id, external_username）は変更しない。
	UpdateProfile(ctx context.Context, user *model.User) error

	// LinkExternalID はexternal_idが未設定のユーザーにexternal_idを
	// 条件付きUPDATE 1回で紐付ける。既に設定済みの場合はlinked=falseを返す。
	LinkExternalID(ctx context.Context, userID, externalID string) (linked bool, err error)

	// ClaimSeeding はサンプルデータ投入のクレームをアトミックに立てる。
	// seeded_atが未設定の場合のみ現在時刻を書き込み、claimed=trueを返す。
	// 既にクレーム済みの場合はclaimed=falseを返す。
	ClaimSeeding(ctx context.Context, userID string) (claimed bool, err error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。
	// 存在しない・期限切れの場合はnilを返す（エラーにはしない）。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。冪等で、
	// 存在しないIDを指定してもエラーにならない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	// ワーカーの定期スイープから呼ばれる。
	DeleteExpired(ctx context.Context) (int64, error)
}

// JobRepository はジョブデータの永続化インターフェース。
// すべての操作は所有ユーザーのIDでスコープされる。
type JobRepository interface {
	// ListByUserID はユーザーのジョブ一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Job, error)
	// Create はジョブを作成する。
	Create(ctx context.Context, job *model.Job) error
	// CountActiveByUserID はユーザーの進行中ジョブ数を返す。
	CountActiveByUserID(ctx context.Context, userID string) (int, error)
	// CountDueBetween はユーザーの進行中ジョブのうち、期限が
	// [from, to] の範囲にあるものの数を返す。
	CountDueBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// CustomerRepository は顧客データの永続化インターフェース。
type CustomerRepository interface {
	// ListByUserID はユーザーの顧客一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Customer, error)
	// Create は顧客を作成する。
	Create(ctx context.Context, customer *model.Customer) error
	// CountByUserID はユーザーの顧客数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// PipelineRepository はパイプラインデータの永続化インターフェース。
type PipelineRepository interface {
	// ListByUserID はユーザーのパイプライン一覧をcreated_at降順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Pipeline, error)
	// Create はパイプラインを作成する。
	Create(ctx context.Context, pipeline *model.Pipeline) error
	// CountByUserID はユーザーのパイプライン数を返す。
	CountByUserID(ctx context.Context, userID string) (int, error)
}
