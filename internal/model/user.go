// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。1ユーザーが1テナント（ジョブ・顧客・
// パイプラインの所有単位）に対応する。
// ExternalIDとExternalUsernameはGitHub上の識別子で、どちらもNULL許容。
// 値が存在する場合のみ一意制約が働く（部分ユニークインデックス）。
// シミュレートログインで作成されたユーザーはExternalIDを持たないことがある。
type User struct {
	ID               string
	ExternalID       *string // GitHubユーザーID。シミュレートログインではnil
	ExternalUsername *string // GitHubユーザー名
	DisplayName      string
	Email            string
	AvatarURL        string
	SeededAt         *time.Time // サンプルデータ投入のクレーム時刻。未投入ならnil
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Seeded はこのユーザーのテナントにサンプルデータ投入のクレームが
// 既に立っているかどうかを返す。
func (u *User) Seeded() bool {
	return u.SeededAt != nil
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
