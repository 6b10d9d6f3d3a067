// Package identity は外部プロファイルをローカルユーザーに解決する。
// 解決は「検索→なければ作成」の形を取るが、作成は一意制約付きの
// 条件付きINSERT 1回で行い、同時ログインの競合はエラーとして
// 表面化させずに勝者の再読込で吸収する。
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jobflow/internal/model"
	"github.com/hitoshi/jobflow/internal/repository"
)

// ExternalProfile は外部認証ステップが提供するユーザーの属性情報。
// ExternalIDまたはExternalUsernameの少なくとも一方が必要。
type ExternalProfile struct {
	ExternalID       string // プロバイダー発行のユーザーID。シミュレートログインでは空
	ExternalUsername string // プロバイダー上のユーザー名
	DisplayName      string
	Email            string
	AvatarURL        string
}

// hasIdentifier はプロファイルに安定した識別子が含まれるかを判定する。
func (p ExternalProfile) hasIdentifier() bool {
	return p.ExternalID != "" || p.ExternalUsername != ""
}

// Resolver は外部プロファイルとローカルユーザーの対応付けを担う。
// identity-to-userのマッピングロジックはここにのみ存在する。
type Resolver struct {
	users repository.UserRepository
}

// NewResolver はResolverを生成する。
func NewResolver(users repository.UserRepository) *Resolver {
	return &Resolver{users: users}
}

// Resolve は外部プロファイルをユーザーに解決する。
// 戻り値のwasCreatedは、この呼び出しでユーザーが新規作成されたかを示す。
//
// 検索の優先順位はExternalID、次にExternalUsername。
// シミュレートモード（ユーザー名のみ）で先に作成されたテナントが、
// 後からID付きプロバイダーでログインした場合はExternalIDを紐付けて
// 同一ユーザーに合流させる。
func (r *Resolver) Resolve(ctx context.Context, profile ExternalProfile) (*model.User, bool, error) {
	if !profile.hasIdentifier() {
		return nil, false, model.NewInvalidProfileError("識別子がありません")
	}

	// 1. 既存ユーザーの検索
	user, err := r.lookup(ctx, profile)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		if err := r.refreshProfile(ctx, user, profile); err != nil {
			return nil, false, err
		}
		return user, false, nil
	}

	// 2. 新規作成。部分ユニークインデックスとの競合時は行を挿入せず
	//    created=falseが返る（エラーにはならない）。
	now := time.Now()
	newUser := &model.User{
		ID:               uuid.New().String(),
		ExternalID:       nilIfEmpty(profile.ExternalID),
		ExternalUsername: nilIfEmpty(profile.ExternalUsername),
		DisplayName:      profile.DisplayName,
		Email:            profile.Email,
		AvatarURL:        profile.AvatarURL,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	created, err := r.users.Create(ctx, newUser)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	if created {
		slog.Info("new user created",
			slog.String("user_id", newUser.ID),
			slog.String("external_username", profile.ExternalUsername),
		)
		return newUser, true, nil
	}

	// 3. 同時リクエストに作成で負けた。勝者を再読込して返す。
	user, err = r.lookup(ctx, profile)
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		// 勝者の行が見えない（作成直後の削除など）。呼び出し側でリトライ可能。
		return nil, false, fmt.Errorf("user creation conflicted but winner not found")
	}

	slog.Info("user creation race absorbed",
		slog.String("user_id", user.ID),
		slog.String("external_username", profile.ExternalUsername),
	)

	if err := r.refreshProfile(ctx, user, profile); err != nil {
		return nil, false, err
	}
	return user, false, nil
}

// lookup はExternalID優先でユーザーを検索する。
// ID検索がミスした場合はユーザー名でも検索し、シミュレートモードで
// 作成済みのユーザー（external_idがNULL）が見つかればIDを紐付ける。
// ユーザー名が別の外部IDに紐付いている場合は一致として扱わずエラーを返す。
func (r *Resolver) lookup(ctx context.Context, profile ExternalProfile) (*model.User, error) {
	if profile.ExternalID != "" {
		user, err := r.users.FindByExternalID(ctx, profile.ExternalID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user by external_id: %w", err)
		}
		if user != nil {
			return user, nil
		}

		if profile.ExternalUsername != "" {
			user, err = r.users.FindByExternalUsername(ctx, profile.ExternalUsername)
			if err != nil {
				return nil, fmt.Errorf("failed to find user by external_username: %w", err)
			}
			if user != nil {
				if user.ExternalID != nil && *user.ExternalID != profile.ExternalID {
					// ユーザー名は一致するが別の外部IDに紐付いている。
					// 返すと他人のテナントにログインさせてしまうためエラーにする。
					slog.Warn("external username bound to a different external id",
						slog.String("user_id", user.ID),
						slog.String("external_username", profile.ExternalUsername),
					)
					return nil, model.NewInvalidProfileError("このユーザー名は別のアカウントに関連付けられています")
				}
				if user.ExternalID == nil {
					// シミュレートモードのユーザーをID付きプロバイダーに合流させる
					externalID := profile.ExternalID
					linked, err := r.users.LinkExternalID(ctx, user.ID, externalID)
					if err != nil {
						return nil, fmt.Errorf("failed to link external_id: %w", err)
					}
					if linked {
						user.ExternalID = &externalID
						slog.Info("linked external id to simulated user",
							slog.String("user_id", user.ID),
							slog.String("external_id", externalID),
						)
					}
				}
			}
			return user, nil
		}
		return nil, nil
	}

	user, err := r.users.FindByExternalUsername(ctx, profile.ExternalUsername)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by external_username: %w", err)
	}
	return user, nil
}

// refreshProfile は再解決時に表示名・メール・アバターを更新する。
// 一意制約の対象フィールドは変更しない。空の入力値では上書きしない。
func (r *Resolver) refreshProfile(ctx context.Context, user *model.User, profile ExternalProfile) error {
	changed := false
	if profile.DisplayName != "" && profile.DisplayName != user.DisplayName {
		user.DisplayName = profile.DisplayName
		changed = true
	}
	if profile.Email != "" && profile.Email != user.Email {
		user.Email = profile.Email
		changed = true
	}
	if profile.AvatarURL != "" && profile.AvatarURL != user.AvatarURL {
		user.AvatarURL = profile.AvatarURL
		changed = true
	}
	if !changed {
		return nil
	}

	if err := r.users.UpdateProfile(ctx, user); err != nil {
		return fmt.Errorf("failed to refresh user profile: %w", err)
	}
	return nil
}

// nilIfEmpty は空文字列をnilポインタに変換する。
// sparse unique制約の対象カラムはNULLで保存する必要がある。
func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
