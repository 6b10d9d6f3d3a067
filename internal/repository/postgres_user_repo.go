package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobflow/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, external_id, external_username, display_name, email, avatar_url, seeded_at, created_at, updated_at`

// scanUser は1行分のユーザーをスキャンする。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.ExternalID, &user.ExternalUsername,
		&user.DisplayName, &user.Email, &user.AvatarURL,
		&user.SeededAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// FindByExternalID はexternal_idでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByExternalID(ctx context.Context, externalID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_id = $1`,
		externalID,
	)
	return scanUser(row)
}

// FindByExternalUsername はexternal_usernameでユーザーを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByExternalUsername(ctx context.Context, username string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE external_username = $1`,
		username,
	)
	return scanUser(row)
}

// Create はユーザーを作成する。
// ON CONFLICT DO NOTHINGにより、部分ユニークインデックス
// （external_id / external_username）との競合時は行を挿入せず
// created=falseを返す。同一の新規ユーザーに対する同時ログインでも
// 勝者は1リクエストだけになり、一意制約違反がエラーとして漏れることはない。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, external_id, external_username, display_name, email, avatar_url, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT DO NOTHING`,
		user.ID, user.ExternalID, user.ExternalUsername,
		user.DisplayName, user.Email, user.AvatarURL,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// UpdateProfile は表示名・メール・アバターを更新する。
// external_id / external_usernameは変更しない。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET display_name = $2, email = $3, avatar_url = $4, updated_at = now()
		 WHERE id = $1`,
		user.ID, user.DisplayName, user.Email, user.AvatarURL,
	)
	if err != nil {
		return fmt.Errorf("failed to update user profile: %w", err)
	}
	return nil
}

// LinkExternalID はexternal_idが未設定のユーザーにexternal_idを紐付ける。
// 条件付きUPDATE 1回で行うため、同時の紐付けが二重に成功することはない。
func (r *PostgresUserRepo) LinkExternalID(ctx context.Context, userID, externalID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET external_id = $2, updated_at = now()
		 WHERE id = $1 AND external_id IS NULL`,
		userID, externalID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to link external_id: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// ClaimSeeding はサンプルデータ投入のクレームをアトミックに立てる。
// 条件付きUPDATE 1回で判定するため、同一ユーザーへの同時ログインが
// 両方ともクレームを獲得することはない。
func (r *PostgresUserRepo) ClaimSeeding(ctx context.Context, userID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET seeded_at = now(), updated_at = now()
		 WHERE id = $1 AND seeded_at IS NULL`,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim seeding: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
