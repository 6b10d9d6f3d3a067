package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/jobflow/internal/model"
)

// PostgresJobRepo はPostgreSQLを使用したジョブリポジトリ。
type PostgresJobRepo struct {
	db *sql.DB
}

// NewPostgresJobRepo はPostgresJobRepoを生成する。
func NewPostgresJobRepo(db *sql.DB) *PostgresJobRepo {
	return &PostgresJobRepo{db: db}
}

// ListByUserID はユーザーのジョブ一覧をcreated_at降順で返す。
func (r *PostgresJobRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Job, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, customer, pipeline, current_step, status, due_date, progress, created_at, updated_at
		 FROM jobs
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job := &model.Job{}
		if err := rows.Scan(
			&job.ID, &job.UserID, &job.Title, &job.Customer, &job.Pipeline,
			&job.CurrentStep, &job.Status, &job.DueDate, &job.Progress,
			&job.CreatedAt, &job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// Create はジョブを作成する。
func (r *PostgresJobRepo) Create(ctx context.Context, job *model.Job) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO jobs (id, user_id, title, customer, pipeline, current_step, status, due_date, progress, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		job.ID, job.UserID, job.Title, job.Customer, job.Pipeline,
		job.CurrentStep, job.Status, job.DueDate, job.Progress,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}
	return nil
}

// CountActiveByUserID はユーザーの進行中ジョブ数を返す。
func (r *PostgresJobRepo) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs WHERE user_id = $1 AND status = 'active'`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active jobs: %w", err)
	}
	return count, nil
}

// CountDueBetween はユーザーの進行中ジョブのうち、期限が
// [from, to] の範囲にあるものの数を返す。
func (r *PostgresJobRepo) CountDueBetween(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM jobs
		 WHERE user_id = $1 AND status = 'active'
		   AND due_date IS NOT NULL AND due_date >= $2 AND due_date <= $3`,
		userID, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count due jobs: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ JobRepository = (*PostgresJobRepo)(nil)
