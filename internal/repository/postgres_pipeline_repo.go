package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/jobflow/internal/model"
)

// PostgresPipelineRepo はPostgreSQLを使用したパイプラインリポジトリ。
// 工程名リスト（steps）はtext[]カラムに保持する。
type PostgresPipelineRepo struct {
	db *sql.DB
}

// NewPostgresPipelineRepo はPostgresPipelineRepoを生成する。
func NewPostgresPipelineRepo(db *sql.DB) *PostgresPipelineRepo {
	return &PostgresPipelineRepo{db: db}
}

// ListByUserID はユーザーのパイプライン一覧をcreated_at降順で返す。
func (r *PostgresPipelineRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Pipeline, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, steps, job_count, created_at, updated_at
		 FROM pipelines
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pipelines: %w", err)
	}
	defer rows.Close()

	var pipelines []*model.Pipeline
	for rows.Next() {
		p := &model.Pipeline{}
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.Description,
			pq.Array(&p.Steps), &p.JobCount, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pipeline: %w", err)
		}
		pipelines = append(pipelines, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pipelines: %w", err)
	}

	return pipelines, nil
}

// Create はパイプラインを作成する。
func (r *PostgresPipelineRepo) Create(ctx context.Context, pipeline *model.Pipeline) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO pipelines (id, user_id, name, description, steps, job_count, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		pipeline.ID, pipeline.UserID, pipeline.Name, pipeline.Description,
		pq.Array(pipeline.Steps), pipeline.JobCount,
		pipeline.CreatedAt, pipeline.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert pipeline: %w", err)
	}
	return nil
}

// CountByUserID はユーザーのパイプライン数を返す。
func (r *PostgresPipelineRepo) CountByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pipelines WHERE user_id = $1`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pipelines: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ PipelineRepository = (*PostgresPipelineRepo)(nil)
