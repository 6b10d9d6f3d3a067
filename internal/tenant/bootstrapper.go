// Package tenant は新規テナントへの初期データ投入を提供する。
// 投入は「カウントしてゼロなら作成」ではなく、ユーザー行への
// アトミックなクレーム（条件付きUPDATE）でゲートする。クレームに
// 勝った1リクエストだけがリソースを作成し、同時ログインによる
// 二重投入の窓を作らない。
package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jobflow/internal/model"
	"github.com/hitoshi/jobflow/internal/repository"
)

// Bootstrapper は新規テナントの初期データ投入を担う。
type Bootstrapper struct {
	users     repository.UserRepository
	jobs      repository.JobRepository
	customers repository.CustomerRepository
	pipelines repository.PipelineRepository
}

// NewBootstrapper はBootstrapperを生成する。
func NewBootstrapper(
	users repository.UserRepository,
	jobs repository.JobRepository,
	customers repository.CustomerRepository,
	pipelines repository.PipelineRepository,
) *Bootstrapper {
	return &Bootstrapper{
		users:     users,
		jobs:      jobs,
		customers: customers,
		pipelines: pipelines,
	}
}

// EnsureSeeded はユーザーのテナントに初期データが存在することを保証する。
// 投入は高々1回。クレームを先に立ててからリソースを作成する
// （claim-then-create）ため、途中失敗は「クレーム済みだが未完了」に
// 留まり、二重投入には決してならない。
//
// 途中失敗時はSEEDING_INCOMPLETEを返す。クレームは立ったままなので
// 次回ログインで自動的に再投入されることはなく、復旧は運用作業となる。
func (b *Bootstrapper) EnsureSeeded(ctx context.Context, user *model.User, wasCreated bool) error {
	// 既存ユーザーでクレーム済みなら追加のラウンドトリップなしで終了
	if !wasCreated && user.Seeded() {
		return nil
	}

	claimed, err := b.users.ClaimSeeding(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to claim seeding: %w", err)
	}
	if !claimed {
		// 同時ログインの別リクエストが投入中、または投入済み
		return nil
	}

	slog.Info("seeding tenant",
		slog.String("user_id", user.ID),
	)

	if err := b.seed(ctx, user.ID); err != nil {
		slog.Error("tenant seeding incomplete",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %v", model.NewSeedingIncompleteError(), err)
	}

	slog.Info("tenant seeded",
		slog.String("user_id", user.ID),
	)
	return nil
}

// seed はテンプレートの内容をユーザーのテナントに作成する。
func (b *Bootstrapper) seed(ctx context.Context, userID string) error {
	tmpl := defaultTemplate()
	now := time.Now()

	for _, p := range tmpl.Pipelines {
		pipeline := &model.Pipeline{
			ID:          uuid.New().String(),
			UserID:      userID,
			Name:        p.Name,
			Description: p.Description,
			Steps:       p.Steps,
			JobCount:    p.JobCount,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := b.pipelines.Create(ctx, pipeline); err != nil {
			return fmt.Errorf("failed to create starter pipeline %q: %w", p.Name, err)
		}
	}

	for _, c := range tmpl.Customers {
		customer := &model.Customer{
			ID:         uuid.New().String(),
			UserID:     userID,
			Name:       c.Name,
			Email:      c.Email,
			Phone:      c.Phone,
			ActiveJobs: c.ActiveJobs,
			TotalJobs:  c.TotalJobs,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := b.customers.Create(ctx, customer); err != nil {
			return fmt.Errorf("failed to create starter customer %q: %w", c.Name, err)
		}
	}

	for _, j := range tmpl.Jobs {
		job := &model.Job{
			ID:          uuid.New().String(),
			UserID:      userID,
			Title:       j.Title,
			Customer:    j.Customer,
			Pipeline:    j.Pipeline,
			CurrentStep: j.CurrentStep,
			Status:      model.JobStatus(j.Status),
			DueDate:     j.DueDate,
			Progress:    j.Progress,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := b.jobs.Create(ctx, job); err != nil {
			return fmt.Errorf("failed to create starter job %q: %w", j.Title, err)
		}
	}

	return nil
}
