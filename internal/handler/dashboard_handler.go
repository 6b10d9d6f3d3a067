package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/jobflow/internal/middleware"
	"github.com/hitoshi/jobflow/internal/model"
)

// JobCounter はダッシュボードが必要とするジョブ集計インターフェース。
type JobCounter interface {
	CountActiveByUserID(ctx context.Context, userID string) (int, error)
	CountDueBetween(ctx context.Context, userID string, from, to time.Time) (int, error)
}

// ResourceCounter は顧客・パイプラインの件数集計インターフェース。
type ResourceCounter interface {
	CountByUserID(ctx context.Context, userID string) (int, error)
}

// DashboardHandler はダッシュボード統計のHTTPハンドラー。
type DashboardHandler struct {
	jobs      JobCounter
	customers ResourceCounter
	pipelines ResourceCounter
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(jobs JobCounter, customers, pipelines ResourceCounter) *DashboardHandler {
	return &DashboardHandler{
		jobs:      jobs,
		customers: customers,
		pipelines: pipelines,
	}
}

// GetStats はダッシュボードの集計値を返す。
// 「今週期限」は現在時刻から7日後までの進行中ジョブを数える。
// GET /api/dashboard/stats
func (h *DashboardHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	ctx := r.Context()

	activeJobs, err := h.jobs.CountActiveByUserID(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	totalCustomers, err := h.customers.CountByUserID(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	totalPipelines, err := h.pipelines.CountByUserID(ctx, userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	now := time.Now()
	dueThisWeek, err := h.jobs.CountDueBetween(ctx, userID, now, now.AddDate(0, 0, 7))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	stats := model.DashboardStats{
		ActiveJobs:      activeJobs,
		TotalCustomers:  totalCustomers,
		TotalPipelines:  totalPipelines,
		JobsDueThisWeek: dueThisWeek,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
