package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jobflow/internal/middleware"
	"github.com/hitoshi/jobflow/internal/model"
)

// JobStore はジョブハンドラーが必要とする永続化インターフェース。
// repository.JobRepositoryの部分集合として定義する。
type JobStore interface {
	ListByUserID(ctx context.Context, userID string) ([]*model.Job, error)
	Create(ctx context.Context, job *model.Job) error
}

// JobHandler はジョブ管理のHTTPハンドラー。
type JobHandler struct {
	store JobStore
}

// NewJobHandler はJobHandlerを生成する。
func NewJobHandler(store JobStore) *JobHandler {
	return &JobHandler{store: store}
}

// createJobRequest はジョブ作成リクエストのボディ。
type createJobRequest struct {
	Title       string `json:"title"`
	Customer    string `json:"customer"`
	Pipeline    string `json:"pipeline"`
	CurrentStep string `json:"current_step"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date"` // RFC 3339。省略可
	Progress    *int   `json:"progress"`
}

// jobResponse はジョブ情報のAPIレスポンス。
type jobResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Customer    string `json:"customer"`
	Pipeline    string `json:"pipeline"`
	CurrentStep string `json:"current_step"`
	Status      string `json:"status"`
	DueDate     string `json:"due_date,omitempty"`
	Progress    int    `json:"progress"`
	CreatedAt   string `json:"created_at"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListJobs はログインユーザーのジョブ一覧を返す。
// GET /api/jobs
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	jobs, err := h.store.ListByUserID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, toJobResponse(job))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreateJob はジョブを作成する。
// POST /api/jobs
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.Title == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "タイトルが空です。",
			Category: "validation",
			Action:   "タイトルを指定してください。",
		})
		return
	}

	// ステータスは省略時active
	status := model.JobStatus(req.Status)
	if req.Status == "" {
		status = model.JobStatusActive
	}
	if !model.ValidJobStatus(status) {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, model.NewInvalidJobStatusError(req.Status))
		return
	}

	progress := 0
	if req.Progress != nil {
		progress = *req.Progress
	}
	if progress < 0 || progress > 100 {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, model.NewInvalidProgressError(progress))
		return
	}

	var dueDate *time.Time
	if req.DueDate != "" {
		t, err := time.Parse(time.RFC3339, req.DueDate)
		if err != nil {
			writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     model.ErrCodeInvalidRequest,
				Message:  "期限の形式が不正です。",
				Category: "validation",
				Action:   "期限はRFC 3339形式で指定してください。",
			})
			return
		}
		dueDate = &t
	}

	now := time.Now()
	job := &model.Job{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       req.Title,
		Customer:    req.Customer,
		Pipeline:    req.Pipeline,
		CurrentStep: req.CurrentStep,
		Status:      status,
		DueDate:     dueDate,
		Progress:    progress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.Create(r.Context(), job); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toJobResponse(job))
}

// --- ヘルパー関数 ---

// toJobResponse はmodel.JobからAPIレスポンスに変換する。
func toJobResponse(job *model.Job) jobResponse {
	resp := jobResponse{
		ID:          job.ID,
		Title:       job.Title,
		Customer:    job.Customer,
		Pipeline:    job.Pipeline,
		CurrentStep: job.CurrentStep,
		Status:      string(job.Status),
		Progress:    job.Progress,
		CreatedAt:   job.CreatedAt.Format(time.RFC3339),
	}
	if job.DueDate != nil {
		resp.DueDate = job.DueDate.Format(time.RFC3339)
	}
	return resp
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// APIErrorにマップできないエラーはデータストア障害とみなし、
// リトライ可能であることを示す503で返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	slog.Error("dependency error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusServiceUnavailable, model.NewDependencyUnavailableError())
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidProfile, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeInvalidJobStatus, model.ErrCodeInvalidProgress:
		return http.StatusUnprocessableEntity
	case model.ErrCodeDependencyUnavailable:
		return http.StatusServiceUnavailable
	case model.ErrCodeSeedingIncomplete:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
