package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jobflow/internal/middleware"
	"github.com/hitoshi/jobflow/internal/model"
)

// PipelineStore はパイプラインハンドラーが必要とする永続化インターフェース。
type PipelineStore interface {
	ListByUserID(ctx context.Context, userID string) ([]*model.Pipeline, error)
	Create(ctx context.Context, pipeline *model.Pipeline) error
}

// PipelineHandler はパイプライン管理のHTTPハンドラー。
type PipelineHandler struct {
	store PipelineStore
}

// NewPipelineHandler はPipelineHandlerを生成する。
func NewPipelineHandler(store PipelineStore) *PipelineHandler {
	return &PipelineHandler{store: store}
}

// createPipelineRequest はパイプライン作成リクエストのボディ。
type createPipelineRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
}

// pipelineResponse はパイプライン情報のAPIレスポンス。
type pipelineResponse struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Steps       []string `json:"steps"`
	JobCount    int      `json:"job_count"`
	CreatedAt   string   `json:"created_at"`
}

// ListPipelines はログインユーザーのパイプライン一覧を返す。
// GET /api/pipelines
func (h *PipelineHandler) ListPipelines(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	pipelines, err := h.store.ListByUserID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]pipelineResponse, 0, len(pipelines))
	for _, p := range pipelines {
		resp = append(resp, toPipelineResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreatePipeline はパイプラインを作成する。
// POST /api/pipelines
func (h *PipelineHandler) CreatePipeline(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "リクエストボディの解析に失敗しました。",
			Category: "validation",
			Action:   "正しいJSON形式でリクエストしてください。",
		})
		return
	}

	if req.Name == "" {
		writeAPIErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     model.ErrCodeInvalidRequest,
			Message:  "パイプライン名が空です。",
			Category: "validation",
			Action:   "パイプライン名を指定してください。",
		})
		return
	}

	steps := req.Steps
	if steps == nil {
		steps = []string{}
	}

	now := time.Now()
	pipeline := &model.Pipeline{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        req.Name,
		Description: req.Description,
		Steps:       steps,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.Create(r.Context(), pipeline); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPipelineResponse(pipeline))
}

// toPipelineResponse はmodel.PipelineからAPIレスポンスに変換する。
func toPipelineResponse(p *model.Pipeline) pipelineResponse {
	return pipelineResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Steps:       p.Steps,
		JobCount:    p.JobCount,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}
