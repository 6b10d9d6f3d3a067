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

// CustomerStore は顧客ハンドラーが必要とする永続化インターフェース。
type CustomerStore interface {
	ListByUserID(ctx context.Context, userID string) ([]*model.Customer, error)
	Create(ctx context.Context, customer *model.Customer) error
}

// CustomerHandler は顧客管理のHTTPハンドラー。
type CustomerHandler struct {
	store CustomerStore
}

// NewCustomerHandler はCustomerHandlerを生成する。
func NewCustomerHandler(store CustomerStore) *CustomerHandler {
	return &CustomerHandler{store: store}
}

// createCustomerRequest は顧客作成リクエストのボディ。
type createCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// customerResponse は顧客情報のAPIレスポンス。
type customerResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	ActiveJobs int    `json:"active_jobs"`
	TotalJobs  int    `json:"total_jobs"`
	CreatedAt  string `json:"created_at"`
}

// ListCustomers はログインユーザーの顧客一覧を返す。
// GET /api/customers
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	customers, err := h.store.ListByUserID(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]customerResponse, 0, len(customers))
	for _, c := range customers {
		resp = append(resp, toCustomerResponse(c))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreateCustomer は顧客を作成する。
// POST /api/customers
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createCustomerRequest
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
			Message:  "顧客名が空です。",
			Category: "validation",
			Action:   "顧客名を指定してください。",
		})
		return
	}

	now := time.Now()
	customer := &model.Customer{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.Create(r.Context(), customer); err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toCustomerResponse(customer))
}

// toCustomerResponse はmodel.CustomerからAPIレスポンスに変換する。
func toCustomerResponse(c *model.Customer) customerResponse {
	return customerResponse{
		ID:         c.ID,
		Name:       c.Name,
		Email:      c.Email,
		Phone:      c.Phone,
		ActiveJobs: c.ActiveJobs,
		TotalJobs:  c.TotalJobs,
		CreatedAt:  c.CreatedAt.Format(time.RFC3339),
	}
}
