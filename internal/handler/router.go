package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/jobflow/internal/middleware"
	"github.com/hitoshi/jobflow/internal/model"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	HealthChecker     HealthChecker
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           middleware.HTTPMetrics // nilの場合は計測しない
	MetricsHandler    http.Handler           // nilの場合は/metricsを公開しない
	RequestLogger     *slog.Logger           // nilの場合はリクエストログを出力しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// テナントリソース
	JobStore      JobStore
	CustomerStore CustomerStore
	PipelineStore PipelineStore

	// ダッシュボード集計
	JobCounter      JobCounter
	CustomerCounter ResourceCounter
	PipelineCounter ResourceCounter
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → CORS → SecurityHeaders → (Logging) → (Metrics)
//	  → SessionMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// 認証ルート（/auth/*）、/health、/metricsはセッションミドルウェアの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Recoveryを最上位に置き、後続ミドルウェア・ハンドラーのpanicをすべて捕捉する
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	if deps.RequestLogger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.RequestLogger))
	}
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}

	// 未定義ルートもJSONの統一エラーフォーマットで返す
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError())
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	jobHandler := NewJobHandler(deps.JobStore)
	customerHandler := NewCustomerHandler(deps.CustomerStore)
	pipelineHandler := NewPipelineHandler(deps.PipelineStore)
	dashboardHandler := NewDashboardHandler(deps.JobCounter, deps.CustomerCounter, deps.PipelineCounter)

	// --- 認証不要のルート ---

	r.Get("/health", newHealthHandler(deps.HealthChecker))

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Post("/github", authHandler.SimulatedLogin)
		r.Get("/github/login", authHandler.Login)
		r.Get("/github/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// ジョブ管理
		r.Route("/api/jobs", func(r chi.Router) {
			r.Get("/", jobHandler.ListJobs)
			// POST /api/jobs - 作成専用レート制限を追加
			r.With(deps.RateLimiter.CreationMiddleware()).Post("/", jobHandler.CreateJob)
		})

		// 顧客管理
		r.Route("/api/customers", func(r chi.Router) {
			r.Get("/", customerHandler.ListCustomers)
			r.With(deps.RateLimiter.CreationMiddleware()).Post("/", customerHandler.CreateCustomer)
		})

		// パイプライン管理
		r.Route("/api/pipelines", func(r chi.Router) {
			r.Get("/", pipelineHandler.ListPipelines)
			r.With(deps.RateLimiter.CreationMiddleware()).Post("/", pipelineHandler.CreatePipeline)
		})

		// ダッシュボード
		r.Get("/api/dashboard/stats", dashboardHandler.GetStats)
	})

	return r
}

// newHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// DBに到達できない場合は503を返す。
func newHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
