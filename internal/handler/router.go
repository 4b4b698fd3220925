package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/taskdeck/internal/middleware"
)

// HealthChecker はヘルスチェックに必要なインターフェース。
// *sql.DBがそのまま満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	MetricsRecorder   middleware.HTTPMetricsRecorder // nilの場合はHTTPメトリクスを記録しない

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// カテゴリ
	CategoryService CategoryServiceInterface

	// タスク
	TaskService TaskServiceInterface

	// 業務イベントメトリクス
	EventRecorder MetricsRecorder

	// ヘルスチェック
	HealthChecker HealthChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	CORS → SecurityHeaders → Recovery → Logging → Metrics
//	→ （認証ルート）CSRF → GuestOnly → RateLimit(Auth)
//	→ （APIルート）CSRF → Session → RateLimit(General)
//
// ヘルスチェック（/healthz）とCSRFトークン取得はガードの外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default()))
	if deps.MetricsRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.MetricsRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig, deps.EventRecorder)
	categoryHandler := NewCategoryHandler(deps.CategoryService)
	taskHandler := NewTaskHandler(deps.TaskService, deps.EventRecorder)

	csrf := middleware.NewCSRFMiddleware(deps.CSRFConfig)
	guestOnly := middleware.NewGuestOnlyMiddleware(deps.SessionFinder)
	session := middleware.NewSessionMiddleware(deps.SessionFinder)

	// --- 認証不要のルート ---

	// ヘルスチェック
	r.Get("/healthz", newHealthzHandler(deps.HealthChecker))

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート
	r.Route("/auth", func(r chi.Router) {
		r.Use(csrf)
		r.Use(deps.RateLimiter.AuthMiddleware())

		// サインアップ・サインインはゲスト専用
		r.With(guestOnly).Post("/register", authHandler.Register)
		r.With(guestOnly).Post("/login", authHandler.Login)

		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- サインイン必須のルート ---
	// ミドルウェアスタック: CSRF → Session → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(csrf)
		r.Use(session)
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// カテゴリ管理
		r.Route("/api/categories", func(r chi.Router) {
			r.Get("/", categoryHandler.List)
			r.Post("/", categoryHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", categoryHandler.Get)
				r.Put("/", categoryHandler.Update)
				r.Delete("/", categoryHandler.Delete)
			})
		})

		// タスク管理
		r.Route("/api/tasks", func(r chi.Router) {
			r.Get("/", taskHandler.List)
			r.Post("/", taskHandler.Create)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Put("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)

				r.Patch("/status", taskHandler.UpdateStatus)
			})
		})
	})

	return r
}

// newHealthzHandler はヘルスチェックエンドポイントのハンドラーを返す。
// DBへの疎通を確認し、失敗時は503を返す。
func newHealthzHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			if err := checker.PingContext(r.Context()); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
