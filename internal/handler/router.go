package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/mindpalace/internal/metrics"
	"github.com/hitoshi/mindpalace/internal/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// インフラ
	HealthChecker    HealthChecker
	MetricsCollector metrics.MetricsCollector
	MetricsGatherer  prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ノート
	NoteService NoteServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Logging → Recovery → SecurityHeaders → CORS → Metrics
//	  公開ルート:   CSRF（signup/loginはIP単位のレート制限を追加）
//	  認証ルート:   Session → RateLimit(General) → CSRF
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.MetricsCollector != nil {
		r.Use(metrics.NewHTTPMiddleware(deps.MetricsCollector))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	noteHandler := NewNoteHandler(deps.NoteService)
	userHandler := NewUserHandler(deps.UserService)

	// --- インフラ ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsGatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.MetricsGatherer))
	}

	// --- 認証不要のルート ---
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.SignupMiddleware())
			r.Post("/api/auth/signup", authHandler.Signup)
			r.Post("/api/auth/login", authHandler.Login)
		})
		r.Post("/api/auth/logout", authHandler.Logout)
	})

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Get("/api/auth/me", authHandler.Me)

		r.Route("/api/notes", func(r chi.Router) {
			r.Post("/", noteHandler.CreateNote)
			r.Get("/", noteHandler.ListNotes)
			r.Get("/recent", noteHandler.RecentNotes)
			r.Get("/trash", noteHandler.TrashNotes)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", noteHandler.GetNote)
				r.Put("/", noteHandler.UpdateNote)
				r.Delete("/", noteHandler.DeleteNote)
				r.Put("/trash", noteHandler.ToggleTrash)
			})
		})

		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
