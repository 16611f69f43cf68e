package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/edumap/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	HTTPRecorder      middleware.HTTPRecorder

	// 運用
	HealthCheck    HealthCheckFunc
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// カリキュラム
	Generator GeneratorInterface
	Library   LibraryInterface
	Renderer  RendererInterface
	Models    ModelCatalog

	// アシスタント
	AssistantService AssistantServiceInterface

	// ユーザー
	UserService UserServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics
//	  認証が必要なルートのみ: → Session → CSRF → RateLimit(General)
//	  生成・アシスタントのみ: → RateLimit(Generation)
//
// 認証ルート（/auth/signup, /auth/signin, /auth/signout）はセッション検証の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPRecorder != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPRecorder))
	}

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	curriculumHandler := NewCurriculumHandler(deps.Generator, deps.Library, deps.Renderer)
	assistantHandler := NewAssistantHandler(deps.AssistantService)
	userHandler := NewUserHandler(deps.UserService, deps.AuthConfig)

	// --- 認証不要のルート ---

	r.Get("/health", HealthHandler(deps.HealthCheck))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/signin", authHandler.SignIn)
		r.Post("/signout", authHandler.SignOut)

		r.With(middleware.NewSessionMiddleware(deps.SessionResolver)).Get("/me", authHandler.Me)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
		r.Get("/api/models", ModelsHandler(deps.Models))

		r.Route("/api/curricula", func(r chi.Router) {
			r.Get("/", curriculumHandler.List)
			r.Post("/", curriculumHandler.Save)
			r.Get("/subjects", curriculumHandler.Subjects)

			// POST /api/curricula/generate - 生成専用レート制限を追加
			r.With(deps.RateLimiter.GenerationMiddleware()).Post("/generate", curriculumHandler.Generate)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", curriculumHandler.Get)
				r.Put("/", curriculumHandler.Update)
				r.Delete("/", curriculumHandler.Delete)
				r.Put("/rating", curriculumHandler.Rate)
				r.Get("/resources", curriculumHandler.Resources)
				r.Get("/export", curriculumHandler.Export)
			})
		})

		r.With(deps.RateLimiter.GenerationMiddleware()).Post("/api/assistant", assistantHandler.Ask)

		r.Route("/api/users", func(r chi.Router) {
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}
