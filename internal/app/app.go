package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/edumap/internal/assistant"
	"github.com/hitoshi/edumap/internal/auth"
	"github.com/hitoshi/edumap/internal/config"
	"github.com/hitoshi/edumap/internal/database"
	"github.com/hitoshi/edumap/internal/export"
	"github.com/hitoshi/edumap/internal/generation"
	"github.com/hitoshi/edumap/internal/handler"
	"github.com/hitoshi/edumap/internal/library"
	"github.com/hitoshi/edumap/internal/logger"
	"github.com/hitoshi/edumap/internal/metrics"
	"github.com/hitoshi/edumap/internal/middleware"
	"github.com/hitoshi/edumap/internal/security"
	"github.com/hitoshi/edumap/internal/user"
	"github.com/hitoshi/edumap/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. LOG_LEVELを反映する
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。ログはwへ、ローカルコマンドの結果は標準出力へ書き込む。
func Run(w io.Writer, args []string) error {
	return run(context.Background(), w, os.Stdout, args)
}

func run(ctx context.Context, w, out io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if cmd.IsLocal() {
		return runLocal(ctx, cfg, cmd, args[1:], out)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("storage", cfg.StorageDriver),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// newGenerationBackend はGemini APIのBackendを生成する。
func newGenerationBackend(ctx context.Context, cfg *config.Config) (*generation.GeminiBackend, error) {
	if err := cfg.ValidateGeneration(); err != nil {
		return nil, err
	}
	return generation.NewGeminiBackend(ctx, generation.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		BaseURL: cfg.GeminiBaseURL,
	})
}

// newGenerationService は画像取得付きのカリキュラム生成サービスを組み立てる。
func newGenerationService(backend generation.Backend, cfg *config.Config) *generation.Service {
	images := generation.NewHTTPImageFetcher(security.NewSSRFGuard(), cfg.ImageFetchTimeout, cfg.ImageMaxSize)
	return generation.NewService(backend, images, generation.ServiceConfig{
		DefaultModel: cfg.DefaultModel,
		Models:       cfg.Models.IDs(),
	})
}

// modelCatalog はAPIで公開するモデル一覧を組み立てる。
func modelCatalog(cfg *config.Config) handler.ModelCatalog {
	models := make([]handler.ModelInfo, 0, len(cfg.Models.Models))
	for _, m := range cfg.Models.Models {
		models = append(models, handler.ModelInfo{ID: m.ID, Label: m.Label, Description: m.Description})
	}
	return handler.ModelCatalog{Default: cfg.DefaultModel, Models: models}
}

// runServe はAPIサーバーモードで起動する。
// ストレージを開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	// 1. ストレージ
	storage, err := OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 3. ドメインサービスの初期化
	users := auth.NewRegistry(storage.KV)
	authService := auth.NewService(users, storage.Sessions, auth.NewTokenSigner(cfg.SessionSecret),
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge})
	authService.SetEventRecorder(collector)

	backend, err := newGenerationBackend(ctx, cfg)
	if err != nil {
		return err
	}
	generator := newGenerationService(backend, cfg)
	generator.SetRecorder(collector)

	store := library.NewStore(storage.KV)
	store.SetRecorder(collector)

	assistantService := assistant.NewService(backend, cfg.DefaultModel)
	assistantService.SetRecorder(collector)

	userService := user.NewService(users, storage.Sessions, store)

	// 4. ルーターの構築
	rateLimiter := middleware.NewRateLimiter(
		middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitGeneration))
	defer rateLimiter.Stop()

	authConfig := handler.AuthHandlerConfig{
		CookieDomain:  cfg.CookieDomain,
		CookieSecure:  cfg.CookieSecure,
		SessionMaxAge: cfg.SessionMaxAge,
	}

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		SessionResolver:   authService,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		HTTPRecorder: collector,

		HealthCheck:    storage.Ping,
		MetricsHandler: metrics.Handler(registry),

		AuthService: authService,
		AuthConfig:  authConfig,

		Generator: generator,
		Library:   store,
		Renderer:  export.NewExporter(security.NewContentSanitizer()),
		Models:    modelCatalog(cfg),

		AssistantService: assistantService,
		UserService:      userService,
	})

	// メモリストレージはワーカープロセスと共有できないため、サーバー内でクリーンアップする
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if cfg.StorageDriver == config.StorageMemory {
		job := cleanup.NewCleanupJob(storage.Sessions, slog.Default())
		job.SetRecorder(collector)
		go job.Start(ctx, cfg.SessionCleanupInterval)
	}

	// 5. HTTPサーバーの起動
	// 生成呼び出しは数十秒かかるため、WriteTimeoutは長めに取る
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// ストレージを開き、期限切れセッションのクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if cfg.StorageDriver == config.StorageMemory {
		return fmt.Errorf("worker requires persistent storage, STORAGE_DRIVER is %q", cfg.StorageDriver)
	}

	storage, err := OpenStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	go func() {
		select {
		case <-stop:
			slog.Info("shutting down worker...")
			cancel()
		case <-ctx.Done():
		}
	}()

	slog.Info("worker starting",
		slog.Duration("cleanup_interval", cfg.SessionCleanupInterval),
	)

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	job := cleanup.NewCleanupJob(storage.Sessions, slog.Default())
	job.Start(ctx, cfg.SessionCleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	var driver database.Driver
	var dsn string
	switch cfg.StorageDriver {
	case config.StoragePostgres:
		driver, dsn = database.DriverPostgres, cfg.DatabaseURL
	case config.StorageSQLite:
		driver, dsn = database.DriverSQLite, cfg.StorageDSN
	default:
		slog.Info("storage driver has no schema, nothing to migrate",
			slog.String("storage", cfg.StorageDriver),
		)
		return nil
	}

	slog.Info("running database migrations",
		slog.String("driver", string(driver)),
		slog.String("database_url", maskDatabaseURL(dsn)),
	)

	if err := database.RunMigrations(driver, dsn); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
