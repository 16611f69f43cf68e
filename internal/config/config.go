package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ストレージドライバー
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Storage
	StorageDriver string
	StorageDSN    string // sqliteのファイルパス
	DatabaseURL   string // postgres
	RedisURL      string // redis

	// Session
	SessionSecret          string
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Mock auth provider (ローカルコマンド)
	AuthSignInDelay time.Duration
	AuthSignUpDelay time.Duration

	// Gemini
	GeminiAPIKey  string
	GeminiBaseURL string
	DefaultModel  string
	Models        ModelCatalog

	// Source images
	ImageFetchTimeout time.Duration
	ImageMaxSize      int64

	// Rate Limit (req/min/user)
	RateLimitGeneral    int
	RateLimitGeneration int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 値の形式が不正な場合やモデルカタログが読めない場合はエラーを返す。
// サーバー起動に必要な値の有無はValidateServerで検証する。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.StorageDriver = strings.ToLower(getEnvString("STORAGE_DRIVER", StorageSQLite))
	if !slices.Contains([]string{StorageMemory, StorageSQLite, StoragePostgres, StorageRedis}, cfg.StorageDriver) {
		return nil, fmt.Errorf("unsupported STORAGE_DRIVER: %q", cfg.StorageDriver)
	}
	cfg.StorageDSN = getEnvString("STORAGE_DSN", "edumap.db")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.RedisURL = getEnvString("REDIS_URL", "redis://localhost:6379/0")

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)

	cfg.AuthSignInDelay = getEnvDuration("AUTH_SIGNIN_DELAY", 800*time.Millisecond)
	cfg.AuthSignUpDelay = getEnvDuration("AUTH_SIGNUP_DELAY", 1000*time.Millisecond)

	catalog, err := LoadCatalog(os.Getenv("MODEL_CATALOG_FILE"))
	if err != nil {
		return nil, err
	}
	cfg.Models = catalog
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	cfg.GeminiBaseURL = os.Getenv("GEMINI_BASE_URL")
	cfg.DefaultModel = getEnvString("DEFAULT_MODEL", catalog.Default)
	if !catalog.Has(cfg.DefaultModel) {
		return nil, fmt.Errorf("DEFAULT_MODEL %q is not in the model catalog", cfg.DefaultModel)
	}

	cfg.ImageFetchTimeout = getEnvDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second)
	cfg.ImageMaxSize = getEnvInt64("IMAGE_MAX_SIZE", 5242880)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitGeneration = getEnvInt("RATE_LIMIT_GENERATION", 10)

	cfg.LogLevel = strings.ToLower(getEnvString("LOG_LEVEL", "info"))

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = os.Getenv("BASE_URL")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

// ValidateServer はAPIサーバーの起動に必要な環境変数が揃っているかを検証する。
func (c *Config) ValidateServer() error {
	var missing []string
	if c.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if c.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.StorageDriver == StoragePostgres && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("required environment variables are not set: %v", missing)
	}
	return nil
}

// ValidateGeneration はカリキュラム生成・アシスタントに必要な環境変数を検証する。
func (c *Config) ValidateGeneration() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("required environment variables are not set: [GEMINI_API_KEY]")
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
