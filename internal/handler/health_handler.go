package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthCheckFunc はストレージバックエンドの疎通確認を行う。
type HealthCheckFunc func(ctx context.Context) error

// healthCheckTimeout はヘルスチェック1回あたりの上限時間。
const healthCheckTimeout = 3 * time.Second

// HealthHandler はヘルスチェック用のハンドラーを生成する。
// checkがnilの場合は常に200を返す。
// GET /health
func HealthHandler(check HealthCheckFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := check(ctx); err != nil {
				slog.Warn("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
