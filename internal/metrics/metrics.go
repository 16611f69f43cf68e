// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// HTTPミドルウェア、ドメインサービス、ワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
	RecordGeneration(modelID, outcome string, duration time.Duration)
	RecordAssistant(outcome string)
	RecordAuthEvent(action, outcome string)
	RecordStoreOp(op, outcome string)
	RecordSessionsCleaned(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
	generations       *prometheus.CounterVec
	generationLatency *prometheus.HistogramVec
	assistant         *prometheus.CounterVec
	authEvents        *prometheus.CounterVec
	storeOps          *prometheus.CounterVec
	sessionsCleaned   prometheus.Counter
}

// generationBuckets は生成呼び出しのレイテンシ用バケット(秒)。数十秒かかることがある。
var generationBuckets = []float64{1, 2.5, 5, 10, 20, 30, 60, 120}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumap_http_requests_total",
			Help: "ルート・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edumap_http_request_duration_seconds",
			Help:    "HTTPリクエストの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumap_generations_total",
			Help: "モデル・結果別のカリキュラム生成数",
		}, []string{"model", "outcome"}),
		generationLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "edumap_generation_duration_seconds",
			Help:    "生成モデル呼び出しのレイテンシ（秒）",
			Buckets: generationBuckets,
		}, []string{"model"}),
		assistant: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumap_assistant_requests_total",
			Help: "結果別のアシスタント問い合わせ数",
		}, []string{"outcome"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumap_auth_events_total",
			Help: "操作・結果別の認証イベント数",
		}, []string{"action", "outcome"}),
		storeOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "edumap_library_operations_total",
			Help: "操作・結果別のライブラリ操作数",
		}, []string{"op", "outcome"}),
		sessionsCleaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "edumap_sessions_cleaned_total",
			Help: "削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.generations,
		c.generationLatency,
		c.assistant,
		c.authEvents,
		c.storeOps,
		c.sessionsCleaned,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの結果と処理時間を記録する。
// routeにはパスではなくルートパターンを渡す。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordGeneration はカリキュラム生成の結果を記録する。
func (c *Collector) RecordGeneration(modelID, outcome string, duration time.Duration) {
	c.generations.WithLabelValues(modelID, outcome).Inc()
	c.generationLatency.WithLabelValues(modelID).Observe(duration.Seconds())
}

// RecordAssistant はアシスタント問い合わせの結果を記録する。
func (c *Collector) RecordAssistant(outcome string) {
	c.assistant.WithLabelValues(outcome).Inc()
}

// RecordAuthEvent は認証イベントを記録する。
func (c *Collector) RecordAuthEvent(action, outcome string) {
	c.authEvents.WithLabelValues(action, outcome).Inc()
}

// RecordStoreOp はライブラリ操作を記録する。
func (c *Collector) RecordStoreOp(op, outcome string) {
	c.storeOps.WithLabelValues(op, outcome).Inc()
}

// RecordSessionsCleaned は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsCleaned(count int64) {
	c.sessionsCleaned.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// ワーカーモードなどAPIルーターを持たないプロセスで使用する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
