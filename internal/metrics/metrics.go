// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ログイン結果のラベル値
const (
	OutcomeSuccess       = "success"
	OutcomeRejected      = "rejected"
	OutcomeUnavailable   = "unavailable"
	OutcomeNotConfigured = "not_configured"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 認証サービス、ステータスチェッカー、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordAuthOutcome(flow string, outcome string)
	RecordUpstreamLatency(flow string, duration time.Duration)
	RecordServiceCheck(service string, up bool, duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authOutcome     *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	serviceUp       *prometheus.GaugeVec
	checkLatency    *prometheus.HistogramVec
	httpStatus      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_auth_requests_total",
			Help: "認証リクエストのフロー別・結果別の合計数",
		}, []string{"flow", "outcome"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_upstream_latency_seconds",
			Help:    "上流認証エンドポイント呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"flow"}),
		serviceUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "portal_service_up",
			Help: "直近のヘルスチェックで到達可能だったか（1: 到達可能, 0: 到達不能）",
		}, []string{"service"}),
		checkLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "portal_status_check_latency_seconds",
			Help:    "サービスごとのヘルスチェックのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.authOutcome,
		c.upstreamLatency,
		c.serviceUp,
		c.checkLatency,
		c.httpStatus,
	)

	return c
}

// RecordAuthOutcome は認証フローの結果を記録する。
func (c *Collector) RecordAuthOutcome(flow string, outcome string) {
	c.authOutcome.WithLabelValues(flow, outcome).Inc()
}

// RecordUpstreamLatency は上流呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(flow string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(flow).Observe(duration.Seconds())
}

// RecordServiceCheck はサービス1件分のヘルスチェック結果を記録する。
func (c *Collector) RecordServiceCheck(service string, up bool, duration time.Duration) {
	v := 0.0
	if up {
		v = 1
	}
	c.serviceUp.WithLabelValues(service).Set(v)
	c.checkLatency.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントのみを提供するHTTPハンドラーを返す。
// monitorモードのように、APIルーターを持たないプロセスで使用する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
