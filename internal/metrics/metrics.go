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
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
	RecordAuthSuccess(kind string)
	RecordAuthFailure(kind string)
	RecordTaskMutation(operation string)
	RecordSessionsSwept(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpRequests   *prometheus.CounterVec
	requestLatency prometheus.Histogram
	authSuccess    *prometheus.CounterVec
	authFailure    *prometheus.CounterVec
	taskMutations  *prometheus.CounterVec
	sessionsSwept  prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_http_requests_total",
			Help: "メソッド・ステータスコード別のHTTPリクエスト数",
		}, []string{"method", "status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "taskdeck_http_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		authSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_auth_success_total",
			Help: "認証成功の合計数（register/login別）",
		}, []string{"kind"}),
		authFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_auth_failure_total",
			Help: "認証失敗の合計数（register/login別）",
		}, []string{"kind"}),
		taskMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskdeck_task_mutations_total",
			Help: "タスク変更操作の合計数（操作種別別）",
		}, []string{"operation"}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskdeck_sessions_swept_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.requestLatency,
		c.authSuccess,
		c.authFailure,
		c.taskMutations,
		c.sessionsSwept,
	)

	return c
}

// RecordHTTPRequest はHTTPリクエストの完了を記録する。
func (c *Collector) RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	c.requestLatency.Observe(duration.Seconds())
}

// RecordAuthSuccess は認証成功を記録する。kindは"register"または"login"。
func (c *Collector) RecordAuthSuccess(kind string) {
	c.authSuccess.WithLabelValues(kind).Inc()
}

// RecordAuthFailure は認証失敗を記録する。kindは"register"または"login"。
func (c *Collector) RecordAuthFailure(kind string) {
	c.authFailure.WithLabelValues(kind).Inc()
}

// RecordTaskMutation はタスク変更操作を記録する。
// operationは"create"、"update"、"update_status"、"delete"のいずれか。
func (c *Collector) RecordTaskMutation(operation string) {
	c.taskMutations.WithLabelValues(operation).Inc()
}

// RecordSessionsSwept は削除された期限切れセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
