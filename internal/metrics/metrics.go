// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ワーカー、HTTPミドルウェアから利用する。
type MetricsCollector interface {
	RecordNoteSaved()
	RecordSignup()
	RecordLoginFailure()
	RecordCleanup(target string, deleted int64)
	RecordHTTPRequest(method, route string, statusCode int, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	notesSaved      prometheus.Counter
	signups         prometheus.Counter
	loginFailures   prometheus.Counter
	cleanupDeleted  *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		notesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindpalace_notes_saved_total",
			Help: "ノート保存（全体置換）の合計数",
		}),
		signups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindpalace_signups_total",
			Help: "サインアップ成功の合計数",
		}),
		loginFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mindpalace_login_failures_total",
			Help: "ログイン失敗の合計数",
		}),
		cleanupDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindpalace_cleanup_deleted_total",
			Help: "クリーンアップジョブで削除したレコード数",
		}, []string{"target"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mindpalace_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mindpalace_http_request_duration_seconds",
			Help:    "ルート別のHTTPリクエスト処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.notesSaved,
		c.signups,
		c.loginFailures,
		c.cleanupDeleted,
		c.httpStatus,
		c.requestDuration,
	)

	return c
}

// RecordNoteSaved はノート保存を記録する。
func (c *Collector) RecordNoteSaved() {
	c.notesSaved.Inc()
}

// RecordSignup はサインアップ成功を記録する。
func (c *Collector) RecordSignup() {
	c.signups.Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure() {
	c.loginFailures.Inc()
}

// RecordCleanup はクリーンアップ対象ごとの削除件数を記録する。
func (c *Collector) RecordCleanup(target string, deleted int64) {
	c.cleanupDeleted.WithLabelValues(target).Add(float64(deleted))
}

// RecordHTTPRequest はステータスコードと処理時間を記録する。
// routeはchiのルートパターン（/api/notes/{id}）で、IDごとにラベルが増えないようにする。
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	c.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// NewHTTPMiddleware はリクエストごとにRecordHTTPRequestを呼ぶミドルウェアを返す。
// chiのルーター配下で使用する。ルートに一致しない場合のrouteは"unmatched"。
func NewHTTPMiddleware(c MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			c.RecordHTTPRequest(r.Method, route, status, time.Since(start))
		})
	}
}

var _ MetricsCollector = (*Collector)(nil)
