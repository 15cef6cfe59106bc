package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务监控指标
type Metrics struct {
	registry *prometheus.Registry

	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 留言提交指标
	SubmissionsTotal *prometheus.CounterVec // outcome: ok / email_failed / upload_failed
	UploadBytes      prometheus.Histogram
	EmailFailures    prometheus.Counter

	// 错误指标
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建并注册监控指标。
// 注册表由调用方注入，测试可以传入独立注册表避免重复注册
func NewMetrics(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voicemail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "voicemail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		SubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voicemail_submissions_total",
				Help: "Voicemail submissions by outcome",
			},
			[]string{"outcome"},
		),
		UploadBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voicemail_upload_bytes",
				Help:    "Size of uploaded audio files in bytes",
				Buckets: prometheus.ExponentialBuckets(1024, 4, 9),
			},
		),
		EmailFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "voicemail_email_failures_total",
				Help: "Notification emails that failed to send",
			},
		),

		PanicsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "voicemail_panics_total",
				Help: "Panics recovered at the HTTP boundary",
			},
		),
	}
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSubmission 记录一次留言提交结果
func (m *Metrics) RecordSubmission(outcome string) {
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

// RecordUploadSize 记录上传文件大小
func (m *Metrics) RecordUploadSize(n int) {
	m.UploadBytes.Observe(float64(n))
}

// RecordEmailFailure 记录一次通知投递失败
func (m *Metrics) RecordEmailFailure() {
	m.EmailFailures.Inc()
}

// RecordPanic 记录一次被恢复的 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// Handler 返回指标暴露端点的处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
