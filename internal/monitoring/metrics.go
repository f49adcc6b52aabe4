package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 投递指标
	MailSendsTotal   *prometheus.CounterVec
	MailSendDuration prometheus.Histogram

	// 同步指标
	SyncRunsTotal     *prometheus.CounterVec
	SyncFetchedTotal  prometheus.Counter
	SyncRunDuration   prometheus.Histogram

	// 域名验证指标
	DNSVerificationsTotal *prometheus.CounterVec

	// 开通指标
	ProvisionsTotal *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailhost_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailhost_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		MailSendsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailhost_mail_sends_total",
				Help: "Total number of outbound mail deliveries by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),

		MailSendDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailhost_mail_send_duration_seconds",
				Help:    "Outbound mail delivery duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		SyncRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailhost_sync_runs_total",
				Help: "Total number of inbound sync runs by outcome",
			},
			[]string{"outcome"},
		),

		SyncFetchedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailhost_sync_messages_fetched_total",
				Help: "Total number of messages fetched by inbound sync",
			},
		),

		SyncRunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailhost_sync_run_duration_seconds",
				Help:    "Inbound sync run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		DNSVerificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailhost_dns_verifications_total",
				Help: "Total number of domain DNS verifications by result",
			},
			[]string{"result"},
		),

		ProvisionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailhost_provisions_total",
				Help: "Total number of external provisioning attempts by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
//
// 所有 Record 方法均容忍 nil 接收者，未启用监控的调用方无需判空。
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordMailSend 记录一次投递结果
func (m *Metrics) RecordMailSend(transport string, sent bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !sent {
		outcome = "failed"
	}
	if transport == "" {
		transport = "none"
	}
	m.MailSendsTotal.WithLabelValues(transport, outcome).Inc()
	m.MailSendDuration.Observe(duration.Seconds())
}

// RecordSyncRun 记录一次同步结果
func (m *Metrics) RecordSyncRun(outcome string, fetched int, duration time.Duration) {
	if m == nil {
		return
	}
	m.SyncRunsTotal.WithLabelValues(outcome).Inc()
	m.SyncFetchedTotal.Add(float64(fetched))
	m.SyncRunDuration.Observe(duration.Seconds())
}

// RecordDNSVerification 记录一次域名验证结果
func (m *Metrics) RecordDNSVerification(ok bool) {
	if m == nil {
		return
	}
	result := "verified"
	if !ok {
		result = "unverified"
	}
	m.DNSVerificationsTotal.WithLabelValues(result).Inc()
}

// RecordProvision 记录一次外部开通尝试
func (m *Metrics) RecordProvision(operation string, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.ProvisionsTotal.WithLabelValues(operation, outcome).Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
