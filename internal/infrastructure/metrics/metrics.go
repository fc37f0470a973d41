package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "free_shipping_bar"

// Metrics holds the collectors exported at /metrics.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	scripts      *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
	oauth        *prometheus.CounterVec
	cartReads    *prometheus.CounterVec
	cartReadTime prometheus.Histogram
}

// New registers the service metrics on reg. A nil registry yields a no-op
// Metrics value.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	m := &Metrics{
		gatherer: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		scripts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "script_renders_total",
			Help:      "Banner scripts served by outcome.",
		}, []string{"outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by topic and result.",
		}, []string{"topic", "result"}),
		oauth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oauth_callbacks_total",
			Help:      "OAuth callbacks by result.",
		}, []string{"result"}),
		cartReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_reads_total",
			Help:      "Cart reads performed by the banner runtime by result.",
		}, []string{"result"}),
		cartReadTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cart_read_duration_seconds",
			Help:      "Cart read latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.httpRequests, m.httpDuration, m.scripts, m.webhooks, m.oauth, m.cartReads, m.cartReadTime,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// IncScriptRender counts a served banner script.
func (m *Metrics) IncScriptRender(outcome string) {
	if m == nil || m.scripts == nil {
		return
	}
	m.scripts.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhook counts a webhook delivery.
func (m *Metrics) IncWebhook(topic, result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(topic), normalizeLabel(result)).Inc()
}

// IncOAuth counts an OAuth callback.
func (m *Metrics) IncOAuth(result string) {
	if m == nil || m.oauth == nil {
		return
	}
	m.oauth.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveCartRead records one cart read of the banner runtime.
func (m *Metrics) ObserveCartRead(err error, duration time.Duration) {
	if m == nil || m.cartReads == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.cartReads.WithLabelValues(result).Inc()
	m.cartReadTime.Observe(duration.Seconds())
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
