// Package metrics exposes Prometheus counters for the game engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Metrics owns a private registry. All methods are safe on a nil receiver so
// callers and tests can run without metrics.
type Metrics struct {
	registry *prometheus.Registry

	attacks      *prometheus.CounterVec
	purchases    *prometheus.CounterVec
	dailyBonuses prometheus.Counter
	storeRetries prometheus.Counter
	swept        *prometheus.CounterVec
	throttled    prometheus.Counter
	opErrors     *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		attacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "missile_attacks_total",
			Help: "Resolved attacks by result",
		}, []string{"result"}),
		purchases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "missile_purchases_total",
			Help: "Committed purchases by currency",
		}, []string{"currency"}),
		dailyBonuses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "missile_daily_bonuses_total",
			Help: "Daily bonuses granted",
		}),
		storeRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "missile_store_retries_total",
			Help: "Transactions retried after a transient store error",
		}),
		swept: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "missile_swept_rows_total",
			Help: "Expired rows purged by the sweeper",
		}, []string{"table"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "missile_throttled_requests_total",
			Help: "Requests rejected by the per-user rate limiter",
		}),
		opErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "missile_operation_errors_total",
			Help: "Core operations that returned an error, by operation and kind",
		}, []string{"op", "kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "missile_ops_http_requests_total",
			Help: "Requests served by the ops HTTP server",
		}, []string{"method", "endpoint", "status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "missile_ops_http_request_duration_seconds",
			Help:    "Duration of ops HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}

	m.registry.MustRegister(
		m.attacks, m.purchases, m.dailyBonuses, m.storeRetries, m.swept,
		m.throttled, m.opErrors, m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
	)

	log.Info().Msg("Prometheus metrics initialized")
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Attack(result string) {
	if m == nil {
		return
	}
	m.attacks.WithLabelValues(result).Inc()
}

func (m *Metrics) Purchase(currency string) {
	if m == nil {
		return
	}
	m.purchases.WithLabelValues(currency).Inc()
}

func (m *Metrics) DailyBonus() {
	if m == nil {
		return
	}
	m.dailyBonuses.Inc()
}

// StoreRetry matches the db.Pool OnRetry hook signature.
func (m *Metrics) StoreRetry(error) {
	if m == nil {
		return
	}
	m.storeRetries.Inc()
}

func (m *Metrics) Swept(table string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) Throttled() {
	if m == nil {
		return
	}
	m.throttled.Inc()
}

func (m *Metrics) OperationError(op, kind string) {
	if m == nil {
		return
	}
	m.opErrors.WithLabelValues(op, kind).Inc()
}

// Middleware instruments gin requests.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		m.httpRequests.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			http.StatusText(c.Writer.Status()),
		).Inc()
		m.httpDuration.WithLabelValues(c.Request.Method, c.FullPath()).Observe(time.Since(start).Seconds())
	}
}
