package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// unmatchedRoute заменяет путь запросов, не попавших ни в один маршрут
const unmatchedRoute = "unmatched"

var latencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// PrometheusMiddleware считает HTTP-запросы REST API по шаблонам маршрутов.
// Метрики: <service>_http_requests_total, <service>_http_request_duration_seconds,
// <service>_http_request_errors_total (код >= 400), <service>_http_requests_inflight.
type PrometheusMiddleware struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	inflight prometheus.Gauge
}

// NewPrometheusMiddleware регистрирует метрики в reg; nil означает дефолтный регистр
func NewPrometheusMiddleware(service string, reg prometheus.Registerer) *PrometheusMiddleware {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	labels := []string{"method", "route", "code"}

	pm := &PrometheusMiddleware{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_requests_total",
			Help:      "Обработанные HTTP-запросы.",
		}, labels),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: service,
			Name:      "http_request_duration_seconds",
			Help:      "Время обработки HTTP-запроса.",
			Buckets:   latencyBuckets,
		}, labels),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: service,
			Name:      "http_request_errors_total",
			Help:      "Запросы с кодом ответа 4xx и 5xx.",
		}, labels),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: service,
			Name:      "http_requests_inflight",
			Help:      "Запросы в обработке.",
		}),
	}
	reg.MustRegister(pm.requests, pm.duration, pm.errors, pm.inflight)
	return pm
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return unmatchedRoute
}

// Handler возвращает middleware для router.Use
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		pm.inflight.Inc()
		start := time.Now()

		c.Next()

		pm.inflight.Dec()
		code := c.Writer.Status()
		lv := []string{c.Request.Method, routeOf(c), strconv.Itoa(code)}

		pm.requests.WithLabelValues(lv...).Inc()
		pm.duration.WithLabelValues(lv...).Observe(time.Since(start).Seconds())
		if code >= 400 {
			pm.errors.WithLabelValues(lv...).Inc()
		}
	}
}

// RegisterMetricsEndpoint вешает GET /metrics на gatherer; nil означает дефолтный регистр
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine, gatherer prometheus.Gatherer) {
	h := promhttp.Handler()
	if gatherer != nil {
		h = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	r.GET("/metrics", gin.WrapH(h))
}
