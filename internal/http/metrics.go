package httpx

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// latencyBuckets counts requests by duration band.
type latencyBuckets struct {
	Lt50   uint64 `json:"lt50"`
	Lt100  uint64 `json:"lt100"`
	Lt300  uint64 `json:"lt300"`
	Gte300 uint64 `json:"gte300"`
}

// requestMetrics keeps the JSON counters served at /metrics.
type requestMetrics struct {
	mu      sync.Mutex
	success uint64
	errors  uint64
	latency latencyBuckets
}

// metricsSnapshot is the /metrics response shape.
type metricsSnapshot struct {
	Total   uint64         `json:"total"`
	Success uint64         `json:"success"`
	Error   uint64         `json:"error"`
	Latency latencyBuckets `json:"latency"`
}

func (m *requestMetrics) track(status int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if status >= http.StatusBadRequest {
		m.errors++
	} else {
		m.success++
	}
	switch ms := duration.Milliseconds(); {
	case ms < 50:
		m.latency.Lt50++
	case ms < 100:
		m.latency.Lt100++
	case ms < 300:
		m.latency.Lt300++
	default:
		m.latency.Gte300++
	}
}

func (m *requestMetrics) snapshot() metricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return metricsSnapshot{
		Total:   m.success + m.errors,
		Success: m.success,
		Error:   m.errors,
		Latency: m.latency,
	}
}

func (r *Router) initPrometheus() {
	r.metricsOnce.Do(func() {
		r.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskpulse",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		r.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskpulse",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		r.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskpulse",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route", "key"})

		collectors := []prometheus.Collector{r.requestTotal, r.requestLatency, r.rateLimitHits}
		for _, collector := range collectors {
			if err := prometheus.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						if collector == r.requestTotal {
							r.requestTotal = v
						} else if collector == r.rateLimitHits {
							r.rateLimitHits = v
						}
					case *prometheus.HistogramVec:
						r.requestLatency = v
					}
				}
			}
		}
		r.metricsInitialized = true
	})
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}
