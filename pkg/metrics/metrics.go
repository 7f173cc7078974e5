package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "api_http_requests_total", Help: "HTTP requests"},
		[]string{"method", "path", "status"},
	)
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	EnqueuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "queue_enqueued_total", Help: "Items enqueued"},
	)
	TrackingEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "tracking_events_total", Help: "Tracking events recorded"},
		[]string{"type"},
	)

	QueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "queue_depth", Help: "Items per status"},
		[]string{"status"},
	)
	SentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "queue_sent_total", Help: "Items delivered"},
	)
	FailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "queue_failed_total", Help: "Items terminally failed"},
	)
	RetriedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "queue_retried_total", Help: "Items requeued after a send error"},
	)
	ReclaimedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "queue_reclaimed_total", Help: "Stuck items returned to pending"},
	)
	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "queue_rate_limited_ticks_total", Help: "Ticks skipped on exhausted window budget"},
	)
	TickDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_tick_duration_seconds",
			Help:    "Time spent in one scheduling tick",
			Buckets: prometheus.DefBuckets,
		},
	)
	SendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "queue_send_duration_seconds",
			Help:    "Time spent sending one item",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(
		APIRequestsTotal, APIRequestDuration, EnqueuedTotal, TrackingEventsTotal,
		QueueDepth, SentTotal, FailedTotal, RetriedTotal, ReclaimedTotal,
		RateLimitedTotal, TickDuration, SendDuration,
	)
}

func Handler() http.Handler { return promhttp.Handler() }
