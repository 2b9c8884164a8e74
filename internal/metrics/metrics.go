// Package metrics: счётчики Prometheus для фида, команд и проекций.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeNotFound    = "not_found"
	OutcomeDenied      = "denied"
	OutcomeRemoteError = "remote_error"
	OutcomeError       = "error"
)

var (
	feedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_feed_events_total",
			Help: "Change notifications received from the backend feed",
		},
		[]string{"kind", "op"},
	)

	commands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_commands_total",
			Help: "User commands by name and outcome",
		},
		[]string{"command", "outcome"},
	)

	remoteWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_remote_write_failures_total",
			Help: "Backend writes that failed after the optimistic local mutation",
		},
		[]string{"command"},
	)

	projectionSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_projection_seconds",
			Help:    "Time spent computing a view projection",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"view"},
	)

	enginesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatsync_engines_active",
			Help: "Per-user engines currently held in memory",
		},
	)
)

func RecordFeedEvent(kind, op string) {
	feedEvents.WithLabelValues(kind, op).Inc()
}

func RecordCommand(command, outcome string) {
	commands.WithLabelValues(command, outcome).Inc()
}

func RecordRemoteWriteFailure(command string) {
	remoteWriteFailures.WithLabelValues(command).Inc()
}

func RecordProjection(view string, d time.Duration) {
	projectionSeconds.WithLabelValues(view).Observe(d.Seconds())
}

func SetEnginesActive(n int) {
	enginesActive.Set(float64(n))
}

// Handler отдаёт /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
