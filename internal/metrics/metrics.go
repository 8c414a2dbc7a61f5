// Package metrics holds the prometheus collectors of the reminder subsystem.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScanCycles = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "scanner",
		Name:      "cycles_total",
		Help:      "Scan cycles by outcome (ok, store_error).",
	}, []string{"outcome"})

	AlertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "scanner",
		Name:      "alerts_fired_total",
		Help:      "Local due-time alerts fired, by task type.",
	}, []string{"type"})

	ChannelErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "scanner",
		Name:      "channel_errors_total",
		Help:      "Swallowed alert channel failures, by channel.",
	}, []string{"channel"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "habitvault",
		Subsystem: "scanner",
		Name:      "active_sessions",
		Help:      "Running scan loops.",
	})

	DispatchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "dispatcher",
		Name:      "runs_total",
		Help:      "Dispatcher runs by outcome (ok, query_error).",
	}, []string{"outcome"})

	RemindersSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "habitvault",
		Subsystem: "dispatcher",
		Name:      "emails_total",
		Help:      "Reminder emails by result (sent, failed, mark_failed).",
	}, []string{"result"})

	DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "habitvault",
		Subsystem: "dispatcher",
		Name:      "run_duration_seconds",
		Help:      "Wall time of a dispatcher run.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
