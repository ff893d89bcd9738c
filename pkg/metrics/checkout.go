package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout, placement, and manual queue activity.
type CheckoutMetrics struct {
	sessions          *prometheus.CounterVec
	placementAttempts *prometheus.CounterVec
	placementDuration *prometheus.HistogramVec
	manualTasks       *prometheus.CounterVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Checkout sessions by terminal status.",
	}, []string{"status"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "placement_attempts_total",
		Help: "Order placement attempts by retailer, method, and outcome.",
	}, []string{"retailer", "method", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "placement_duration_seconds",
		Help:    "Duration of placement attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
	manualTasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "manual_order_tasks_total",
		Help: "Manual order queue activity by action.",
	}, []string{"action"})
	reg.MustRegister(sessions, attempts, duration, manualTasks)
	return &CheckoutMetrics{
		sessions:          sessions,
		placementAttempts: attempts,
		placementDuration: duration,
		manualTasks:       manualTasks,
	}
}

// IncSession counts a session reaching the given terminal status.
func (c *CheckoutMetrics) IncSession(status string) {
	if c == nil || c.sessions == nil {
		return
	}
	c.sessions.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncPlacementAttempt counts one placement attempt and its outcome.
func (c *CheckoutMetrics) IncPlacementAttempt(retailer, method, outcome string) {
	if c == nil || c.placementAttempts == nil {
		return
	}
	c.placementAttempts.WithLabelValues(normalizeLabel(retailer), normalizeLabel(method), normalizeLabel(outcome)).Inc()
}

// ObservePlacementDuration records how long a placement attempt took.
func (c *CheckoutMetrics) ObservePlacementDuration(method string, duration time.Duration) {
	if c == nil || c.placementDuration == nil {
		return
	}
	c.placementDuration.WithLabelValues(normalizeLabel(method)).Observe(duration.Seconds())
}

// IncManualTask counts manual queue activity (queued, placed, failed).
func (c *CheckoutMetrics) IncManualTask(action string) {
	if c == nil || c.manualTasks == nil {
		return
	}
	c.manualTasks.WithLabelValues(normalizeLabel(action)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
