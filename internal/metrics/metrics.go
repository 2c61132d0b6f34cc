// Package metrics holds the prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Edit request outcomes.
const (
	OutcomeSubmitted     = "submitted"
	OutcomeAppliedDirect = "applied_direct"
	OutcomeApproved      = "approved"
	OutcomeRejected      = "rejected"
	OutcomeFailed        = "failed"
)

// Admin notification results.
const (
	NotifySent    = "sent"
	NotifyFailed  = "failed"
	NotifyDropped = "dropped"
)

var (
	EditRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopmaster",
		Name:      "edit_requests_total",
		Help:      "Edit requests by entity type and workflow outcome.",
	}, []string{"entity_type", "outcome"})

	AdminNotifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shopmaster",
		Name:      "admin_notifications_total",
		Help:      "Admin notifications for new edit requests by delivery result.",
	}, []string{"result"})

	PendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shopmaster",
		Name:      "edit_requests_pending",
		Help:      "Edit requests waiting for review, as of the last listing.",
	})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shopmaster",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func RecordEdit(entityType, outcome string) {
	EditRequests.WithLabelValues(entityType, outcome).Inc()
}

func RecordNotification(result string) {
	AdminNotifications.WithLabelValues(result).Inc()
}

// GinMiddleware observes request latency labelled by the matched route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
