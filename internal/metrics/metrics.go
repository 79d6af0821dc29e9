// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VerificationsTotal counts verification attempts by category and result
	// (ok, or the error kind that rejected them).
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veridate_verifications_total",
		Help: "Verification attempts by category and result",
	}, []string{"category", "result"})

	// CreditsDebitedTotal counts credits consumed by successful verifications.
	CreditsDebitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veridate_credits_debited_total",
		Help: "Verification credits consumed by category",
	}, []string{"category"})

	// NotificationsEmittedTotal counts emitter outcomes by type and result
	// (stored, invalid, dropped, store_error).
	NotificationsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "veridate_notifications_emitted_total",
		Help: "Notification emissions by type and result",
	}, []string{"type", "result"})

	// NotificationQueueDepth is the number of notifications waiting to be persisted.
	NotificationQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "veridate_notification_queue_depth",
		Help: "Notifications waiting in the emitter queue",
	})

	// HTTPRequestDuration tracks request latency by route pattern and status class.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "veridate_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"method", "route", "status"})
)
