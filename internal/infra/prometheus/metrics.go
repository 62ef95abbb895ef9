package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ViewRequests counts POST /api/views outcomes by response status class.
	ViewRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doclink",
		Name:      "view_requests_total",
		Help:      "View requests by outcome.",
	}, []string{"outcome"})

	// GateRejections counts admission failures by reason.
	GateRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doclink",
		Name:      "gate_rejections_total",
		Help:      "Admission gate rejections by reason.",
	}, []string{"reason"})

	// ViewsRecorded counts persisted views.
	ViewsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "doclink",
		Name:      "views_recorded_total",
		Help:      "Views persisted.",
	})

	// DispatchFailures counts failed deferred publishes and handler runs.
	DispatchFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doclink",
		Name:      "dispatch_failures_total",
		Help:      "Deferred view work failures by kind.",
	}, []string{"kind"})

	// WebhookDeliveries counts webhook deliveries by result.
	WebhookDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "doclink",
		Name:      "webhook_deliveries_total",
		Help:      "Webhook deliveries by result.",
	}, []string{"result"})
)
