// Package metrics holds the prometheus collectors shared by the gateway client
// and the interaction store. They register on the default registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway call outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeEnvelope  = "envelope_error"
	OutcomeRemote    = "remote_error"
)

var (
	gatewayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Affiliate gateway calls by method and outcome.",
		},
		[]string{"method", "outcome"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Affiliate gateway call latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	promotionLinksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promotion_links_total",
			Help: "Promotion link generation attempts by result.",
		},
		[]string{"result"},
	)

	interactionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interaction_events_total",
			Help: "Persisted user interactions by kind.",
		},
		[]string{"kind"},
	)
)

// ObserveGatewayCall records one gateway round trip.
func ObserveGatewayCall(method, outcome string, elapsed time.Duration) {
	gatewayRequestsTotal.WithLabelValues(method, outcome).Inc()
	gatewayRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObservePromotionLink records a link generation attempt.
func ObservePromotionLink(ok bool) {
	result := "failed"
	if ok {
		result = "generated"
	}
	promotionLinksTotal.WithLabelValues(result).Inc()
}

// ObserveInteraction records a persisted interaction such as "click" or "favorite_added".
func ObserveInteraction(kind string) {
	interactionEventsTotal.WithLabelValues(kind).Inc()
}
