// Package metrics holds the service's prometheus collectors. Registration
// goes through promauto against the default registry; /metrics serves it.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradecove_checkout_sessions_total",
		Help: "Checkout session creation attempts by result.",
	}, []string{"result"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tradecove_webhook_events_total",
		Help: "Inbound payment webhook events by type and processing result.",
	}, []string{"type", "result"})

	ShippingQuotes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradecove_shipping_quotes_total",
		Help: "Shipping rate calculations served.",
	})

	TrackingLookups = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tradecove_tracking_lookups_total",
		Help: "Tracking lookups served.",
	})
)
