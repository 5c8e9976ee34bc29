package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counters for the fulfillment workflow. Registered on the default registry
// and exposed via Handler().
var (
	CartsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pasarku",
		Subsystem: "cart",
		Name:      "expired_total",
		Help:      "Carts marked EXPIRED by the cleanup job.",
	})

	CartsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pasarku",
		Subsystem: "cart",
		Name:      "deleted_total",
		Help:      "Expired/abandoned carts permanently deleted past retention.",
	})

	CartValidateItemSkips = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pasarku",
		Subsystem: "cart",
		Name:      "validate_item_skips_total",
		Help:      "Items left untouched by validate() because the inventory gateway was unreachable.",
	})

	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pasarku",
		Subsystem: "order",
		Name:      "created_total",
		Help:      "Orders created from carts.",
	})

	OrdersAutoCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pasarku",
		Subsystem: "order",
		Name:      "auto_cancelled_total",
		Help:      "Pending orders cancelled by the timeout job.",
	})

	ReservationFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pasarku",
		Subsystem: "inventory",
		Name:      "reservation_failures_total",
		Help:      "Failed stock reservation calls during checkout.",
	})

	ConvertNotifyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pasarku",
		Subsystem: "order",
		Name:      "convert_notify_failures_total",
		Help:      "Best-effort mark-cart-converted notifications that failed.",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pasarku",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler serves the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
