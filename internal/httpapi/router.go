package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"pasarku-be/internal/cart"
	"pasarku-be/internal/logger"
	"pasarku-be/internal/metrics"
	"pasarku-be/internal/middleware"
	"pasarku-be/internal/order"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(carts cart.Service, orders order.Service, paymentCallbackToken string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(logger.RequestIDMiddleware)
	r.Use(logger.LoggingMiddleware)
	r.Use(middleware.AuthMiddleware)
	r.Use(middleware.RateLimitMiddleware)
	r.Use(instrument)

	r.Get("/health", healthCheck)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/cart", NewCartHandler(carts).Routes)
	r.Route("/orders", NewOrderHandler(orders, paymentCallbackToken).Routes)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// instrument records per-route request durations. The chi route pattern is
// used instead of the raw path so ids do not explode label cardinality.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.Status())).
			Observe(time.Since(start).Seconds())
	})
}
