package middleware

import (
	"net/http"
	"time"
)

// HTTPObserver records served requests. Implemented by *metrics.Metrics.
type HTTPObserver interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// MetricsMiddleware reports every request to observer, labelled with the
// matched mux pattern rather than the raw path.
func MetricsMiddleware(observer HTTPObserver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := wrapResponseWriter(w)
		next.ServeHTTP(wrapped, r)
		observer.ObserveHTTP(r.Method, r.Pattern, wrapped.status, time.Since(start))
	})
}
