package middleware

import (
	"net/http"
	"time"
)

// HTTPMetrics records per-route request outcomes. A nil HTTPMetrics
// disables collection.
type HTTPMetrics interface {
	RequestStarted()
	ObserveRequest(route, method string, status int, duration time.Duration)
}

// Metrics wraps the router directly so the matched pattern is visible after
// ServeHTTP returns: http.ServeMux records it on the request it was given.
// Unmatched requests are labelled "unmatched" to keep cardinality bounded.
func Metrics(m HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.RequestStarted()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.ObserveRequest(route, r.Method, rec.status, time.Since(start))
		})
	}
}
