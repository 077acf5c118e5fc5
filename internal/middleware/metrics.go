package middleware

import (
	"net/http"
	"time"

	"github.com/taskdeck/taskdeck-go/internal/metrics"
)

// Metrics returns middleware that records request counts and latency.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			collector.RecordRequest(r.Method, rec.status, time.Since(start))
		})
	}
}
