package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/humanid/internal/metrics"
)

// WithMetrics adapta metrics.WithMetrics a la firma Middleware.
func WithMetrics() Middleware {
	return func(next http.Handler) http.Handler {
		return metrics.WithMetrics(next)
	}
}
