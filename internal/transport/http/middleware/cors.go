package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// CORSMiddleware adds CORS headers using rs/cors. An empty list or "*"
// accepts every origin.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodHead,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			"X-API-Key",
			"Accept",
			"Origin",
			"X-Requested-With",
			"X-Correlation-Id",
			// OpenTelemetry headers
			"traceparent",
			"tracestate",
			"baggage",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"Retry-After",
			"X-Correlation-Id",
		},
		AllowCredentials: true,
	}

	if len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*") {
		opts.AllowOriginFunc = func(origin string) bool { return true }
	} else {
		opts.AllowedOrigins = allowedOrigins
	}

	return cors.New(opts).Handler
}
