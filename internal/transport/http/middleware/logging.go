package middleware

import (
	"net/http"
	"time"

	"github.com/IgorGrieder/tinylink/internal/infrastructure/logger"
	"github.com/IgorGrieder/tinylink/pkg/httputils"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// LoggingMiddleware assigns a correlation id when the caller sent none,
// echoes it on the response and logs one line per request. Client
// addresses and query strings stay out of the log.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		correlationID := httputils.GetCorrelationID(r)
		r.Header.Set(httputils.CorrelationIDHeader, correlationID)
		w.Header().Set(httputils.CorrelationIDHeader, correlationID)

		rec := newStatusRecorder(w)
		next.ServeHTTP(rec, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("route", routeLabel(r)),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("correlation_id", correlationID),
		}
		if sc := trace.SpanFromContext(r.Context()).SpanContext(); sc.IsValid() {
			fields = append(fields,
				zap.String("trace_id", sc.TraceID().String()),
				zap.String("span_id", sc.SpanID().String()),
			)
		}

		switch {
		case rec.status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case rec.status >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	})
}
