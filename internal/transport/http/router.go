package http

import (
	"net/http"
	"strings"

	"github.com/IgorGrieder/tinylink/internal/config"
	"github.com/IgorGrieder/tinylink/internal/infrastructure/telemetry"
	"github.com/IgorGrieder/tinylink/internal/transport/http/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

var spanNames = map[string]string{
	"GET /health":                  "health",
	"GET /healthz":                 "healthz",
	"GET /metrics":                 "metrics",
	"POST /api/links":              "links.create",
	"GET /api/links":               "links.list",
	"GET /api/links/analytics":     "analytics.summary",
	"GET /api/links/{code}":        "links.get",
	"DELETE /api/links/{code}":     "links.delete",
	"GET /api/links/{code}/stats":  "analytics.stats",
	"GET /api/links/{code}/export": "analytics.export",
	"GET /api/codes/suggestions":   "links.suggestions",
	"GET /{code}":                  "links.redirect",
}

// Limiters holds one window counter per rate-limited route group. A nil
// counter disables that limit.
type Limiters struct {
	API      middleware.WindowCounter
	Create   middleware.WindowCounter
	Redirect middleware.WindowCounter
}

type RouterOptions struct {
	EnableCORS    bool
	EnableLogging bool
	EnableMetrics bool
}

func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		EnableCORS:    true,
		EnableLogging: true,
		EnableMetrics: true,
	}
}

func NewRouter(cfg *config.Config, linkService LinkService, analyticsService AnalyticsService, limiters Limiters) http.Handler {
	return NewRouterWithOptions(cfg, linkService, analyticsService, limiters, DefaultRouterOptions())
}

func NewRouterWithOptions(cfg *config.Config, linkService LinkService, analyticsService AnalyticsService, limiters Limiters, opts RouterOptions) http.Handler {
	mux := http.NewServeMux()

	healthHandler := NewHealthHandler(cfg.App.Version)
	clients := middleware.NewClientResolver(cfg.Security.APIKeys, cfg.Security.TrustedProxies)
	linksHandler := NewLinksHandler(cfg, linkService, clients)
	analyticsHandler := NewAnalyticsHandler(analyticsService)

	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /healthz", healthHandler.Healthz)
	mux.Handle("GET /metrics", healthHandler.Metrics())

	apiLimit := middleware.RateLimitMiddleware(limiters.API, cfg.RateLimit.API.Limit, clients)
	auth := middleware.APIKeyMiddleware(cfg.Security.APIKeys)

	api := func(h http.HandlerFunc, extra ...func(http.Handler) http.Handler) http.Handler {
		return middleware.Chain(h, append([]func(http.Handler) http.Handler{apiLimit}, extra...)...)
	}

	mux.Handle("POST /api/links", api(linksHandler.Create,
		auth,
		middleware.RateLimitMiddleware(limiters.Create, cfg.RateLimit.Create.Limit, clients),
	))
	mux.Handle("GET /api/links", api(linksHandler.List))
	mux.Handle("GET /api/links/analytics", api(analyticsHandler.Summary))
	mux.Handle("GET /api/links/{code}", api(linksHandler.Get))
	mux.Handle("DELETE /api/links/{code}", api(linksHandler.Delete, auth))
	mux.Handle("GET /api/links/{code}/stats", api(analyticsHandler.Stats))
	mux.Handle("GET /api/links/{code}/export", api(analyticsHandler.Export))
	mux.Handle("GET /api/codes/suggestions", api(linksHandler.Suggestions))

	mux.Handle("GET /{code}", middleware.Chain(
		http.HandlerFunc(linksHandler.Redirect),
		middleware.RateLimitMiddleware(limiters.Redirect, cfg.RateLimit.Redirect.Limit, clients),
	))

	var innerHandler http.Handler = mux
	if opts.EnableCORS {
		innerHandler = middleware.CORSMiddleware(cfg.Security.CORSAllowedOrigins)(innerHandler)
	}
	if opts.EnableLogging {
		innerHandler = middleware.LoggingMiddleware(innerHandler)
	}
	if opts.EnableMetrics {
		innerHandler = middleware.MetricsMiddleware(innerHandler)
	}

	innerHandler = nameSpanByRoute(innerHandler)

	otelOptions := []otelhttp.Option{
		otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
			return r.Method + " " + strings.TrimSpace(r.URL.Path)
		}),
	}

	if telemetry.TracerProvider != nil {
		otelOptions = append(otelOptions, otelhttp.WithTracerProvider(telemetry.TracerProvider))
	}

	return otelhttp.NewHandler(innerHandler, cfg.App.Name, otelOptions...)
}

// nameSpanByRoute renames the server span once the mux has matched, since
// otelhttp names the span before routing happens.
func nameSpanByRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if name := spanName(r.Pattern); name != "" {
			trace.SpanFromContext(r.Context()).SetName(name)
		}
	})
}

func spanName(pattern string) string {
	if name, ok := spanNames[pattern]; ok {
		return name
	}
	return pattern
}
