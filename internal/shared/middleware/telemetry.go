package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Telemetry wraps an http.Handler with OpenTelemetry instrumentation,
// recording a span and the standard HTTP server metrics per request.
// Health probes are excluded to keep trace volume down.
func Telemetry(next http.Handler) http.Handler {
	mw := otelhttp.NewMiddleware("horizon-api",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	)
	return mw(next)
}
