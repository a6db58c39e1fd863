// Package middleware holds HTTP middleware applied ahead of the request
// pipeline.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/atlarge-research/opendc-api/internal/platform/logger"
)

// traceIDKey is the context key under which the trace ID is stored.
type traceIDKey struct{}

// GetTraceID returns the trace ID stored in the context, or the empty string
// when no trace middleware ran.
func GetTraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// NewTraceMiddleware returns middleware that assigns a fresh trace ID to each
// request and stores a trace-scoped logger in the context. Apply it early in
// the chain so every downstream log line carries the trace ID.
func NewTraceMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := uuid.NewString()

			reqLog := log.With(slog.String("trace_id", traceID))
			ctx := context.WithValue(r.Context(), traceIDKey{}, traceID)
			ctx = logger.WithLogger(ctx, reqLog)

			reqLog.Debug("request started",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
