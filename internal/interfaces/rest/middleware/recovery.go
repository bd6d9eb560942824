package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/interfaces/rest"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Recovery turns a handler panic into a 500 envelope and marks the request span as failed.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rec)
				}

				cause := fmt.Errorf("handler panic: %v", rec)
				span := trace.SpanFromContext(r.Context())
				span.RecordError(cause)
				span.SetStatus(codes.Error, "panic")

				logger.LogAttrs(r.Context(), slog.LevelError, "recovered from handler panic",
					slog.String("route", routeOf(r)),
					slog.String("method", r.Method),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				rest.WriteError(w, application.NewInternalError(cause), logger)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// routeOf prefers the matched mux pattern so invoice ids do not fan out log cardinality.
func routeOf(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return r.URL.Path
}
