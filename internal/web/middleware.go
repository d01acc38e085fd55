package web

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/dmitrymomot/seopilot/pkg/logger"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

type (
	requestIDKey struct{}
	viewIDKey    struct{}
)

// RequestID keeps a well-formed incoming X-Request-ID or generates one, and
// stores it in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// RequestIDFromContext returns the request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func withViewID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, viewIDKey{}, id)
}

// ViewIDFromContext returns the id of the view serving the request, or "".
func ViewIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(viewIDKey{}).(string)
	return id
}

// LogExtractors tag log records with the request and view ids of their context.
func LogExtractors() []logger.ContextExtractor {
	return []logger.ContextExtractor{
		func(ctx context.Context) (slog.Attr, bool) {
			if id := RequestIDFromContext(ctx); id != "" {
				return logger.RequestID(id), true
			}
			return slog.Attr{}, false
		},
		func(ctx context.Context) (slog.Attr, bool) {
			if id := ViewIDFromContext(ctx); id != "" {
				return logger.ViewID(id), true
			}
			return slog.Attr{}, false
		},
	}
}
