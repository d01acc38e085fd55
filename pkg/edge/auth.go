package edge

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrymomot/seopilot/pkg/logger"
	"github.com/dmitrymomot/seopilot/pkg/token"
)

type claimsKey struct{}

// WithClaims stores verified claims in ctx.
func WithClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFromContext returns the verified claims, or empty claims and false.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*token.Claims)
	if !ok || c == nil {
		return &token.Claims{}, false
	}
	return c, true
}

// requireAuth verifies the bearer token and injects its claims. Rejections
// are reported to the response hook under fn.
// CORS preflight requests never reach it.
func (h *Handler) requireAuth(fn string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			raw, err := token.FromRequest(r)
			if err != nil {
				h.respond(w, r, fn, start, http.StatusUnauthorized, errorBody(err))
				return
			}
			claims, err := h.verifier.Verify(raw)
			if err != nil {
				h.log.InfoContext(r.Context(), "rejected access token",
					logger.Component("edge"), logger.Error(err))
				h.respond(w, r, fn, start, http.StatusUnauthorized, errorBody(ErrUnauthorized))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}
