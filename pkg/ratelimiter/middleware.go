package ratelimiter

import (
	"hash/fnv"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxKeyLength = 64

// KeyFunc identifies the client of a request. An empty key skips limiting.
type KeyFunc func(r *http.Request) string

// Composite joins the non-empty keys of fns. Keys longer than 64 bytes are
// replaced by their FNV-1a hash.
func Composite(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		key := strings.Join(parts, ":")
		if len(key) <= maxKeyLength {
			return key
		}
		h := fnv.New64a()
		_, _ = h.Write([]byte(key))
		return strconv.FormatUint(h.Sum64(), 36)
	}
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middleware)

type middleware struct {
	onLimited http.HandlerFunc
	onError   func(r *http.Request, err error)
	now       func() time.Time
}

// WithLimitedHandler replaces the default 429 response body. Headers are
// already set when it runs.
func WithLimitedHandler(h http.HandlerFunc) MiddlewareOption {
	return func(m *middleware) { m.onLimited = h }
}

// WithErrorHook is called when the store fails. The request is let through.
func WithErrorHook(fn func(r *http.Request, err error)) MiddlewareOption {
	return func(m *middleware) { m.onError = fn }
}

// Middleware consumes one token per request and answers 429 Too Many
// Requests once the bucket of the request key is empty.
func Middleware(b *Bucket, key KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	m := &middleware{
		onLimited: func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}
			res, err := b.Allow(r.Context(), k)
			if err != nil {
				if m.onError != nil {
					m.onError(r, err)
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, res.Remaining)))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))
			if !res.Allowed() {
				secs := int(math.Ceil(res.RetryAfter(m.now()).Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
				m.onLimited(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
