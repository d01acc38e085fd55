// Package ratelimiter throttles requests with token buckets.
//
// A Bucket holds Capacity tokens and regains RefillRate tokens every
// RefillInterval. Each request consumes one token; a request arriving at an
// empty bucket is denied until the next refill. Buckets live in a Store,
// keyed by whatever the caller identifies clients with (the client IP for
// the sign-in form and the billing functions).
//
//	store := ratelimiter.NewMemoryStore()
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: 30 * time.Second,
//	})
//	if err != nil {
//		return err
//	}
//	r.With(ratelimiter.Middleware(limiter, clientip.GetIP)).Post("/dashboard/credentials", h)
//
// Middleware answers denied requests with 429 and a Retry-After header.
package ratelimiter
