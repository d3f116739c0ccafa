// Package ratelimit paces outgoing provider requests.
//
// Providers that have no bulk endpoint emulate one by calling their single
// image endpoint repeatedly. A TokenBucket with capacity 1 spaces those
// calls out evenly:
//
//	limiter := ratelimit.NewTokenBucket(1, 500*time.Millisecond)
//	for i := 0; i < 30; i++ {
//	    if err := limiter.Wait(ctx); err != nil {
//	        return err
//	    }
//	    // request
//	}
package ratelimit
