// Package retry runs an operation until it succeeds, a non-retryable error
// is returned, the attempt budget is spent or the context is cancelled.
//
// Three places in nekodl retry work:
//   - the gateway re-issues a request after HTTP 429, sleeping for the
//     server-provided Retry-After (see RetryAfterError)
//   - pixiv probes re-issue a HEAD after a network error with a constant delay
//   - the batch orchestrator re-downloads a failed URL up to its retry depth
//
// Usage:
//
//	err := retry.Do(ctx, func() error {
//		return probe(url)
//	}, &retry.Config{
//		MaxAttempts: 4,
//		Backoff:     &retry.ConstantBackoff{Delay: 1500 * time.Millisecond},
//		RetryIf:     retry.DefaultRetryIf,
//	})
//
// An error implementing RetryAfterError overrides the backoff strategy for
// that attempt, clamped to Config.MaxDelay when it is set.
package retry
