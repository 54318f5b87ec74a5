// Package retry re-runs failed calls to the image source API with backoff.
//
// Only transient failures are retried: network errors, HTTP 429 and 5xx.
// Validation and response-shape errors fail immediately. Image byte fetches
// are never wrapped in a retry.
//
//	posts, err := retry.DoWithResult(ctx, func(ctx context.Context) ([]Post, error) {
//	    return c.fetchOnce(ctx, username)
//	}, c.retry)
package retry
