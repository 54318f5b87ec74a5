// Package ratelimit throttles calls to the image source API.
//
// TokenBucket allows short bursts and refills one token per interval;
// SlidingWindow caps requests within a moving window. Both are safe for
// concurrent use and their Wait honours context cancellation, so a client
// request that goes away stops waiting for a slot.
//
//	limiter := ratelimit.NewFromConfig(cfg.RateLimit)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
