// Package ratelimit bounds the outbound request rate of the scan bot.
//
// Every HTTP client shares one Limiter so that the combined traffic of all
// accounts against the image source and the scan API stays under the
// configured requests-per-minute budget.
//
//	limiter := ratelimit.NewTokenBucket(120, 10)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err // context cancelled while waiting
//	}
package ratelimit
