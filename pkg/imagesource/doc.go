// Package imagesource talks to the third-party scraping API that supplies a
// user's recent posts, and fetches the image bytes those posts point at.
//
// FetchPosts normalizes the upstream payload into Post values. Any transport
// failure, non-2xx status or a body without a data.items array is reported as
// one failure; no partial result is returned. An empty slice is a valid
// answer and means the user has no posts or does not exist.
//
//	client := imagesource.NewClient(cfg.RapidAPI, auth.Static(key, host),
//	    imagesource.WithLimiter(ratelimit.NewFromConfig(cfg.RateLimit)))
//	posts, err := client.FetchPosts(ctx, "natgeo")
//	if errors.IsType(err, errors.ErrorTypeValidation) {
//	    // empty username
//	}
//
// FetchImage is a plain GET with no retry; the caller picks the cache policy.
package imagesource
