// Package pexels is the image source used to obtain product-like photos.
//
// Search queries the Pexels photo search API for square photos matching a
// term and returns the large rendition of each hit. Download pulls a single
// rendition into memory; images are treated as opaque bytes.
//
//	client := pexels.NewClient(cfg.Pexels, apiKey, limiter, log)
//	refs, err := client.Search(ctx, "soda can product", 100)
//	if errs.Is(err, errs.KindSourceUnavailable) { ... }
package pexels
