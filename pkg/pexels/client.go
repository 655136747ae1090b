package pexels

import (
	"context"
	"net/http"
	"time"

	"ecoscan/internal/transport"
	"ecoscan/pkg/config"
	errs "ecoscan/pkg/errors"
	"ecoscan/pkg/logger"
	"ecoscan/pkg/models"
	"ecoscan/pkg/ratelimit"
)

// Client searches and downloads Pexels photos
type Client struct {
	api             *transport.Client
	cdn             *transport.Client
	baseURL         string
	orientation     string
	downloadTimeout time.Duration
	logger          logger.Logger
}

// NewClient creates a Pexels client authenticated with apiKey. The key is
// only sent to the API host, never to the image CDN.
func NewClient(cfg config.PexelsConfig, apiKey string, limiter ratelimit.Limiter, log logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}
	log = log.WithField("component", "pexels")

	api := transport.New(cfg.Timeout, limiter, log)
	api.SetHeader("Authorization", apiKey)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = BaseURL
	}

	return &Client{
		api:             api,
		cdn:             transport.New(cfg.DownloadTimeout, limiter, log),
		baseURL:         baseURL,
		orientation:     cfg.Orientation,
		downloadTimeout: cfg.DownloadTimeout,
		logger:          log,
	}
}

// SetHTTPClient replaces the http.Client used for both search and download
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.api.SetHTTPClient(hc)
	c.cdn.SetHTTPClient(hc)
}

// Search returns up to maxResults candidate images for query. A photo without
// alt text is labelled with the query itself.
func (c *Client) Search(ctx context.Context, query string, maxResults int) ([]models.ImageRef, error) {
	var resp SearchResponse
	url := GetSearchURL(c.baseURL, query, maxResults, c.orientation)
	if err := c.api.GetJSON(ctx, url, &resp); err != nil {
		return nil, errs.Wrap(errs.KindSourceUnavailable, "Pexels API error", err)
	}

	refs := make([]models.ImageRef, 0, len(resp.Photos))
	for _, photo := range resp.Photos {
		if photo.Src.Large == "" {
			continue
		}
		label := photo.Alt
		if label == "" {
			label = query
		}
		refs = append(refs, models.ImageRef{URL: photo.Src.Large, Label: label})
	}

	c.logger.DebugWithFields("image search completed", map[string]interface{}{
		"query":   query,
		"results": len(refs),
	})

	return refs, nil
}

// Download fetches an image into memory
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	data, err := c.cdn.Send(ctx, http.MethodGet, url, nil, nil, c.downloadTimeout)
	if err != nil {
		return nil, errs.Wrap(errs.KindDownloadFailed, "image download failed", err)
	}
	if len(data) == 0 {
		return nil, errs.New(errs.KindDownloadFailed, "image download returned an empty body")
	}

	c.logger.DebugWithFields("image downloaded", map[string]interface{}{
		"url":   url,
		"bytes": len(data),
	})

	return data, nil
}
