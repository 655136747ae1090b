package pexels

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	// BaseURL is the Pexels REST API root
	BaseURL = "https://api.pexels.com/v1"

	// SearchEndpoint is the photo search path
	SearchEndpoint = "/search"

	// DefaultOrientation asks for square crops, closest to a product shot
	DefaultOrientation = "square"

	// MaxPerPage is the largest page size the API accepts
	MaxPerPage = 100
)

// GetSearchURL constructs the photo search URL
func GetSearchURL(baseURL, query string, perPage int, orientation string) string {
	if perPage <= 0 || perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("per_page", fmt.Sprintf("%d", perPage))
	if orientation != "" {
		params.Set("orientation", orientation)
	}

	return fmt.Sprintf("%s%s?%s", strings.TrimRight(baseURL, "/"), SearchEndpoint, params.Encode())
}
