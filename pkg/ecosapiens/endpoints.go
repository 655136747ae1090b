package ecosapiens

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// BaseURL is the production scan API
	BaseURL = "https://api.prod.ecosapiens.xyz"

	// SessionEndpoint returns the user behind the session cookie
	SessionEndpoint = "/api/session"

	// LootTotalEndpoint returns the account's point balance
	LootTotalEndpoint = "/api/users/me/loot_total"

	// ScansEndpoint accepts image uploads
	ScansEndpoint = "/api/scans"

	// UploadField is the multipart form field carrying the image
	UploadField = "image"

	// UploadContentType is the declared type of every uploaded image
	UploadContentType = "image/jpeg"
)

// GetScanURL constructs the URL for polling a single scan
func GetScanURL(baseURL, scanID string) string {
	return fmt.Sprintf("%s%s/%s", strings.TrimRight(baseURL, "/"), ScansEndpoint, url.PathEscape(scanID))
}

func endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// ScanFilename returns the upload filename for an image taken at t
func ScanFilename(t time.Time) string {
	return fmt.Sprintf("scan_%d.jpg", t.UnixMilli())
}
