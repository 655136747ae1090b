package auth

import (
	"os"
	"strings"
)

const (
	// EnvCookies holds account cookies separated by newlines or ";;"
	EnvCookies = "ECOSCAN_COOKIES"

	// EnvAPIKey holds the Pexels API key
	EnvAPIKey = "ECOSCAN_PEXELS_API_KEY"
)

// EnvironmentSource reads credentials from environment variables
type EnvironmentSource struct{}

// NewEnvironmentSource creates a new environment-based credential source
func NewEnvironmentSource() *EnvironmentSource {
	return &EnvironmentSource{}
}

func (e *EnvironmentSource) Name() string { return "environment" }

// Cookies returns the cookies listed in ECOSCAN_COOKIES
func (e *EnvironmentSource) Cookies() ([]string, error) {
	raw := os.Getenv(EnvCookies)
	cookies := ParseCookies(strings.ReplaceAll(raw, ";;", "\n"))
	if len(cookies) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return cookies, nil
}

// APIKey returns ECOSCAN_PEXELS_API_KEY
func (e *EnvironmentSource) APIKey() (string, error) {
	key := strings.TrimSpace(os.Getenv(EnvAPIKey))
	if key == "" {
		return "", ErrCredentialsNotFound
	}
	return key, nil
}
