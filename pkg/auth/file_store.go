package auth

import (
	"fmt"
	"os"
	"strings"
)

// FileSource reads cookies (one per line) and the API key from plain files
type FileSource struct {
	CookieFile string
	APIKeyFile string
}

// NewFileSource creates a source over the given files
func NewFileSource(cookieFile, apiKeyFile string) *FileSource {
	return &FileSource{CookieFile: cookieFile, APIKeyFile: apiKeyFile}
}

func (f *FileSource) Name() string { return "file" }

// Cookies returns the non-blank lines of the cookie file
func (f *FileSource) Cookies() ([]string, error) {
	data, err := readOptional(f.CookieFile)
	if err != nil {
		return nil, err
	}
	cookies := ParseCookies(string(data))
	if len(cookies) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return cookies, nil
}

// APIKey returns the trimmed contents of the key file
func (f *FileSource) APIKey() (string, error) {
	data, err := readOptional(f.APIKeyFile)
	if err != nil {
		return "", err
	}
	key := strings.TrimSpace(string(data))
	if key == "" {
		return "", ErrCredentialsNotFound
	}
	return key, nil
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrCredentialsNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
