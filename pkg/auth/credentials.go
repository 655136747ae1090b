package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"ecoscan/pkg/config"
	errs "ecoscan/pkg/errors"
)

// Credentials are the ordered per-account session cookies and the shared
// Pexels API key. The *From fields name the source each value came from.
type Credentials struct {
	Cookies    []string
	APIKey     string
	CookieFrom string
	APIKeyFrom string
}

// Source provides credentials. A source that has no value for a field
// returns ErrCredentialsNotFound for it.
type Source interface {
	Name() string
	Cookies() ([]string, error)
	APIKey() (string, error)
}

// Store is a Source that can persist credentials
type Store interface {
	Source
	SetCookies(cookies []string) error
	SetAPIKey(key string) error
	Delete() error
}

// Chain resolves cookies and the API key independently, each from the first
// source that has it
type Chain []Source

// NewChain builds the default lookup order: environment, the key files,
// the encrypted vault and, when enabled, the system keychain
func NewChain(cfg config.CredentialsConfig) (Chain, error) {
	vaultPath, err := VaultPath(cfg)
	if err != nil {
		return nil, err
	}

	chain := Chain{
		NewEnvironmentSource(),
		NewFileSource(cfg.CookieFile, cfg.APIKeyFile),
		NewEncryptedFileStore(vaultPath),
	}

	if cfg.UseKeyring {
		keyringStore, err := NewKeyringStore()
		if err != nil {
			return nil, err
		}
		chain = append(chain, keyringStore)
	}

	return chain, nil
}

// OpenStore returns the writable store selected by cfg: the system keychain
// when enabled, the encrypted vault otherwise
func OpenStore(cfg config.CredentialsConfig) (Store, error) {
	if cfg.UseKeyring {
		return NewKeyringStore()
	}
	vaultPath, err := VaultPath(cfg)
	if err != nil {
		return nil, err
	}
	return NewEncryptedFileStore(vaultPath), nil
}

// VaultPath returns the configured vault file or the default one in the
// user config directory
func VaultPath(cfg config.CredentialsConfig) (string, error) {
	if cfg.VaultFile != "" {
		return cfg.VaultFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "credentials.enc"), nil
}

// Load resolves both values. A value no source provides is reported as
// KindConfigMissing.
func (c Chain) Load() (*Credentials, error) {
	creds := &Credentials{}
	var problems []error

	for _, src := range c {
		cookies, err := src.Cookies()
		if err == nil && len(cookies) > 0 {
			creds.Cookies = cookies
			creds.CookieFrom = src.Name()
			break
		}
		if err != nil && !errors.Is(err, ErrCredentialsNotFound) {
			problems = append(problems, fmt.Errorf("%s: %w", src.Name(), err))
		}
	}

	for _, src := range c {
		key, err := src.APIKey()
		if err == nil && key != "" {
			creds.APIKey = key
			creds.APIKeyFrom = src.Name()
			break
		}
		if err != nil && !errors.Is(err, ErrCredentialsNotFound) {
			problems = append(problems, fmt.Errorf("%s: %w", src.Name(), err))
		}
	}

	var missing []string
	if len(creds.Cookies) == 0 {
		missing = append(missing, "account cookies")
	}
	if creds.APIKey == "" {
		missing = append(missing, "Pexels API key")
	}
	if len(missing) > 0 {
		return nil, &errs.ScanError{
			Kind:   errs.KindConfigMissing,
			Reason: "missing " + strings.Join(missing, " and ") + ": make sure cookie.key and api.key exist and are not empty",
			Err:    errors.Join(problems...),
		}
	}

	return creds, nil
}

// ParseCookies splits text into one cookie per line, dropping blank lines
func ParseCookies(text string) []string {
	var cookies []string
	for _, line := range strings.Split(text, "\n") {
		if cookie := strings.TrimSpace(line); cookie != "" {
			cookies = append(cookies, cookie)
		}
	}
	return cookies
}

// ConfigDir returns the per-user configuration directory
func ConfigDir() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "ecoscan"), nil
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "ecoscan"), nil
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			return filepath.Join(xdgConfig, "ecoscan"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "ecoscan"), nil
	}
}

// MaskString masks all but the first 4 and last 4 characters of a string
func MaskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
