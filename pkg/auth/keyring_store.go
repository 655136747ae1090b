package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService   = "ecoscan"
	keyringAPIKeyKey = "pexels_api_key"
	keyringCookieKey = "cookies"
)

// KeyringStore keeps credentials in the system keychain
type KeyringStore struct{}

// NewKeyringStore creates a new keyring-based credential store
func NewKeyringStore() (*KeyringStore, error) {
	// Test if keyring is available
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Name() string { return "keyring" }

// Cookies returns the cookies saved with SetCookies
func (k *KeyringStore) Cookies() ([]string, error) {
	data, err := k.get(keyringCookieKey)
	if err != nil {
		return nil, err
	}
	cookies := ParseCookies(data)
	if len(cookies) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return cookies, nil
}

// APIKey returns the key saved with SetAPIKey
func (k *KeyringStore) APIKey() (string, error) {
	key, err := k.get(keyringAPIKeyKey)
	if err != nil {
		return "", err
	}
	if key = strings.TrimSpace(key); key == "" {
		return "", ErrCredentialsNotFound
	}
	return key, nil
}

// SetCookies saves the cookies, one per line
func (k *KeyringStore) SetCookies(cookies []string) error {
	if len(cookies) == 0 {
		return ErrInvalidCredentials
	}
	if err := keyring.Set(keyringService, keyringCookieKey, strings.Join(cookies, "\n")); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// SetAPIKey saves the Pexels API key
func (k *KeyringStore) SetAPIKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Set(keyringService, keyringAPIKeyKey, strings.TrimSpace(key)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes everything ecoscan stored in the keychain
func (k *KeyringStore) Delete() error {
	var deleted bool
	for _, key := range []string{keyringAPIKeyKey, keyringCookieKey} {
		err := keyring.Delete(keyringService, key)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, keyring.ErrNotFound):
		default:
			return fmt.Errorf("failed to delete from keyring: %w", err)
		}
	}
	if !deleted {
		return ErrCredentialsNotFound
	}
	return nil
}

func (k *KeyringStore) get(key string) (string, error) {
	data, err := keyring.Get(keyringService, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrCredentialsNotFound
		}
		return "", fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return data, nil
}
