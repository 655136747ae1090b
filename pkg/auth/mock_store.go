package auth

import (
	"sync"
)

// MockStore implements Store in memory for testing purposes
type MockStore struct {
	mu      sync.RWMutex
	name    string
	cookies []string
	apiKey  string

	// Error injection for testing
	CookiesError error
	APIKeyError  error
	StoreError   error
}

// NewMockStore creates a mock store preloaded with the given values
func NewMockStore(name string, cookies []string, apiKey string) *MockStore {
	return &MockStore{name: name, cookies: cookies, apiKey: apiKey}
}

func (m *MockStore) Name() string { return m.name }

func (m *MockStore) Cookies() ([]string, error) {
	if m.CookiesError != nil {
		return nil, m.CookiesError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.cookies) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return append([]string(nil), m.cookies...), nil
}

func (m *MockStore) APIKey() (string, error) {
	if m.APIKeyError != nil {
		return "", m.APIKeyError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.apiKey == "" {
		return "", ErrCredentialsNotFound
	}
	return m.apiKey, nil
}

func (m *MockStore) SetCookies(cookies []string) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if len(cookies) == 0 {
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cookies = append([]string(nil), cookies...)
	return nil
}

func (m *MockStore) SetAPIKey(key string) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if key == "" {
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.apiKey = key
	return nil
}

func (m *MockStore) Delete() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.cookies) == 0 && m.apiKey == "" {
		return ErrCredentialsNotFound
	}
	m.cookies = nil
	m.apiKey = ""
	return nil
}
