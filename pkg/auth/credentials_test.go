package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"ecoscan/pkg/config"
	errs "ecoscan/pkg/errors"

	"github.com/zalando/go-keyring"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestParseCookies(t *testing.T) {
	got := ParseCookies("session=a\r\n\n  session=b  \n\n")
	want := []string{"session=a", "session=b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseCookies() = %v, want %v", got, want)
	}
	if ParseCookies("\n \n") != nil {
		t.Error("blank input should yield no cookies")
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	cookieFile := writeFile(t, dir, "cookie.key", "session=one\n\nsession=two\n")
	keyFile := writeFile(t, dir, "api.key", "  pexels-key \n")

	src := NewFileSource(cookieFile, keyFile)

	cookies, err := src.Cookies()
	if err != nil {
		t.Fatalf("Cookies() error = %v", err)
	}
	if len(cookies) != 2 || cookies[1] != "session=two" {
		t.Errorf("unexpected cookies: %v", cookies)
	}

	key, err := src.APIKey()
	if err != nil {
		t.Fatalf("APIKey() error = %v", err)
	}
	if key != "pexels-key" {
		t.Errorf("APIKey() = %q, want pexels-key", key)
	}
}

func TestFileSourceMissingFiles(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "api.key", "   \n")
	src := NewFileSource(filepath.Join(dir, "nope.key"), empty)

	if _, err := src.Cookies(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected ErrCredentialsNotFound for missing file, got %v", err)
	}
	if _, err := src.APIKey(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected ErrCredentialsNotFound for empty key, got %v", err)
	}
}

func TestEnvironmentSource(t *testing.T) {
	t.Setenv(EnvCookies, "session=a;;session=b\nsession=c")
	t.Setenv(EnvAPIKey, "env-key")

	src := NewEnvironmentSource()

	cookies, err := src.Cookies()
	if err != nil {
		t.Fatalf("Cookies() error = %v", err)
	}
	if want := []string{"session=a", "session=b", "session=c"}; !reflect.DeepEqual(cookies, want) {
		t.Errorf("Cookies() = %v, want %v", cookies, want)
	}

	key, err := src.APIKey()
	if err != nil || key != "env-key" {
		t.Errorf("APIKey() = %q, %v", key, err)
	}

	t.Setenv(EnvCookies, "")
	if _, err := src.Cookies(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected ErrCredentialsNotFound, got %v", err)
	}
}

func TestChainResolvesIndependently(t *testing.T) {
	keyOnly := NewMockStore("first", nil, "key-from-first")
	cookiesOnly := NewMockStore("second", []string{"session=x"}, "key-from-second")

	creds, err := Chain{keyOnly, cookiesOnly}.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if creds.APIKey != "key-from-first" || creds.APIKeyFrom != "first" {
		t.Errorf("unexpected key %q from %q", creds.APIKey, creds.APIKeyFrom)
	}
	if len(creds.Cookies) != 1 || creds.CookieFrom != "second" {
		t.Errorf("unexpected cookies %v from %q", creds.Cookies, creds.CookieFrom)
	}
}

func TestChainMissingIsConfigMissing(t *testing.T) {
	tests := []struct {
		name    string
		chain   Chain
		wantMsg string
	}{
		{"nothing", Chain{NewMockStore("m", nil, "")}, "missing account cookies and Pexels API key"},
		{"no key", Chain{NewMockStore("m", []string{"c"}, "")}, "missing Pexels API key"},
		{"no cookies", Chain{NewMockStore("m", nil, "k")}, "missing account cookies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.chain.Load()
			if !errs.Is(err, errs.KindConfigMissing) {
				t.Fatalf("expected KindConfigMissing, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestChainReportsBrokenSource(t *testing.T) {
	broken := NewMockStore("broken", nil, "")
	broken.CookiesError = errors.New("permission denied")

	_, err := Chain{broken}.Load()
	if err == nil || !strings.Contains(err.Error(), "broken: permission denied") {
		t.Errorf("expected source failure in error, got %v", err)
	}
}

func TestNewChainOrder(t *testing.T) {
	dir := t.TempDir()
	chain, err := NewChain(config.CredentialsConfig{
		CookieFile: filepath.Join(dir, "cookie.key"),
		APIKeyFile: filepath.Join(dir, "api.key"),
		VaultFile:  filepath.Join(dir, "credentials.enc"),
	})
	if err != nil {
		t.Fatalf("NewChain() error = %v", err)
	}

	var names []string
	for _, src := range chain {
		names = append(names, src.Name())
	}
	if want := []string{"environment", "file", "vault"}; !reflect.DeepEqual(names, want) {
		t.Errorf("chain order = %v, want %v", names, want)
	}
	if _, err := os.Stat(filepath.Join(dir, ".passphrase")); !os.IsNotExist(err) {
		t.Error("building the chain must not touch the vault directory")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvPassphrase, "")
	path := filepath.Join(dir, "vault", "credentials.enc")
	store := NewEncryptedFileStore(path)

	if _, err := store.APIKey(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Fatalf("empty vault should report not found, got %v", err)
	}

	if err := store.SetAPIKey(" vault-key "); err != nil {
		t.Fatalf("SetAPIKey() error = %v", err)
	}
	if err := store.SetCookies([]string{"session=1", "session=2"}); err != nil {
		t.Fatalf("SetCookies() error = %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("vault not written: %v", err)
	}
	if bytes.Contains(raw, []byte("vault-key")) || bytes.Contains(raw, []byte("session=1")) {
		t.Error("vault contents must be encrypted")
	}

	reopened := NewEncryptedFileStore(path)
	key, err := reopened.APIKey()
	if err != nil || key != "vault-key" {
		t.Errorf("APIKey() = %q, %v", key, err)
	}
	cookies, err := reopened.Cookies()
	if err != nil || len(cookies) != 2 {
		t.Errorf("Cookies() = %v, %v", cookies, err)
	}

	if err := reopened.Delete(); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := reopened.Delete(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("second Delete() should report not found, got %v", err)
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(EnvPassphrase, "correct horse")
	if err := NewEncryptedFileStore(path).SetAPIKey("secret"); err != nil {
		t.Fatalf("SetAPIKey() error = %v", err)
	}

	t.Setenv(EnvPassphrase, "battery staple")
	_, err := NewEncryptedFileStore(path).APIKey()
	if err == nil || errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected decryption failure, got %v", err)
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("NewKeyringStore() error = %v", err)
	}

	if _, err := store.APIKey(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("expected ErrCredentialsNotFound, got %v", err)
	}
	if err := store.SetAPIKey("ring-key"); err != nil {
		t.Fatalf("SetAPIKey() error = %v", err)
	}
	if err := store.SetCookies([]string{"session=r"}); err != nil {
		t.Fatalf("SetCookies() error = %v", err)
	}

	creds, err := Chain{NewMockStore("empty", nil, ""), store}.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if creds.APIKey != "ring-key" || creds.APIKeyFrom != "keyring" {
		t.Errorf("unexpected key %q from %q", creds.APIKey, creds.APIKeyFrom)
	}

	if err := store.Delete(); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if err := store.Delete(); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("second Delete() should report not found, got %v", err)
	}
}

func TestMaskString(t *testing.T) {
	tests := map[string]string{
		"short":                "********",
		"session=abcdefghijkl": "sess...ijkl",
		"":                     "********",
	}
	for in, want := range tests {
		if got := MaskString(in); got != want {
			t.Errorf("MaskString(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestShowCookieExtractionGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowCookieExtractionGuide(&buf)
	if !strings.Contains(buf.String(), "cookie.key") || !strings.Contains(buf.String(), "pexels.com/api") {
		t.Error("guide should mention cookie.key and the Pexels key page")
	}
}

func TestOpenStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.enc")

	store, err := OpenStore(config.CredentialsConfig{VaultFile: path})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	vault, ok := store.(*EncryptedFileStore)
	if !ok || vault.Path() != path {
		t.Errorf("expected vault at %s, got %#v", path, store)
	}

	keyring.MockInit()
	store, err = OpenStore(config.CredentialsConfig{UseKeyring: true})
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	if store.Name() != "keyring" {
		t.Errorf("expected keyring store, got %s", store.Name())
	}
}
