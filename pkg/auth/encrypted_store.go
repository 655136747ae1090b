package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32
	iterations = 100000

	// EnvPassphrase overrides the generated vault passphrase
	EnvPassphrase = "ECOSCAN_PASSPHRASE"
)

// EncryptedFileStore keeps credentials in an AES-GCM encrypted file. The
// passphrase comes from ECOSCAN_PASSPHRASE or a generated file next to the
// vault. Nothing is created on disk until the first write.
type EncryptedFileStore struct {
	filepath string
	mu       sync.RWMutex
}

type vaultContents struct {
	Cookies []string `json:"cookies,omitempty"`
	APIKey  string   `json:"api_key,omitempty"`
}

type vaultFile struct {
	Salt      string    `json:"salt"`
	Encrypted string    `json:"encrypted"`
	Version   int       `json:"version"`
	Modified  time.Time `json:"modified"`
}

// NewEncryptedFileStore creates a vault at filePath
func NewEncryptedFileStore(filePath string) *EncryptedFileStore {
	return &EncryptedFileStore{filepath: filePath}
}

func (e *EncryptedFileStore) Name() string { return "vault" }

// Path returns the vault location
func (e *EncryptedFileStore) Path() string { return e.filepath }

// Cookies returns the cookies stored in the vault
func (e *EncryptedFileStore) Cookies() ([]string, error) {
	data, err := e.read()
	if err != nil {
		return nil, err
	}
	if len(data.Cookies) == 0 {
		return nil, ErrCredentialsNotFound
	}
	return data.Cookies, nil
}

// APIKey returns the key stored in the vault
func (e *EncryptedFileStore) APIKey() (string, error) {
	data, err := e.read()
	if err != nil {
		return "", err
	}
	if data.APIKey == "" {
		return "", ErrCredentialsNotFound
	}
	return data.APIKey, nil
}

// SetCookies replaces the stored cookies
func (e *EncryptedFileStore) SetCookies(cookies []string) error {
	if len(cookies) == 0 {
		return ErrInvalidCredentials
	}
	return e.modify(func(v *vaultContents) { v.Cookies = cookies })
}

// SetAPIKey replaces the stored key
func (e *EncryptedFileStore) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidCredentials
	}
	return e.modify(func(v *vaultContents) { v.APIKey = key })
}

// Delete removes the vault file
func (e *EncryptedFileStore) Delete() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := os.Remove(e.filepath); err != nil {
		if os.IsNotExist(err) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete vault: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) read() (*vaultContents, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	data, _, err := e.load(false)
	return data, err
}

func (e *EncryptedFileStore) modify(fn func(v *vaultContents)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	data, salt, err := e.load(true)
	if err != nil && !errors.Is(err, ErrCredentialsNotFound) {
		return fmt.Errorf("failed to load existing data: %w", err)
	}
	if data == nil {
		data = &vaultContents{}
	}
	fn(data)
	return e.save(data, salt)
}

// load decrypts the vault. It reports ErrCredentialsNotFound when the vault
// does not exist yet.
func (e *EncryptedFileStore) load(forWrite bool) (*vaultContents, []byte, error) {
	content, err := os.ReadFile(e.filepath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, ErrCredentialsNotFound
		}
		return nil, nil, fmt.Errorf("failed to read vault: %w", err)
	}

	var file vaultFile
	if err := json.Unmarshal(content, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse vault: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(file.Salt)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	encrypted, err := base64.StdEncoding.DecodeString(file.Encrypted)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode encrypted data: %w", err)
	}

	passphrase, err := e.passphrase(forWrite)
	if err != nil {
		return nil, nil, err
	}
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)

	decrypted, err := decrypt(encrypted, key)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decrypt vault: %w", err)
	}

	var data vaultContents
	if err := json.Unmarshal(decrypted, &data); err != nil {
		return nil, nil, fmt.Errorf("failed to parse vault contents: %w", err)
	}
	return &data, salt, nil
}

func (e *EncryptedFileStore) save(data *vaultContents, salt []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := io.ReadFull(rand.Reader, salt); err != nil {
			return fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(e.filepath), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	passphrase, err := e.passphrase(true)
	if err != nil {
		return err
	}
	key := pbkdf2.Key([]byte(passphrase), salt, iterations, keySize, sha256.New)

	plaintext, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal vault contents: %w", err)
	}
	encrypted, err := encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("failed to encrypt data: %w", err)
	}

	content, err := json.MarshalIndent(vaultFile{
		Salt:      base64.StdEncoding.EncodeToString(salt),
		Encrypted: base64.StdEncoding.EncodeToString(encrypted),
		Version:   1,
		Modified:  time.Now(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal vault: %w", err)
	}

	// Write to temporary file first
	tempFile := e.filepath + ".tmp"
	if err := os.WriteFile(tempFile, content, 0600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	return os.Rename(tempFile, e.filepath)
}

// passphrase returns ECOSCAN_PASSPHRASE or the contents of the passphrase
// file beside the vault, generating that file when create is set
func (e *EncryptedFileStore) passphrase(create bool) (string, error) {
	if pass := os.Getenv(EnvPassphrase); pass != "" {
		return pass, nil
	}

	passphraseFile := filepath.Join(filepath.Dir(e.filepath), ".passphrase")
	if content, err := os.ReadFile(passphraseFile); err == nil && len(content) > 0 {
		return string(content), nil
	}
	if !create {
		return "", fmt.Errorf("vault passphrase not found: set %s", EnvPassphrase)
	}

	passphrase, err := generatePassphrase()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(passphraseFile), 0700); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(passphraseFile, []byte(passphrase), 0600); err != nil {
		return "", fmt.Errorf("failed to save passphrase: %w", err)
	}
	return passphrase, nil
}

func generatePassphrase() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("failed to generate passphrase: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// encrypt encrypts data using AES-GCM
func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decrypt decrypts data using AES-GCM
func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
