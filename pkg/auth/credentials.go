package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// DefaultProfile is the profile used when none is given
const DefaultProfile = "default"

// Credentials are the RapidAPI secrets used to call the image source
type Credentials struct {
	Profile      string    `json:"profile"`
	APIKey       string    `json:"api_key"`
	APIHost      string    `json:"api_host,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	Store(creds *Credentials) error
	Retrieve(profile string) (*Credentials, error)
	Delete(profile string) error
	Exists(profile string) bool
}

// Resolver returns the credentials to use for the next upstream request
type Resolver interface {
	Resolve() (*Credentials, error)
}

// ResolverFunc adapts a function to Resolver
type ResolverFunc func() (*Credentials, error)

func (f ResolverFunc) Resolve() (*Credentials, error) { return f() }

// Static resolves to fixed credentials, typically from configuration
func Static(apiKey, apiHost string) Resolver {
	return ResolverFunc(func() (*Credentials, error) {
		if apiKey == "" {
			return nil, ErrCredentialsNotFound
		}
		return &Credentials{Profile: DefaultProfile, APIKey: apiKey, APIHost: apiHost}, nil
	})
}

// Chain tries each resolver in order and returns the first hit
func Chain(resolvers ...Resolver) Resolver {
	return ResolverFunc(func() (*Credentials, error) {
		for _, r := range resolvers {
			if r == nil {
				continue
			}
			if creds, err := r.Resolve(); err == nil && creds != nil {
				return creds, nil
			}
		}
		return nil, ErrCredentialsNotFound
	})
}

// Manager handles credential storage with fallback: keyring, then the
// encrypted file, then the environment
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager with every store available on
// this machine
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over the given stores, in priority order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials in the first store that accepts them
func (m *Manager) Store(creds *Credentials) error {
	if creds == nil || creds.APIKey == "" {
		return errors.New("API key is required")
	}
	if creds.Profile == "" {
		creds.Profile = DefaultProfile
	}
	creds.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(creds)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(profile string) (*Credentials, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if creds, err := store.Retrieve(profile); err == nil && creds != nil {
			return creds, nil
		}
	}
	return nil, fmt.Errorf("%w for profile: %s", ErrCredentialsNotFound, profile)
}

// Resolve returns the default profile's credentials
func (m *Manager) Resolve() (*Credentials, error) {
	return m.Retrieve(DefaultProfile)
}

// Delete removes credentials from every store that holds them
func (m *Manager) Delete(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for profile: %s", ErrCredentialsNotFound, profile)
}

// Source names the first store that holds the profile, for status output
func (m *Manager) Source(profile string) string {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if store.Exists(profile) {
			return storeName(store)
		}
	}
	return ""
}

func storeName(store CredentialStore) string {
	switch store.(type) {
	case *KeyringStore:
		return "keyring"
	case *EncryptedFileStore:
		return "encrypted file"
	case *EnvironmentStore:
		return "environment"
	default:
		return fmt.Sprintf("%T", store)
	}
}

func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "gridpreview")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "gridpreview")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "gridpreview")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "gridpreview")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy with the API key masked
func Sanitize(creds *Credentials) *Credentials {
	if creds == nil {
		return nil
	}
	out := *creds
	out.APIKey = maskString(creds.APIKey)
	return &out
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
