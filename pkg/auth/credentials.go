package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// Account holds the API credentials for one login-gated provider
type Account struct {
	Provider     string    `json:"provider"`
	Username     string    `json:"username"`
	APIKey       string    `json:"api_key"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials.
// Accounts are keyed by provider name.
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(provider string) (*Account, error)
	List() ([]*Account, error)
	Delete(provider string) error
	Exists(provider string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keyring
// (when available), an encrypted file and the environment
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over explicit stores
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves credentials using the first store that accepts them
func (m *Manager) Store(account *Account) error {
	if account == nil || account.Provider == "" {
		return errors.New("provider is required")
	}
	if account.Username == "" {
		return errors.New("username is required")
	}
	if account.APIKey == "" {
		return errors.New("API key is required")
	}

	account.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(account)
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
func (m *Manager) Retrieve(provider string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(provider); err == nil && account != nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for provider: %s", ErrCredentialsNotFound, provider)
}

// Lookup returns the username and API key stored for a provider
func (m *Manager) Lookup(provider string) (string, string, error) {
	account, err := m.Retrieve(provider)
	if err != nil {
		return "", "", err
	}
	return account.Username, account.APIKey, nil
}

// List returns the most recent account per provider across all stores
func (m *Manager) List() ([]*Account, error) {
	byProvider := make(map[string]*Account)

	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, account := range accounts {
			if existing, ok := byProvider[account.Provider]; !ok || account.LastModified.After(existing.LastModified) {
				byProvider[account.Provider] = account
			}
		}
	}

	result := make([]*Account, 0, len(byProvider))
	for _, account := range byProvider {
		result = append(result, account)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Provider < result[j].Provider })

	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(provider string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(provider); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for provider: %s", ErrCredentialsNotFound, provider)
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "nekodl")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "nekodl")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "nekodl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "nekodl")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// SanitizeAccount creates a copy of the account with the API key masked
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}

	return &Account{
		Provider:     account.Provider,
		Username:     account.Username,
		APIKey:       maskString(account.APIKey),
		LastModified: account.LastModified,
	}
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
