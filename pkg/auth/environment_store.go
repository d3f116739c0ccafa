package auth

import (
	"os"
	"strings"
	"time"
)

// EnvironmentStore reads credentials from NEKODL_<PROVIDER>_USERNAME and
// NEKODL_<PROVIDER>_API_KEY. It is read-only.
type EnvironmentStore struct {
	providers []string
}

// NewEnvironmentStore creates an environment store. The provider names are
// only used by List.
func NewEnvironmentStore(providers ...string) *EnvironmentStore {
	if len(providers) == 0 {
		providers = []string{"danbooru"}
	}
	return &EnvironmentStore{providers: providers}
}

// EnvPrefix returns the variable prefix used for a provider
func EnvPrefix(provider string) string {
	name := strings.ToUpper(provider)
	name = strings.NewReplacer(".", "_", "-", "_").Replace(name)
	return "NEKODL_" + name + "_"
}

func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(provider string) (*Account, error) {
	if provider == "" {
		return nil, ErrInvalidCredentials
	}

	prefix := EnvPrefix(provider)
	username := os.Getenv(prefix + "USERNAME")
	apiKey := os.Getenv(prefix + "API_KEY")
	if username == "" || apiKey == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Account{
		Provider:     provider,
		Username:     username,
		APIKey:       apiKey,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	var accounts []*Account
	for _, p := range e.providers {
		if account, err := e.Retrieve(p); err == nil {
			accounts = append(accounts, account)
		}
	}
	return accounts, nil
}

func (e *EnvironmentStore) Delete(provider string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(provider string) bool {
	_, err := e.Retrieve(provider)
	return err == nil
}
