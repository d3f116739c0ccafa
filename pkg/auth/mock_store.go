package auth

import (
	"sync"
)

// MockStore implements CredentialStore for testing purposes
type MockStore struct {
	accounts map[string]*Account
	mu       sync.RWMutex

	StoreError    error
	RetrieveError error
}

// NewMockStore creates a new mock credential store
func NewMockStore() *MockStore {
	return &MockStore{accounts: make(map[string]*Account)}
}

func (m *MockStore) Store(account *Account) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if account == nil || account.Provider == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *account
	m.accounts[account.Provider] = &copied
	return nil
}

func (m *MockStore) Retrieve(provider string) (*Account, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	account, ok := m.accounts[provider]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	copied := *account
	return &copied, nil
}

func (m *MockStore) List() ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	accounts := make([]*Account, 0, len(m.accounts))
	for _, account := range m.accounts {
		copied := *account
		accounts = append(accounts, &copied)
	}
	return accounts, nil
}

func (m *MockStore) Delete(provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[provider]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, provider)
	return nil
}

func (m *MockStore) Exists(provider string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[provider]
	return ok
}
