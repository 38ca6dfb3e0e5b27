package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-accounts/pkg/domain"
)

// MemoryStore is an in-memory credential store. It honors the same
// contract as AccountsRepository, including the versioned
// compare-and-swap update, and is meant for tests and for embedding
// without a database.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[uuid.UUID]*domain.Account)}
}

// Create stores a new account.
func (s *MemoryStore) Create(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if strings.EqualFold(existing.Email, account.Email) || existing.Username == account.Username {
			return domain.ErrDuplicateIdentity
		}
	}

	s.accounts[account.ID] = clone(account)
	return nil
}

// GetByID retrieves an account by ID.
func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return clone(account), nil
}

// GetByEmail retrieves an account by email, case-insensitively.
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, account := range s.accounts {
		if strings.EqualFold(account.Email, email) {
			return clone(account), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// Update persists an account if its version is still current.
func (s *MemoryStore) Update(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.accounts[account.ID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	if stored.Version != account.Version {
		return domain.ErrConcurrencyConflict
	}

	account.Version++
	account.UpdatedAt = time.Now()
	s.accounts[account.ID] = clone(account)
	return nil
}

func clone(account *domain.Account) *domain.Account {
	c := *account
	if account.LockoutEnd != nil {
		end := *account.LockoutEnd
		c.LockoutEnd = &end
	}
	return &c
}
