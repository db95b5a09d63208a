package user

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailExists        = errors.New("email already exists")
)

type Repository interface {
	GetByID(ctx context.Context, id string) (Account, error)
	GetByEmail(ctx context.Context, email string) (Account, error)
	Create(ctx context.Context, account Account) (Account, error)
}

// InMemoryRepository keeps accounts in a slice. The email uniqueness check and
// the insert happen under one lock, like a unique index would.
type InMemoryRepository struct {
	mu       sync.RWMutex
	accounts []Account
}

func NewInMemoryRepository(seed []Account) *InMemoryRepository {
	repo := &InMemoryRepository{accounts: make([]Account, 0, len(seed))}
	repo.accounts = append(repo.accounts, seed...)
	return repo
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.ID == id {
			return account, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, account := range r.accounts {
		if account.Email == email {
			return account, nil
		}
	}
	return Account{}, ErrNotFound
}

func (r *InMemoryRepository) Create(ctx context.Context, account Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.accounts {
		if existing.Email == account.Email {
			return Account{}, ErrEmailExists
		}
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	r.accounts = append(r.accounts, account)
	return account, nil
}

// Count returns the number of stored accounts.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accounts)
}
