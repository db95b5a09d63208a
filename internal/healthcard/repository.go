package healthcard

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, card HealthCard) (HealthCard, error)
	GetByID(ctx context.Context, id string) (HealthCard, error)
	GetByEmail(ctx context.Context, email string) (HealthCard, error)
	List(ctx context.Context) ([]HealthCard, error)
	Update(ctx context.Context, card HealthCard) (HealthCard, error)
	Delete(ctx context.Context, id string) error
}

// InMemoryRepository enforces the email and national id unique constraints
// under its lock.
type InMemoryRepository struct {
	mu    sync.RWMutex
	cards []HealthCard
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

func (r *InMemoryRepository) Create(ctx context.Context, card HealthCard) (HealthCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.conflict(card, -1); err != nil {
		return HealthCard{}, err
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	card.CreatedAt = now
	card.UpdatedAt = now
	r.cards = append(r.cards, card)
	return card, nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (HealthCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.cards[i], nil
	}
	return HealthCard{}, ErrNotFound
}

func (r *InMemoryRepository) GetByEmail(ctx context.Context, email string) (HealthCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, card := range r.cards {
		if card.Email == email {
			return card, nil
		}
	}
	return HealthCard{}, ErrNotFound
}

// List returns the cards newest first; cards created in the same instant keep
// reverse insertion order.
func (r *InMemoryRepository) List(ctx context.Context) ([]HealthCard, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]HealthCard, 0, len(r.cards))
	for i := len(r.cards) - 1; i >= 0; i-- {
		out = append(out, r.cards[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *InMemoryRepository) Update(ctx context.Context, card HealthCard) (HealthCard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(card.ID)
	if i < 0 {
		return HealthCard{}, ErrNotFound
	}
	if err := r.conflict(card, i); err != nil {
		return HealthCard{}, err
	}
	card.CreatedAt = r.cards[i].CreatedAt
	card.UpdatedAt = time.Now().UTC()
	r.cards[i] = card
	return card, nil
}

func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	r.cards = append(r.cards[:i], r.cards[i+1:]...)
	return nil
}

func (r *InMemoryRepository) indexOf(id string) int {
	for i, card := range r.cards {
		if card.ID == id {
			return i
		}
	}
	return -1
}

// conflict checks card against every stored card except the one at skip.
func (r *InMemoryRepository) conflict(card HealthCard, skip int) error {
	for i, existing := range r.cards {
		if i == skip {
			continue
		}
		if existing.Email == card.Email {
			return &DuplicateKeyError{Field: "email"}
		}
		if existing.NationalID == card.NationalID {
			return &DuplicateKeyError{Field: "nationalId"}
		}
	}
	return nil
}
