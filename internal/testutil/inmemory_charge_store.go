package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/andariego/andariego/internal/domain/charge"
	ierr "github.com/andariego/andariego/internal/errors"
)

// InMemoryChargeStore implements charge.Repository, enforcing the
// (agency_id, idempotency_key) and (charge_id, attempt_number) unique keys.
// A conflict surfaces as a clean already-exists without poisoning later
// statements, matching the conflict-safe inserts of the postgres repository.
type InMemoryChargeStore struct {
	*InMemoryStore[*charge.Charge]
	attempts *InMemoryStore[*charge.ChargeAttempt]

	mu           sync.Mutex
	byIdemKey    map[string]string // "{agency}|{key}" -> charge id
	byAttemptNum map[string]string // "{charge}|{number}" -> attempt id
}

// NewInMemoryChargeStore creates a new in-memory charge repository
func NewInMemoryChargeStore() *InMemoryChargeStore {
	return &InMemoryChargeStore{
		InMemoryStore: NewInMemoryStore[*charge.Charge](),
		attempts:      NewInMemoryStore[*charge.ChargeAttempt](),
		byIdemKey:     make(map[string]string),
		byAttemptNum:  make(map[string]string),
	}
}

func idemIndexKey(agencyID int64, key string) string {
	return fmt.Sprintf("%d|%s", agencyID, key)
}

func attemptIndexKey(chargeID string, attemptNumber int) string {
	return fmt.Sprintf("%s|%d", chargeID, attemptNumber)
}

func (m *InMemoryChargeStore) Create(ctx context.Context, c *charge.Charge) error {
	if c == nil {
		return ierr.NewError("charge cannot be nil").
			WithHint("Charge cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := idemIndexKey(c.AgencyID, c.IdempotencyKey)
	if _, exists := m.byIdemKey[key]; exists {
		return ierr.NewErrorf("charge with idempotency key %s already exists", c.IdempotencyKey).
			WithHint("A charge already exists for this agency and idempotency key").
			Mark(ierr.ErrAlreadyExists)
	}
	if err := m.InMemoryStore.Create(ctx, c.ID, c); err != nil {
		return err
	}
	m.byIdemKey[key] = c.ID
	return nil
}

func (m *InMemoryChargeStore) Get(ctx context.Context, id string) (*charge.Charge, error) {
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemoryChargeStore) GetByIdempotencyKey(ctx context.Context, agencyID int64, key string) (*charge.Charge, error) {
	m.mu.Lock()
	id, ok := m.byIdemKey[idemIndexKey(agencyID, key)]
	m.mu.Unlock()

	if !ok {
		return nil, ierr.NewErrorf("charge with idempotency key %s not found", key).
			WithHint("Charge not found").
			Mark(ierr.ErrNotFound)
	}
	return m.InMemoryStore.Get(ctx, id)
}

func (m *InMemoryChargeStore) CreateAttempt(ctx context.Context, attempt *charge.ChargeAttempt) error {
	if attempt == nil {
		return ierr.NewError("attempt cannot be nil").
			WithHint("Attempt cannot be nil").
			Mark(ierr.ErrValidation)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := attemptIndexKey(attempt.ChargeID, attempt.AttemptNumber)
	if _, exists := m.byAttemptNum[key]; exists {
		return ierr.NewErrorf("attempt %d for charge %s already exists", attempt.AttemptNumber, attempt.ChargeID).
			WithHint("An attempt already exists for this charge and number").
			Mark(ierr.ErrAlreadyExists)
	}
	if err := m.attempts.Create(ctx, attempt.ID, attempt); err != nil {
		return err
	}
	m.byAttemptNum[key] = attempt.ID
	return nil
}

func (m *InMemoryChargeStore) GetAttemptByNumber(ctx context.Context, chargeID string, attemptNumber int) (*charge.ChargeAttempt, error) {
	m.mu.Lock()
	id, ok := m.byAttemptNum[attemptIndexKey(chargeID, attemptNumber)]
	m.mu.Unlock()

	if !ok {
		return nil, ierr.NewErrorf("attempt %d for charge %s not found", attemptNumber, chargeID).
			WithHint("Attempt not found").
			Mark(ierr.ErrNotFound)
	}
	return m.attempts.Get(ctx, id)
}

func (m *InMemoryChargeStore) ListAttempts(ctx context.Context, chargeID string) ([]*charge.ChargeAttempt, error) {
	attempts, err := m.attempts.List(ctx, func(ctx context.Context, a *charge.ChargeAttempt) bool {
		return a.ChargeID == chargeID
	}, nil)
	if err != nil {
		return nil, err
	}

	sort.Slice(attempts, func(i, j int) bool {
		return attempts[i].AttemptNumber < attempts[j].AttemptNumber
	})
	return attempts, nil
}

// Clear resets the store and its natural key indexes
func (m *InMemoryChargeStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InMemoryStore.Clear()
	m.attempts.Clear()
	m.byIdemKey = make(map[string]string)
	m.byAttemptNum = make(map[string]string)
}
