package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andariego/andariego/internal/domain/fxrate"
	ierr "github.com/andariego/andariego/internal/errors"
	"github.com/andariego/andariego/internal/types"
)

// InMemoryFxRateStore implements fxrate.Repository over an insertion-ordered
// slice, matching the postgres ordering of rate_date desc, id desc.
type InMemoryFxRateStore struct {
	mu     sync.RWMutex
	rates  []*fxrate.FxRate
	nextID int64
}

// NewInMemoryFxRateStore creates a new in-memory fx rate repository
func NewInMemoryFxRateStore() *InMemoryFxRateStore {
	return &InMemoryFxRateStore{nextID: 1}
}

// Add inserts a quote into the series, assigning an insertion-order id
func (m *InMemoryFxRateStore) Add(rate *fxrate.FxRate) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate.ID = m.nextID
	m.nextID++
	if rate.CreatedAt.IsZero() {
		rate.CreatedAt = time.Now().UTC()
	}
	m.rates = append(m.rates, rate)
}

func (m *InMemoryFxRateStore) GetByDate(ctx context.Context, fxType types.FxType, date time.Time) (*fxrate.FxRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wantKey := types.DateKey(date, date.Location())
	var best *fxrate.FxRate
	for _, r := range m.rates {
		if r.FxType != fxType {
			continue
		}
		if types.DateKey(r.RateDate, date.Location()) != wantKey {
			continue
		}
		if best == nil || r.ID > best.ID {
			best = r
		}
	}
	if best == nil {
		return nil, ierr.NewErrorf("no fx rate for %s on %s", fxType, wantKey).
			WithHint("Fx rate not found").
			Mark(ierr.ErrNotFound)
	}
	return best, nil
}

func (m *InMemoryFxRateStore) GetLatestUpTo(ctx context.Context, fxType types.FxType, date time.Time) (*fxrate.FxRate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wantKey := types.DateKey(date, date.Location())
	var candidates []*fxrate.FxRate
	for _, r := range m.rates {
		if r.FxType != fxType {
			continue
		}
		if types.DateKey(r.RateDate, date.Location()) > wantKey {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return nil, ierr.NewErrorf("no fx rate for %s at or before %s", fxType, wantKey).
			WithHint("Fx rate not found").
			Mark(ierr.ErrNotFound)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if !candidates[i].RateDate.Equal(candidates[j].RateDate) {
			return candidates[i].RateDate.After(candidates[j].RateDate)
		}
		return candidates[i].ID > candidates[j].ID
	})
	return candidates[0], nil
}

// Clear resets the series
func (m *InMemoryFxRateStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates = nil
	m.nextID = 1
}
