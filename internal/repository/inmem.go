package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"callbot/internal/domain"
)

// InMemoryCallRepository keeps calls in memory. It backs tests and dry runs
// with the same semantics as the Postgres store.
type InMemoryCallRepository struct {
	mu     sync.RWMutex
	calls  map[int64]*domain.TradingCall
	nextID int64
}

func NewInMemoryCallRepository() *InMemoryCallRepository {
	return &InMemoryCallRepository{
		calls:  make(map[int64]*domain.TradingCall),
		nextID: 1,
	}
}

func (r *InMemoryCallRepository) Create(_ context.Context, call *domain.TradingCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if call.ID == 0 {
		call.ID = r.nextID
		r.nextID++
	} else if call.ID >= r.nextID {
		r.nextID = call.ID + 1
	}
	if _, exists := r.calls[call.ID]; exists {
		return fmt.Errorf("call %d already exists", call.ID)
	}

	cp := *call
	r.calls[call.ID] = &cp
	return nil
}

func (r *InMemoryCallRepository) FindUnseen(_ context.Context, lookback time.Duration, limit int, latestFirst bool) ([]*domain.TradingCall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cutoff := time.Now().Add(-lookback)
	matched := make([]*domain.TradingCall, 0)
	for _, c := range r.calls {
		if c.EntryOrder == nil && !c.Closed && !c.Bragged && !c.Timestamp.Before(cutoff) {
			matched = append(matched, copyCall(c))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if latestFirst {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].ID < matched[j].ID
	})

	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *InMemoryCallRepository) FindEntryPending(_ context.Context) ([]*domain.TradingCall, error) {
	return r.filter(func(c *domain.TradingCall) bool {
		return c.EntryOrder != nil && c.TakeProfitOrder == nil && c.StopLossOrder == nil && !c.Closed
	}), nil
}

func (r *InMemoryCallRepository) FindExitPending(_ context.Context) ([]*domain.TradingCall, error) {
	return r.filter(func(c *domain.TradingCall) bool {
		return (c.TakeProfitOrder != nil || c.StopLossOrder != nil) && !c.Closed
	}), nil
}

func (r *InMemoryCallRepository) Save(_ context.Context, call *domain.TradingCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calls[call.ID]; !exists {
		return fmt.Errorf("call %d not found", call.ID)
	}
	r.calls[call.ID] = copyCall(call)
	return nil
}

// Get returns the stored state of a call. Test helper.
func (r *InMemoryCallRepository) Get(id int64) (*domain.TradingCall, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.calls[id]
	if !ok {
		return nil, false
	}
	return copyCall(c), true
}

func (r *InMemoryCallRepository) filter(keep func(*domain.TradingCall) bool) []*domain.TradingCall {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]*domain.TradingCall, 0)
	for _, c := range r.calls {
		if keep(c) {
			matched = append(matched, copyCall(c))
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

func copyCall(c *domain.TradingCall) *domain.TradingCall {
	cp := *c
	if c.Targets != nil {
		cp.Targets = append([]float64(nil), c.Targets...)
	}
	if c.EntryOrder != nil {
		o := *c.EntryOrder
		cp.EntryOrder = &o
	}
	if c.TakeProfitOrder != nil {
		o := *c.TakeProfitOrder
		cp.TakeProfitOrder = &o
	}
	if c.StopLossOrder != nil {
		o := *c.StopLossOrder
		cp.StopLossOrder = &o
	}
	return &cp
}

// compile-time check
var _ domain.CallRepository = (*InMemoryCallRepository)(nil)
