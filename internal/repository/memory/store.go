// Package memory is an in-process Store used by tests and by
// STORAGE_DRIVER=memory. A single mutex makes every method atomic, which
// gives IncrementShipped the same compare-and-set semantics as the MongoDB
// conditional update.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository"
)

// Store keeps orders, allocations and activities in maps.
type Store struct {
	mu          sync.RWMutex
	orders      map[string]models.Order
	allocations map[string]models.Allocation
	activities  []models.ActivityEvent
}

var _ repository.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		orders:      make(map[string]models.Order),
		allocations: make(map[string]models.Allocation),
	}
}

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) InsertOrder(_ context.Context, order models.Order) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if order.ID == "" {
		order.ID = repository.NewID()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, repository.ErrNotFound
	}
	return order, nil
}

func (s *Store) ListOrders(context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) FindOrders(_ context.Context, ids []string) (map[string]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Order, len(ids))
	for _, id := range ids {
		if o, ok := s.orders[id]; ok {
			out[id] = o
		}
	}
	return out, nil
}

func (s *Store) UpdateOrder(_ context.Context, id string, patch models.OrderPatch, now time.Time) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		return models.Order{}, repository.ErrNotFound
	}
	order = patch.Apply(order)
	order.UpdatedAt = now
	s.orders[id] = order
	return order, nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

func (s *Store) InsertAllocation(_ context.Context, allocation models.Allocation) (models.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if allocation.ID == "" {
		allocation.ID = repository.NewID()
	}
	s.allocations[allocation.ID] = allocation
	return allocation, nil
}

func (s *Store) GetAllocation(_ context.Context, id string) (models.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.allocations[id]
	if !ok {
		return models.Allocation{}, repository.ErrNotFound
	}
	return a, nil
}

func (s *Store) ListAllocations(_ context.Context, filter repository.AllocationFilter) ([]models.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Allocation, 0)
	for _, a := range s.allocations {
		if matches(a, filter) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].LoadingDate != out[j].LoadingDate {
			return out[i].LoadingDate.Before(out[j].LoadingDate)
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matches(a models.Allocation, f repository.AllocationFilter) bool {
	if f.OrderID != "" && a.OrderID != f.OrderID {
		return false
	}
	if !f.Date.IsZero() && a.LoadingDate != f.Date {
		return false
	}
	if !f.From.IsZero() && a.LoadingDate.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && f.To.Before(a.LoadingDate) {
		return false
	}
	return true
}

func (s *Store) FindAllocations(_ context.Context, ids []string) (map[string]models.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]models.Allocation, len(ids))
	for _, id := range ids {
		if a, ok := s.allocations[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (s *Store) UpdateAllocation(_ context.Context, id string, patch models.AllocationPatch, now time.Time) (models.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.allocations[id]
	if !ok {
		return models.Allocation{}, repository.ErrNotFound
	}
	if patch.RequiredTons != nil && a.ShippedTons > *patch.RequiredTons+models.TonsEpsilon {
		return a, repository.ErrBelowShipped
	}
	a = patch.Apply(a)
	a.UpdatedAt = now
	s.allocations[id] = a
	return a, nil
}

func (s *Store) IncrementShipped(_ context.Context, id string, tons float64, logistician string, now time.Time) (models.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.allocations[id]
	if !ok {
		return models.Allocation{}, repository.ErrNotFound
	}
	if a.ShippedTons+tons > a.RequiredTons+models.TonsEpsilon {
		return a, repository.ErrCeilingExceeded
	}
	a.ShippedTons += tons
	a.Logistician = logistician
	a.UpdatedAt = now
	s.allocations[id] = a
	return a, nil
}

func (s *Store) UpdateAndIncrement(_ context.Context, id string, patch models.AllocationPatch, tons float64, logistician string, now time.Time) (models.Allocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.allocations[id]
	if !ok {
		return models.Allocation{}, repository.ErrNotFound
	}
	next := patch.Apply(a)
	if a.ShippedTons > next.RequiredTons+models.TonsEpsilon {
		return next, repository.ErrBelowShipped
	}
	if a.ShippedTons+tons > next.RequiredTons+models.TonsEpsilon {
		return next, repository.ErrCeilingExceeded
	}
	next.ShippedTons += tons
	next.Logistician = logistician
	next.UpdatedAt = now
	s.allocations[id] = next
	return next, nil
}

func (s *Store) DeleteAllocation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.allocations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.allocations, id)
	return nil
}

func (s *Store) DeleteAllocationsByOrder(_ context.Context, orderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, a := range s.allocations {
		if a.OrderID == orderID {
			delete(s.allocations, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) CountAllocationsByOrder(_ context.Context, orderID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, a := range s.allocations {
		if a.OrderID == orderID {
			n++
		}
	}
	return n, nil
}

func (s *Store) AppendActivity(_ context.Context, event models.ActivityEvent) (models.ActivityEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event.ID == "" {
		event.ID = repository.NewID()
	}
	s.activities = append(s.activities, event)
	return event, nil
}

// ListRecentActivities walks the slice backwards; insertion order breaks
// ties between equal timestamps.
func (s *Store) ListRecentActivities(_ context.Context, limit int) ([]models.ActivityEvent, error) {
	if limit <= 0 {
		return []models.ActivityEvent{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := make([]models.ActivityEvent, len(s.activities))
	copy(ordered, s.activities)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	out := make([]models.ActivityEvent, 0, limit)
	for i := len(ordered) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, ordered[i])
	}
	return out, nil
}

func (s *Store) DeleteActivitiesByOrder(_ context.Context, orderID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.activities[:0]
	var n int64
	for _, e := range s.activities {
		if e.OrderID == orderID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.activities = kept
	return n, nil
}
