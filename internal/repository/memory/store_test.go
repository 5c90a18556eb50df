package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository"
)

var june1 = models.Date{Year: 2024, Month: time.June, Day: 1}

func TestIncrementShippedRespectsCeiling(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a, err := s.InsertAllocation(ctx, models.Allocation{OrderID: "o1", LoadingDate: june1, RequiredTons: 10})
	require.NoError(t, err)

	got, err := s.IncrementShipped(ctx, a.ID, 6, "Ivan", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.ShippedTons)
	assert.Equal(t, "Ivan", got.Logistician)

	current, err := s.IncrementShipped(ctx, a.ID, 5, "Petr", time.Now())
	assert.ErrorIs(t, err, repository.ErrCeilingExceeded)
	assert.Equal(t, 6.0, current.ShippedTons)
	assert.Equal(t, "Ivan", current.Logistician)

	_, err = s.IncrementShipped(ctx, "missing", 1, "Ivan", time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestIncrementShippedConcurrent(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a, err := s.InsertAllocation(ctx, models.Allocation{OrderID: "o1", LoadingDate: june1, RequiredTons: 100})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.IncrementShipped(ctx, a.ID, 1, "loader", time.Now())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.GetAllocation(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.ShippedTons)
}

func TestUpdateAllocationBelowShipped(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a, err := s.InsertAllocation(ctx, models.Allocation{OrderID: "o1", LoadingDate: june1, RequiredTons: 10, ShippedTons: 8})
	require.NoError(t, err)

	five := 5.0
	current, err := s.UpdateAllocation(ctx, a.ID, models.AllocationPatch{RequiredTons: &five}, time.Now())
	assert.ErrorIs(t, err, repository.ErrBelowShipped)
	assert.Equal(t, 10.0, current.RequiredTons)

	eight := 8.0
	got, err := s.UpdateAllocation(ctx, a.ID, models.AllocationPatch{RequiredTons: &eight}, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 8.0, got.RequiredTons)
	assert.True(t, got.Completed())
}

func TestListAllocationsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	june2 := models.Date{Year: 2024, Month: time.June, Day: 2}
	_, _ = s.InsertAllocation(ctx, models.Allocation{OrderID: "o1", LoadingDate: june2, RequiredTons: 1})
	_, _ = s.InsertAllocation(ctx, models.Allocation{OrderID: "o1", LoadingDate: june1, RequiredTons: 1})
	_, _ = s.InsertAllocation(ctx, models.Allocation{OrderID: "o2", LoadingDate: june1, RequiredTons: 1})

	byDate, err := s.ListAllocations(ctx, repository.AllocationFilter{Date: june1})
	require.NoError(t, err)
	assert.Len(t, byDate, 2)

	byOrder, err := s.ListAllocations(ctx, repository.AllocationFilter{OrderID: "o1"})
	require.NoError(t, err)
	require.Len(t, byOrder, 2)
	assert.Equal(t, june1, byOrder[0].LoadingDate)

	ranged, err := s.ListAllocations(ctx, repository.AllocationFilter{From: june2, To: june2})
	require.NoError(t, err)
	assert.Len(t, ranged, 1)
}

func TestActivitiesNewestFirstAndCascade(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	_, _ = s.AppendActivity(ctx, models.ActivityEvent{Kind: models.ActivityOrderCreated, OrderID: "o1", CreatedAt: base})
	_, _ = s.AppendActivity(ctx, models.ActivityEvent{Kind: models.ActivityOrderCreated, OrderID: "o2", CreatedAt: base.Add(time.Minute)})
	_, _ = s.AppendActivity(ctx, models.ActivityEvent{Kind: models.ActivityTonsShipped, OrderID: "o1", CreatedAt: base.Add(2 * time.Minute)})

	recent, err := s.ListRecentActivities(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, models.ActivityTonsShipped, recent[0].Kind)
	assert.Equal(t, "o2", recent[1].OrderID)

	n, err := s.DeleteActivitiesByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	recent, err = s.ListRecentActivities(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestUpdateAndIncrementIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	a, err := s.InsertAllocation(ctx, models.Allocation{OrderID: "o1", LoadingDate: june1, RequiredTons: 10, ShippedTons: 8})
	require.NoError(t, err)

	twelve := 12.0
	next, err := s.UpdateAndIncrement(ctx, a.ID, models.AllocationPatch{RequiredTons: &twelve}, 5, "Ivan", time.Now())
	require.ErrorIs(t, err, repository.ErrCeilingExceeded)
	assert.Equal(t, 12.0, next.RequiredTons)

	five := 5.0
	_, err = s.UpdateAndIncrement(ctx, a.ID, models.AllocationPatch{RequiredTons: &five}, 1, "Ivan", time.Now())
	require.ErrorIs(t, err, repository.ErrBelowShipped)

	stored, err := s.GetAllocation(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 10.0, stored.RequiredTons)
	assert.Equal(t, 8.0, stored.ShippedTons)

	got, err := s.UpdateAndIncrement(ctx, a.ID, models.AllocationPatch{RequiredTons: &twelve}, 4, "Ivan", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.RequiredTons)
	assert.Equal(t, 12.0, got.ShippedTons)
	assert.Equal(t, "Ivan", got.Logistician)

	_, err = s.UpdateAndIncrement(ctx, "missing", models.AllocationPatch{RequiredTons: &twelve}, 1, "Ivan", time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
