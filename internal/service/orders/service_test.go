package orders

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dispatch/internal/auth"
	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository/memory"
	"github.com/mamadbah2/dispatch/internal/service/journal"
	"github.com/mamadbah2/dispatch/pkg/apperrors"
)

type captureNotifier struct{ messages []string }

func (n *captureNotifier) Notify(_ context.Context, text string) { n.messages = append(n.messages, text) }

func newService(t *testing.T) (*Service, *memory.Store, *captureNotifier) {
	t.Helper()
	store := memory.NewStore()
	notifier := &captureNotifier{}
	return NewService(store, store, journal.NewService(store, notifier, nil), nil), store, notifier
}

func ptr[T any](v T) *T { return &v }

var admin = auth.WithAdmin(context.Background())

func TestCreateOrder(t *testing.T) {
	svc, store, notifier := newService(t)

	order, err := svc.Create(admin, models.Order{
		From: " Voronezh ", To: "Novorossiysk", Cargo: "wheat", PricePerTon: 1500, DistanceKm: 820,
		Lat: 51.66, Lon: 39.2, ToLat: 44.72, ToLon: 37.77,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "Voronezh", order.From)
	assert.False(t, order.CreatedAt.IsZero())

	events, err := store.ListRecentActivities(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.ActivityOrderCreated, events[0].Kind)
	assert.Equal(t, order.ID, events[0].OrderID)

	require.Len(t, notifier.messages, 1)
	assert.Contains(t, notifier.messages[0], "Voronezh → Novorossiysk")
	assert.Contains(t, notifier.messages[0], "Distance: 820 km")
}

func TestCreateOrderValidation(t *testing.T) {
	svc, _, _ := newService(t)

	cases := map[string]models.Order{
		"missing route": {From: "A"},
		"latitude":      {From: "A", To: "B", Lat: 91},
		"to longitude":  {From: "A", To: "B", ToLon: -181},
		"price":         {From: "A", To: "B", PricePerTon: -1},
		"distance":      {From: "A", To: "B", DistanceKm: -5},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(admin, in)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		})
	}

	_, err := svc.Create(context.Background(), models.Order{From: "A", To: "B"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateOrder(t *testing.T) {
	svc, store, _ := newService(t)
	order, err := svc.Create(admin, models.Order{From: "A", To: "B", Cargo: "corn", Lat: 10})
	require.NoError(t, err)

	updated, err := svc.Update(admin, order.ID, models.OrderPatch{Cargo: ptr(" barley "), Lat: ptr(12.5)})
	require.NoError(t, err)
	assert.Equal(t, "barley", updated.Cargo)
	assert.Equal(t, 12.5, updated.Lat)

	events, err := store.ListRecentActivities(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.ActivityOrderUpdated, events[0].Kind)

	_, err = svc.Update(admin, order.ID, models.OrderPatch{})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	_, err = svc.Update(admin, order.ID, models.OrderPatch{Lon: ptr(200.0)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	_, err = svc.Update(admin, order.ID, models.OrderPatch{To: ptr("  ")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	_, err = svc.Update(admin, "missing", models.OrderPatch{Cargo: ptr("x")})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = svc.Update(context.Background(), order.ID, models.OrderPatch{Cargo: ptr("x")})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestUpdateOrderGeometryLockedOnceScheduled(t *testing.T) {
	svc, store, _ := newService(t)
	order, err := svc.Create(admin, models.Order{From: "A", To: "B", DistanceKm: 100})
	require.NoError(t, err)
	_, err = store.InsertAllocation(context.Background(), models.Allocation{OrderID: order.ID, RequiredTons: 5})
	require.NoError(t, err)

	_, err = svc.Update(admin, order.ID, models.OrderPatch{DistanceKm: ptr(150.0)})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	got, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.DistanceKm)

	updated, err := svc.Update(admin, order.ID, models.OrderPatch{PricePerTon: ptr(1800.0), From: ptr("C")})
	require.NoError(t, err)
	assert.Equal(t, 1800.0, updated.PricePerTon)
	assert.Equal(t, "C", updated.From)
}

func TestUpdateOrderResendingSameGeometryOnceScheduled(t *testing.T) {
	svc, store, _ := newService(t)
	order, err := svc.Create(admin, models.Order{From: "A", To: "B", Cargo: "wheat", Lat: 51.66, Lon: 39.2, DistanceKm: 820})
	require.NoError(t, err)
	_, err = store.InsertAllocation(context.Background(), models.Allocation{OrderID: order.ID, RequiredTons: 5})
	require.NoError(t, err)

	updated, err := svc.Update(admin, order.ID, models.OrderPatch{
		Cargo: ptr("barley"), Lat: ptr(51.66), Lon: ptr(39.2), DistanceKm: ptr(820.0),
	})
	require.NoError(t, err)
	assert.Equal(t, "barley", updated.Cargo)
	assert.Equal(t, 820.0, updated.DistanceKm)

	_, err = svc.Update(admin, order.ID, models.OrderPatch{Cargo: ptr("rye"), Lat: ptr(51.66), Lon: ptr(40.0)})
	require.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	got, err := svc.Get(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "barley", got.Cargo)
}

func TestDeleteOrderCascades(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	order, err := svc.Create(admin, models.Order{From: "A", To: "B"})
	require.NoError(t, err)
	keep, err := svc.Create(admin, models.Order{From: "C", To: "D"})
	require.NoError(t, err)

	date := models.Date{Year: 2024, Month: time.June, Day: 1}
	for _, id := range []string{order.ID, order.ID, keep.ID} {
		_, err := store.InsertAllocation(ctx, models.Allocation{OrderID: id, LoadingDate: date, RequiredTons: 1})
		require.NoError(t, err)
	}

	assert.ErrorIs(t, svc.Delete(ctx, order.ID), apperrors.ErrUnauthorized)
	require.NoError(t, svc.Delete(admin, order.ID))
	assert.ErrorIs(t, svc.Delete(admin, order.ID), apperrors.ErrNotFound)

	_, err = svc.Get(ctx, order.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	n, err := store.CountAllocationsByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = store.CountAllocationsByOrder(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	events, err := store.ListRecentActivities(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, keep.ID, events[0].OrderID)
}

func TestProgress(t *testing.T) {
	svc, store, _ := newService(t)
	ctx := context.Background()

	order, err := svc.Create(admin, models.Order{From: "A", To: "B"})
	require.NoError(t, err)
	for _, a := range []models.Allocation{
		{OrderID: order.ID, RequiredTons: 10, ShippedTons: 10},
		{OrderID: order.ID, RequiredTons: 5.5, ShippedTons: 2},
	} {
		_, err := store.InsertAllocation(ctx, a)
		require.NoError(t, err)
	}

	p, err := svc.Progress(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, p.Allocations)
	assert.Equal(t, 15.5, p.RequiredTons)
	assert.Equal(t, 12.0, p.ShippedTons)
	assert.Equal(t, 3.5, p.RemainingTons)

	_, err = svc.Progress(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
