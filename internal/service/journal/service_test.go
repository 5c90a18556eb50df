package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository"
	"github.com/mamadbah2/dispatch/internal/repository/memory"
	"github.com/mamadbah2/dispatch/pkg/apperrors"
	"github.com/mamadbah2/dispatch/pkg/worker"
)

type captureNotifier struct{ messages []string }

func (n *captureNotifier) Notify(_ context.Context, text string) { n.messages = append(n.messages, text) }

type inlinePool struct{}

func (inlinePool) Submit(task worker.Task) error {
	task(context.Background())
	return nil
}

type captureExporter struct {
	events []models.ActivityEvent
	err    error
}

func (e *captureExporter) Export(_ context.Context, event models.ActivityEvent) error {
	e.events = append(e.events, event)
	return e.err
}

// failingStore breaks activity appends only.
type failingStore struct {
	*memory.Store
}

func (failingStore) AppendActivity(context.Context, models.ActivityEvent) (models.ActivityEvent, error) {
	return models.ActivityEvent{}, errors.New("connection reset")
}

var _ repository.Store = failingStore{}

func fixedClock() time.Time { return time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC) }

func TestRecordAppendsNotifiesAndMirrors(t *testing.T) {
	store := memory.NewStore()
	notifier := &captureNotifier{}
	exporter := &captureExporter{}
	svc := NewService(store, notifier, nil, WithExporter(exporter, inlinePool{}), WithClock(fixedClock))

	saved, err := svc.Record(context.Background(), models.ActivityEvent{
		Kind: models.ActivityOrderCreated, Message: "order created", OrderID: "o1",
	}, "New order")
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, fixedClock(), saved.CreatedAt)
	assert.Equal(t, []string{"New order"}, notifier.messages)
	require.Len(t, exporter.events, 1)
	assert.Equal(t, saved.ID, exporter.events[0].ID)

	stored, err := store.ListRecentActivities(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []models.ActivityEvent{saved}, stored)
}

func TestRecordMirrorFailureIsSwallowed(t *testing.T) {
	exporter := &captureExporter{err: errors.New("quota exceeded")}
	svc := NewService(memory.NewStore(), nil, nil, WithExporter(exporter, inlinePool{}))

	_, err := svc.Record(context.Background(), models.ActivityEvent{Kind: models.ActivityOrderUpdated}, "")
	assert.NoError(t, err)
	assert.Len(t, exporter.events, 1)
}

func TestRecordAppendFailureStillNotifies(t *testing.T) {
	notifier := &captureNotifier{}
	exporter := &captureExporter{}
	svc := NewService(failingStore{memory.NewStore()}, notifier, nil, WithExporter(exporter, inlinePool{}))

	_, err := svc.Record(context.Background(), models.ActivityEvent{Kind: models.ActivityTonsShipped}, "shipped")
	require.ErrorIs(t, err, apperrors.ErrUnavailable)
	assert.Equal(t, []string{"shipped"}, notifier.messages)
	assert.Empty(t, exporter.events)
}

func TestListRecentResolvesReferences(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewService(store, nil, nil)

	order, err := store.InsertOrder(ctx, models.Order{From: "A", To: "B"})
	require.NoError(t, err)
	alloc, err := store.InsertAllocation(ctx, models.Allocation{OrderID: order.ID, RequiredTons: 5})
	require.NoError(t, err)

	base := fixedClock()
	for i, e := range []models.ActivityEvent{
		{Kind: models.ActivityOrderCreated, OrderID: order.ID},
		{Kind: models.ActivityAllocationCreated, OrderID: order.ID, ScheduleID: alloc.ID},
		{Kind: models.ActivityTonsShipped, OrderID: "gone", ScheduleID: "gone-too"},
	} {
		e.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := svc.Record(ctx, e, "")
		require.NoError(t, err)
	}

	entries, err := svc.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, models.ActivityTonsShipped, entries[0].Event.Kind)
	assert.Nil(t, entries[0].Order)
	assert.Nil(t, entries[0].Allocation)

	require.NotNil(t, entries[1].Allocation)
	assert.Equal(t, alloc.ID, entries[1].Allocation.ID)
	require.NotNil(t, entries[1].Order)
	assert.Equal(t, order.ID, entries[1].Order.ID)

	assert.Equal(t, models.ActivityOrderCreated, entries[2].Event.Kind)
	assert.Nil(t, entries[2].Allocation)

	limited, err := svc.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeleteByOrder(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewStore(), nil, nil)
	for _, id := range []string{"o1", "o1", "o2"} {
		_, err := svc.Record(ctx, models.ActivityEvent{Kind: models.ActivityOrderUpdated, OrderID: id}, "")
		require.NoError(t, err)
	}

	n, err := svc.DeleteByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := svc.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "o2", entries[0].Event.OrderID)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, ClampLimit(0))
	assert.Equal(t, DefaultLimit, ClampLimit(-3))
	assert.Equal(t, 10, ClampLimit(10))
	assert.Equal(t, MaxLimit, ClampLimit(10_000))
}
