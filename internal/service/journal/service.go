// Package journal is the append-only activity log. It is purely
// observational: nothing reads it to make decisions.
package journal

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/notify"
	"github.com/mamadbah2/dispatch/internal/repository"
	"github.com/mamadbah2/dispatch/pkg/apperrors"
)

const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Exporter mirrors journal entries to an external store.
type Exporter interface {
	Export(ctx context.Context, event models.ActivityEvent) error
}

// Service appends events, forwards summaries to the notifier and serves the
// recent feed.
type Service struct {
	activities  repository.ActivityRepository
	orders      repository.OrderRepository
	allocations repository.AllocationRepository
	notifier    notify.Notifier
	exporter    Exporter
	pool        notify.Submitter
	logger      *zap.Logger
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithExporter mirrors every appended event through pool.
func WithExporter(exporter Exporter, pool notify.Submitter) Option {
	return func(s *Service) {
		s.exporter = exporter
		s.pool = pool
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the journal.
func NewService(store repository.Store, notifier notify.Notifier, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	s := &Service{
		activities:  store,
		orders:      store,
		allocations: store,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record appends event and hands summary to the notifier. An append failure
// is logged and returned; notification and mirroring are fire-and-forget.
func (s *Service) Record(ctx context.Context, event models.ActivityEvent, summary string) (models.ActivityEvent, error) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = s.now().UTC()
	}

	saved, err := s.activities.AppendActivity(ctx, event)
	if err != nil {
		s.logger.Error("failed to append activity",
			zap.String("kind", string(event.Kind)),
			zap.String("order_id", event.OrderID),
			zap.String("schedule_id", event.ScheduleID),
			zap.Error(err))
		saved = event
	} else {
		s.mirror(saved)
	}

	s.notifier.Notify(ctx, summary)

	if err != nil {
		return saved, apperrors.Unavailable("append activity", err)
	}
	return saved, nil
}

func (s *Service) mirror(event models.ActivityEvent) {
	if s.exporter == nil || s.pool == nil {
		return
	}
	err := s.pool.Submit(func(ctx context.Context) {
		exportCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()
		if err := s.exporter.Export(exportCtx, event); err != nil {
			s.logger.Warn("failed to mirror activity", zap.String("activity_id", event.ID), zap.Error(err))
		}
	})
	if err != nil {
		s.logger.Warn("activity mirror dropped", zap.String("activity_id", event.ID), zap.Error(err))
	}
}

// ListRecent returns up to limit events, newest first, with their order and
// allocation resolved where they still exist.
func (s *Service) ListRecent(ctx context.Context, limit int) ([]models.ActivityEntry, error) {
	limit = ClampLimit(limit)

	events, err := s.activities.ListRecentActivities(ctx, limit)
	if err != nil {
		return nil, apperrors.Unavailable("list activities", err)
	}

	orderIDs := make([]string, 0, len(events))
	scheduleIDs := make([]string, 0, len(events))
	for _, e := range events {
		if e.OrderID != "" {
			orderIDs = append(orderIDs, e.OrderID)
		}
		if e.ScheduleID != "" {
			scheduleIDs = append(scheduleIDs, e.ScheduleID)
		}
	}

	orders, err := s.orders.FindOrders(ctx, dedupe(orderIDs))
	if err != nil {
		return nil, apperrors.Unavailable("resolve activity orders", err)
	}
	allocations, err := s.allocations.FindAllocations(ctx, dedupe(scheduleIDs))
	if err != nil {
		return nil, apperrors.Unavailable("resolve activity schedules", err)
	}

	out := make([]models.ActivityEntry, 0, len(events))
	for _, e := range events {
		entry := models.ActivityEntry{Event: e}
		if o, ok := orders[e.OrderID]; ok {
			entry.Order = &o
		}
		if a, ok := allocations[e.ScheduleID]; ok {
			entry.Allocation = &a
		}
		out = append(out, entry)
	}
	return out, nil
}

// DeleteByOrder removes the journal entries of a deleted order.
func (s *Service) DeleteByOrder(ctx context.Context, orderID string) (int64, error) {
	n, err := s.activities.DeleteActivitiesByOrder(ctx, orderID)
	if err != nil {
		return 0, apperrors.Unavailable("delete order activities", err)
	}
	return n, nil
}

// ClampLimit applies the default and maximum page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
