// Package schedule reconciles loading allocations: it is the only writer of
// allocations and the only source of tonnage events in the journal.
package schedule

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/auth"
	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository"
	"github.com/mamadbah2/dispatch/pkg/apperrors"
)

// Journal records activity events and forwards their summaries.
type Journal interface {
	Record(ctx context.Context, event models.ActivityEvent, summary string) (models.ActivityEvent, error)
}

// CreateInput describes a new allocation.
type CreateInput struct {
	OrderID      string
	LoadingDate  models.Date
	RequiredTons float64
	Comment      string
	ClientPrice  *float64
	OurPrice     *float64
}

// Service implements the reconciliation protocol.
type Service struct {
	orders      repository.OrderRepository
	allocations repository.AllocationRepository
	journal     Journal
	logger      *zap.Logger
	now         func() time.Time
}

// NewService wires the reconciliation service.
func NewService(orders repository.OrderRepository, allocations repository.AllocationRepository, journal Journal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orders:      orders,
		allocations: allocations,
		journal:     journal,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateAllocation assigns tonnage of an order to a loading date.
func (s *Service) CreateAllocation(ctx context.Context, in CreateInput) (models.ScheduleEntry, error) {
	if !auth.IsAdmin(ctx) {
		return models.ScheduleEntry{}, apperrors.Unauthorized("only an administrator can create schedules")
	}
	if in.LoadingDate.IsZero() {
		return models.ScheduleEntry{}, apperrors.InvalidArgument("loadingDate is required")
	}
	if !positive(in.RequiredTons) {
		return models.ScheduleEntry{}, apperrors.InvalidArgument("requiredTons must be greater than 0")
	}
	if err := validatePrices(in.ClientPrice, in.OurPrice); err != nil {
		return models.ScheduleEntry{}, err
	}

	order, err := s.loadOrder(ctx, in.OrderID)
	if err != nil {
		return models.ScheduleEntry{}, err
	}

	now := s.now().UTC()
	allocation, err := s.allocations.InsertAllocation(ctx, models.Allocation{
		OrderID:      order.ID,
		LoadingDate:  in.LoadingDate,
		RequiredTons: in.RequiredTons,
		ShippedTons:  0,
		Comment:      strings.TrimSpace(in.Comment),
		ClientPrice:  in.ClientPrice,
		OurPrice:     in.OurPrice,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return models.ScheduleEntry{}, apperrors.Unavailable("insert schedule", err)
	}

	s.logger.Info("schedule created",
		zap.String("schedule_id", allocation.ID),
		zap.String("order_id", order.ID),
		zap.String("loading_date", allocation.LoadingDate.String()),
		zap.Float64("required_tons", allocation.RequiredTons))

	required := allocation.RequiredTons
	date := allocation.LoadingDate
	s.record(ctx, models.ActivityEvent{
		Kind:       models.ActivityAllocationCreated,
		Message:    createdMessage(order, allocation),
		OrderID:    order.ID,
		ScheduleID: allocation.ID,
		Tons:       &required,
		Date:       &date,
	}, createdSummary(order, allocation))

	return models.ScheduleEntry{Allocation: allocation, Order: order}, nil
}

// UpdateAllocationFields edits the date, target, comment or prices. Shipped
// tons are never touched here, and the target cannot drop below them.
func (s *Service) UpdateAllocationFields(ctx context.Context, id string, patch models.AllocationPatch) (models.ScheduleEntry, error) {
	if !auth.IsAdmin(ctx) {
		return models.ScheduleEntry{}, apperrors.Unauthorized("only an administrator can edit schedules")
	}
	if err := validatePatch(patch); err != nil {
		return models.ScheduleEntry{}, err
	}

	current, err := s.loadAllocation(ctx, id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	order, err := s.loadParentOrder(ctx, current)
	if err != nil {
		return models.ScheduleEntry{}, err
	}

	updated, err := s.allocations.UpdateAllocation(ctx, id, patch, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrBelowShipped):
		return models.ScheduleEntry{}, apperrors.InvalidArgument(
			"requiredTons cannot be less than already shipped %s t", formatTons(updated.ShippedTons))
	case errors.Is(err, repository.ErrNotFound):
		return models.ScheduleEntry{}, apperrors.NotFound("schedule %s not found", id)
	case err != nil:
		return models.ScheduleEntry{}, apperrors.Unavailable("update schedule", err)
	}

	s.logger.Info("schedule updated", zap.String("schedule_id", id))
	return models.ScheduleEntry{Allocation: updated, Order: order}, nil
}

// RecordShipment adds tons shipped by a loader. The increment is applied by
// the store as one conditional write; an increment that would overshoot the
// target is rejected whole. Exactly one event is journaled per success.
func (s *Service) RecordShipment(ctx context.Context, id string, tons float64, logistician string) (models.ScheduleEntry, error) {
	logistician = strings.TrimSpace(logistician)
	if !positive(tons) {
		return models.ScheduleEntry{}, apperrors.InvalidArgument("shipped tons must be greater than 0")
	}
	if logistician == "" {
		return models.ScheduleEntry{}, apperrors.InvalidArgument("logistician name is required")
	}

	current, err := s.loadAllocation(ctx, id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	order, err := s.loadParentOrder(ctx, current)
	if err != nil {
		return models.ScheduleEntry{}, err
	}

	updated, err := s.allocations.IncrementShipped(ctx, id, tons, logistician, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrCeilingExceeded):
		return models.ScheduleEntry{}, overShipment(updated)
	case errors.Is(err, repository.ErrNotFound):
		return models.ScheduleEntry{}, apperrors.NotFound("schedule %s not found", id)
	case err != nil:
		return models.ScheduleEntry{}, apperrors.Unavailable("record shipment", err)
	}

	s.recordShipment(ctx, order, updated, logistician, tons)
	return models.ScheduleEntry{Allocation: updated, Order: order}, nil
}

// UpdateAndRecordShipment applies privileged edits and a shipment as one
// conditional write checked against the edited target. Either both land or
// neither does.
func (s *Service) UpdateAndRecordShipment(ctx context.Context, id string, patch models.AllocationPatch, tons float64, logistician string) (models.ScheduleEntry, error) {
	if !auth.IsAdmin(ctx) {
		return models.ScheduleEntry{}, apperrors.Unauthorized("only an administrator can edit schedules")
	}
	if err := validatePatch(patch); err != nil {
		return models.ScheduleEntry{}, err
	}
	logistician = strings.TrimSpace(logistician)
	if !positive(tons) {
		return models.ScheduleEntry{}, apperrors.InvalidArgument("shipped tons must be greater than 0")
	}
	if logistician == "" {
		return models.ScheduleEntry{}, apperrors.InvalidArgument("logistician name is required")
	}

	current, err := s.loadAllocation(ctx, id)
	if err != nil {
		return models.ScheduleEntry{}, err
	}
	order, err := s.loadParentOrder(ctx, current)
	if err != nil {
		return models.ScheduleEntry{}, err
	}

	updated, err := s.allocations.UpdateAndIncrement(ctx, id, patch, tons, logistician, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrBelowShipped):
		return models.ScheduleEntry{}, apperrors.InvalidArgument(
			"requiredTons cannot be less than already shipped %s t", formatTons(updated.ShippedTons))
	case errors.Is(err, repository.ErrCeilingExceeded):
		return models.ScheduleEntry{}, overShipment(updated)
	case errors.Is(err, repository.ErrNotFound):
		return models.ScheduleEntry{}, apperrors.NotFound("schedule %s not found", id)
	case err != nil:
		return models.ScheduleEntry{}, apperrors.Unavailable("update schedule", err)
	}

	s.logger.Info("schedule updated", zap.String("schedule_id", id))
	s.recordShipment(ctx, order, updated, logistician, tons)

	return models.ScheduleEntry{Allocation: updated, Order: order}, nil
}

// recordShipment logs and journals one accepted shipment: a completion
// event if it reached the target, a tons-shipped event otherwise.
func (s *Service) recordShipment(ctx context.Context, order models.Order, updated models.Allocation, logistician string, tons float64) {
	s.logger.Info("shipment recorded",
		zap.String("schedule_id", updated.ID),
		zap.String("logistician", logistician),
		zap.Float64("tons", tons),
		zap.Float64("shipped_tons", updated.ShippedTons),
		zap.Bool("completed", updated.Completed()))

	date := updated.LoadingDate
	delta := tons
	event := models.ActivityEvent{
		OrderID:    order.ID,
		ScheduleID: updated.ID,
		Actor:      logistician,
		Tons:       &delta,
		Date:       &date,
	}
	var summary string
	if updated.Completed() {
		event.Kind = models.ActivityAllocationCompleted
		event.Message = completedMessage(order, updated, logistician)
		summary = completedSummary(order, updated, logistician, tons)
	} else {
		event.Kind = models.ActivityTonsShipped
		event.Message = shippedMessage(order, updated, logistician, tons)
		summary = shippedSummary(order, updated, logistician, tons)
	}
	s.record(ctx, event, summary)
}

// DeleteAllocation removes an allocation. Deletion is not journaled.
func (s *Service) DeleteAllocation(ctx context.Context, id string) error {
	if !auth.IsAdmin(ctx) {
		return apperrors.Unauthorized("only an administrator can delete schedules")
	}

	err := s.allocations.DeleteAllocation(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("schedule %s not found", id)
	case err != nil:
		return apperrors.Unavailable("delete schedule", err)
	}

	s.logger.Info("schedule deleted", zap.String("schedule_id", id))
	return nil
}

// ListAllocations returns every live allocation with its order.
func (s *Service) ListAllocations(ctx context.Context) ([]models.ScheduleEntry, error) {
	return s.list(ctx, repository.AllocationFilter{})
}

// AllocationsForDate returns the live allocations of one calendar day.
func (s *Service) AllocationsForDate(ctx context.Context, date models.Date) ([]models.ScheduleEntry, error) {
	if date.IsZero() {
		return nil, apperrors.InvalidArgument("date is required")
	}
	return s.list(ctx, repository.AllocationFilter{Date: date})
}

// AllocationsInRange returns live allocations between from and to inclusive.
// Zero bounds are open.
func (s *Service) AllocationsInRange(ctx context.Context, from, to models.Date) ([]models.ScheduleEntry, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, apperrors.InvalidArgument("range end %s is before start %s", to, from)
	}
	return s.list(ctx, repository.AllocationFilter{From: from, To: to})
}

// AllocationsForOrder returns the allocations of an existing order.
func (s *Service) AllocationsForOrder(ctx context.Context, orderID string) ([]models.ScheduleEntry, error) {
	if _, err := s.loadOrder(ctx, orderID); err != nil {
		return nil, err
	}
	return s.list(ctx, repository.AllocationFilter{OrderID: orderID})
}

func (s *Service) list(ctx context.Context, filter repository.AllocationFilter) ([]models.ScheduleEntry, error) {
	allocations, err := s.allocations.ListAllocations(ctx, filter)
	if err != nil {
		return nil, apperrors.Unavailable("list schedules", err)
	}
	return s.populate(ctx, allocations)
}

// populate joins allocations with their orders and drops the ones whose
// order is gone.
func (s *Service) populate(ctx context.Context, allocations []models.Allocation) ([]models.ScheduleEntry, error) {
	ids := make([]string, 0, len(allocations))
	seen := make(map[string]struct{}, len(allocations))
	for _, a := range allocations {
		if _, ok := seen[a.OrderID]; !ok {
			seen[a.OrderID] = struct{}{}
			ids = append(ids, a.OrderID)
		}
	}

	orders, err := s.orders.FindOrders(ctx, ids)
	if err != nil {
		return nil, apperrors.Unavailable("resolve schedule orders", err)
	}

	out := make([]models.ScheduleEntry, 0, len(allocations))
	for _, a := range allocations {
		order, ok := orders[a.OrderID]
		if !ok {
			continue
		}
		out = append(out, models.ScheduleEntry{Allocation: a, Order: order})
	}
	return out, nil
}

func (s *Service) loadOrder(ctx context.Context, id string) (models.Order, error) {
	if id == "" {
		return models.Order{}, apperrors.InvalidArgument("orderId is required")
	}
	order, err := s.orders.GetOrder(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Order{}, apperrors.NotFound("order %s not found", id)
	case err != nil:
		return models.Order{}, apperrors.Unavailable("load order", err)
	}
	return order, nil
}

func (s *Service) loadAllocation(ctx context.Context, id string) (models.Allocation, error) {
	a, err := s.allocations.GetAllocation(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Allocation{}, apperrors.NotFound("schedule %s not found", id)
	case err != nil:
		return models.Allocation{}, apperrors.Unavailable("load schedule", err)
	}
	return a, nil
}

// loadParentOrder treats an allocation of a deleted order as absent.
func (s *Service) loadParentOrder(ctx context.Context, a models.Allocation) (models.Order, error) {
	order, err := s.orders.GetOrder(ctx, a.OrderID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Order{}, apperrors.NotFound("schedule %s not found", a.ID)
	case err != nil:
		return models.Order{}, apperrors.Unavailable("load order", err)
	}
	return order, nil
}

// record journals an event. The triggering write is already committed, so a
// journal failure is only logged.
func (s *Service) record(ctx context.Context, event models.ActivityEvent, summary string) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(ctx, event, summary); err != nil {
		s.logger.Warn("activity not journaled", zap.String("kind", string(event.Kind)), zap.Error(err))
	}
}

func overShipment(current models.Allocation) error {
	remaining := current.RemainingTons()
	if remaining <= 0 {
		return apperrors.InvalidArgument(
			"cannot ship more than required: schedule is already complete (%s of %s t shipped)",
			formatTons(current.ShippedTons), formatTons(current.RequiredTons))
	}
	return apperrors.InvalidArgument(
		"cannot ship more than required: at most %s t can still be shipped", formatTons(remaining))
}

func validatePatch(patch models.AllocationPatch) error {
	if patch.IsEmpty() {
		return apperrors.InvalidArgument("no schedule fields to update")
	}
	if patch.LoadingDate != nil && patch.LoadingDate.IsZero() {
		return apperrors.InvalidArgument("loadingDate must be a calendar date")
	}
	if patch.RequiredTons != nil && !positive(*patch.RequiredTons) {
		return apperrors.InvalidArgument("requiredTons must be greater than 0")
	}
	return validatePrices(patch.ClientPrice, patch.OurPrice)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func validatePrices(prices ...*float64) error {
	for _, p := range prices {
		if p != nil && (*p < 0 || math.IsNaN(*p) || math.IsInf(*p, 0)) {
			return apperrors.InvalidArgument("prices must be non-negative numbers")
		}
	}
	return nil
}
