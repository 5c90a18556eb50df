// Package orders manages cargo orders placed on the map and the cascade
// that follows their removal.
package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/auth"
	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/repository"
	"github.com/mamadbah2/dispatch/pkg/apperrors"
)

// Journal records order events and purges them on delete.
type Journal interface {
	Record(ctx context.Context, event models.ActivityEvent, summary string) (models.ActivityEvent, error)
	DeleteByOrder(ctx context.Context, orderID string) (int64, error)
}

// Service owns the order lifecycle.
type Service struct {
	orders      repository.OrderRepository
	allocations repository.AllocationRepository
	journal     Journal
	logger      *zap.Logger
	now         func() time.Time
}

// NewService wires the order service.
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

// List returns every order, newest first.
func (s *Service) List(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.ListOrders(ctx)
	if err != nil {
		return nil, apperrors.Unavailable("list orders", err)
	}
	return orders, nil
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, id string) (models.Order, error) {
	order, err := s.orders.GetOrder(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Order{}, apperrors.NotFound("order %s not found", id)
	case err != nil:
		return models.Order{}, apperrors.Unavailable("load order", err)
	}
	return order, nil
}

// Create places a new order.
func (s *Service) Create(ctx context.Context, in models.Order) (models.Order, error) {
	if !auth.IsAdmin(ctx) {
		return models.Order{}, apperrors.Unauthorized("only an administrator can create orders")
	}

	in.ID = ""
	in.From = strings.TrimSpace(in.From)
	in.To = strings.TrimSpace(in.To)
	in.Cargo = strings.TrimSpace(in.Cargo)
	if in.From == "" || in.To == "" {
		return models.Order{}, apperrors.InvalidArgument("from and to are required")
	}
	if err := validate(in); err != nil {
		return models.Order{}, err
	}

	now := s.now().UTC()
	in.CreatedAt = now
	in.UpdatedAt = now

	order, err := s.orders.InsertOrder(ctx, in)
	if err != nil {
		return models.Order{}, apperrors.Unavailable("insert order", err)
	}
	s.logger.Info("order created", zap.String("order_id", order.ID), zap.String("route", order.Route()))

	s.record(ctx, models.ActivityEvent{
		Kind:    models.ActivityOrderCreated,
		Message: fmt.Sprintf("Order created: %s, %s", order.Route(), order.Cargo),
		OrderID: order.ID,
	}, orderSummary("New order", order))

	return order, nil
}

// Update edits an order. Geometry is frozen once any allocation references
// the order.
func (s *Service) Update(ctx context.Context, id string, patch models.OrderPatch) (models.Order, error) {
	if !auth.IsAdmin(ctx) {
		return models.Order{}, apperrors.Unauthorized("only an administrator can edit orders")
	}
	if patch.IsEmpty() {
		return models.Order{}, apperrors.InvalidArgument("no order fields to update")
	}
	for _, field := range []**string{&patch.From, &patch.To, &patch.Cargo} {
		if *field != nil {
			v := strings.TrimSpace(**field)
			*field = &v
		}
	}
	if (patch.From != nil && *patch.From == "") || (patch.To != nil && *patch.To == "") {
		return models.Order{}, apperrors.InvalidArgument("from and to cannot be empty")
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Order{}, err
	}
	if err := validate(patch.Apply(current)); err != nil {
		return models.Order{}, err
	}

	if patch.ChangesGeometry(current) {
		n, err := s.allocations.CountAllocationsByOrder(ctx, id)
		if err != nil {
			return models.Order{}, apperrors.Unavailable("count order schedules", err)
		}
		if n > 0 {
			return models.Order{}, apperrors.InvalidArgument(
				"order %s has %d schedule(s); coordinates and distance can no longer change", id, n)
		}
	}

	order, err := s.orders.UpdateOrder(ctx, id, patch, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.Order{}, apperrors.NotFound("order %s not found", id)
	case err != nil:
		return models.Order{}, apperrors.Unavailable("update order", err)
	}
	s.logger.Info("order updated", zap.String("order_id", id))

	s.record(ctx, models.ActivityEvent{
		Kind:    models.ActivityOrderUpdated,
		Message: fmt.Sprintf("Order updated: %s, %s", order.Route(), order.Cargo),
		OrderID: order.ID,
	}, orderSummary("Order updated", order))

	return order, nil
}

// Delete removes the order, then its allocations, then its journal entries.
// Readers drop allocations of a missing order, so a failure after the first
// step leaves nothing visible.
func (s *Service) Delete(ctx context.Context, id string) error {
	if !auth.IsAdmin(ctx) {
		return apperrors.Unauthorized("only an administrator can delete orders")
	}

	err := s.orders.DeleteOrder(ctx, id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NotFound("order %s not found", id)
	case err != nil:
		return apperrors.Unavailable("delete order", err)
	}

	allocations, err := s.allocations.DeleteAllocationsByOrder(ctx, id)
	if err != nil {
		return apperrors.Unavailable("delete order schedules", err)
	}

	var activities int64
	if s.journal != nil {
		if activities, err = s.journal.DeleteByOrder(ctx, id); err != nil {
			return err
		}
	}

	s.logger.Info("order deleted",
		zap.String("order_id", id),
		zap.Int64("schedules", allocations),
		zap.Int64("activities", activities))
	return nil
}

// Progress totals the allocations of one order.
func (s *Service) Progress(ctx context.Context, id string) (models.OrderProgress, error) {
	order, err := s.Get(ctx, id)
	if err != nil {
		return models.OrderProgress{}, err
	}

	allocations, err := s.allocations.ListAllocations(ctx, repository.AllocationFilter{OrderID: id})
	if err != nil {
		return models.OrderProgress{}, apperrors.Unavailable("list order schedules", err)
	}

	p := models.OrderProgress{Order: order, Allocations: len(allocations)}
	for _, a := range allocations {
		p.RequiredTons += a.RequiredTons
		p.ShippedTons += a.ShippedTons
		p.RemainingTons += a.RemainingTons()
	}
	p.RequiredTons = models.RoundTons(p.RequiredTons)
	p.ShippedTons = models.RoundTons(p.ShippedTons)
	p.RemainingTons = models.RoundTons(p.RemainingTons)
	return p, nil
}

func (s *Service) record(ctx context.Context, event models.ActivityEvent, summary string) {
	if s.journal == nil {
		return
	}
	if _, err := s.journal.Record(ctx, event, summary); err != nil {
		s.logger.Warn("activity not journaled", zap.String("kind", string(event.Kind)), zap.Error(err))
	}
}

func validate(o models.Order) error {
	switch {
	case !inRange(o.Lat, 90) || !inRange(o.ToLat, 90):
		return apperrors.InvalidArgument("latitude must be between -90 and 90")
	case !inRange(o.Lon, 180) || !inRange(o.ToLon, 180):
		return apperrors.InvalidArgument("longitude must be between -180 and 180")
	case !nonNegative(o.PricePerTon):
		return apperrors.InvalidArgument("pricePerTon must be a non-negative number")
	case !nonNegative(o.DistanceKm):
		return apperrors.InvalidArgument("distanceKm must be a non-negative number")
	}
	return nil
}

func inRange(v, limit float64) bool {
	return !math.IsNaN(v) && v >= -limit && v <= limit
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}

func orderSummary(title string, o models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nRoute: %s", title, o.Route())
	if o.Cargo != "" {
		fmt.Fprintf(&b, "\nCargo: %s", o.Cargo)
	}
	if o.PricePerTon > 0 {
		fmt.Fprintf(&b, "\nPrice: %g per t", o.PricePerTon)
	}
	if o.DistanceKm > 0 {
		fmt.Fprintf(&b, "\nDistance: %g km", o.DistanceKm)
	}
	return b.String()
}
