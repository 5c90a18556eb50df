// Package repository declares the storage contracts of the dispatcher.
// Implementations live in the mongodb and memory subpackages.
package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/dispatch/internal/domain/models"
)

var (
	// ErrNotFound is returned when the addressed document does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrCeilingExceeded is returned by IncrementShipped when the increment
	// would push shipped tons above the required target.
	ErrCeilingExceeded = errors.New("shipped tons would exceed required tons")
	// ErrBelowShipped is returned by UpdateAllocation when the new required
	// target is lower than what has already been shipped.
	ErrBelowShipped = errors.New("required tons below shipped tons")
)

// OrderRepository persists orders.
type OrderRepository interface {
	InsertOrder(ctx context.Context, order models.Order) (models.Order, error)
	GetOrder(ctx context.Context, id string) (models.Order, error)
	// ListOrders returns all orders, newest first.
	ListOrders(ctx context.Context) ([]models.Order, error)
	// FindOrders resolves the given ids; missing ids are absent from the map.
	FindOrders(ctx context.Context, ids []string) (map[string]models.Order, error)
	UpdateOrder(ctx context.Context, id string, patch models.OrderPatch, now time.Time) (models.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// AllocationFilter narrows ListAllocations. Zero fields do not filter.
type AllocationFilter struct {
	OrderID string
	Date    models.Date
	From    models.Date
	To      models.Date
}

// AllocationRepository persists schedule allocations.
type AllocationRepository interface {
	InsertAllocation(ctx context.Context, allocation models.Allocation) (models.Allocation, error)
	GetAllocation(ctx context.Context, id string) (models.Allocation, error)
	// ListAllocations returns matches ordered by loading date, then creation.
	ListAllocations(ctx context.Context, filter AllocationFilter) ([]models.Allocation, error)
	FindAllocations(ctx context.Context, ids []string) (map[string]models.Allocation, error)
	// UpdateAllocation applies patch atomically. When patch sets RequiredTons
	// the write only happens if shipped tons do not exceed it; otherwise the
	// current document is returned with ErrBelowShipped.
	UpdateAllocation(ctx context.Context, id string, patch models.AllocationPatch, now time.Time) (models.Allocation, error)
	// IncrementShipped adds tons to shipped tons and records the actor as one
	// conditional write. If the new total would exceed required tons nothing
	// is written and the current document is returned with
	// ErrCeilingExceeded.
	IncrementShipped(ctx context.Context, id string, tons float64, logistician string, now time.Time) (models.Allocation, error)
	// UpdateAndIncrement applies patch and adds tons in one conditional write
	// checked against the patched target. On ErrBelowShipped or
	// ErrCeilingExceeded nothing is written and the current document with
	// patch applied is returned.
	UpdateAndIncrement(ctx context.Context, id string, patch models.AllocationPatch, tons float64, logistician string, now time.Time) (models.Allocation, error)
	DeleteAllocation(ctx context.Context, id string) error
	DeleteAllocationsByOrder(ctx context.Context, orderID string) (int64, error)
	// CountAllocationsByOrder reports how many allocations reference orderID.
	CountAllocationsByOrder(ctx context.Context, orderID string) (int64, error)
}

// ActivityRepository persists the append-only journal.
type ActivityRepository interface {
	AppendActivity(ctx context.Context, event models.ActivityEvent) (models.ActivityEvent, error)
	// ListRecentActivities returns at most limit events, newest first.
	ListRecentActivities(ctx context.Context, limit int) ([]models.ActivityEvent, error)
	DeleteActivitiesByOrder(ctx context.Context, orderID string) (int64, error)
}

// Store bundles the three repositories.
type Store interface {
	OrderRepository
	AllocationRepository
	ActivityRepository
	Close(ctx context.Context) error
}

// NewID returns a fresh document id in ObjectID hex form.
func NewID() string {
	return primitive.NewObjectID().Hex()
}
