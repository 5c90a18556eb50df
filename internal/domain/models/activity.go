package models

import "time"

// ActivityKind enumerates journal event types.
type ActivityKind string

const (
	ActivityOrderCreated        ActivityKind = "order-created"
	ActivityOrderUpdated        ActivityKind = "order-updated"
	ActivityAllocationCreated   ActivityKind = "allocation-created"
	ActivityTonsShipped         ActivityKind = "tons-shipped"
	ActivityAllocationCompleted ActivityKind = "allocation-completed"
)

// ActivityEvent is an append-only journal entry.
type ActivityEvent struct {
	ID         string       `bson:"_id" json:"_id"`
	Kind       ActivityKind `bson:"type" json:"type"`
	Message    string       `bson:"message" json:"message"`
	OrderID    string       `bson:"orderId,omitempty" json:"orderId,omitempty"`
	ScheduleID string       `bson:"scheduleId,omitempty" json:"scheduleId,omitempty"`
	Actor      string       `bson:"actor,omitempty" json:"actor,omitempty"`
	Tons       *float64     `bson:"tons,omitempty" json:"tons,omitempty"`
	Date       *Date        `bson:"date,omitempty" json:"date,omitempty"`
	CreatedAt  time.Time    `bson:"createdAt" json:"createdAt"`
}
