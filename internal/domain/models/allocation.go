package models

import (
	"math"
	"time"
)

// TonsEpsilon absorbs floating point noise when comparing tonnage.
const TonsEpsilon = 1e-9

// Allocation binds one order to one loading date with a tonnage target and
// the tonnage shipped so far. Stored in the "schedules" collection.
type Allocation struct {
	ID           string    `bson:"_id" json:"_id"`
	OrderID      string    `bson:"orderId" json:"orderId"`
	LoadingDate  Date      `bson:"loadingDate" json:"loadingDate"`
	RequiredTons float64   `bson:"requiredTons" json:"requiredTons"`
	ShippedTons  float64   `bson:"shippedTons" json:"shippedTons"`
	Comment      string    `bson:"comment,omitempty" json:"comment,omitempty"`
	Logistician  string    `bson:"logistician,omitempty" json:"logistician,omitempty"`
	ClientPrice  *float64  `bson:"clientPrice,omitempty" json:"clientPrice,omitempty"`
	OurPrice     *float64  `bson:"ourPrice,omitempty" json:"ourPrice,omitempty"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Completed is derived: shipped has reached required.
func (a Allocation) Completed() bool {
	return a.ShippedTons >= a.RequiredTons-TonsEpsilon
}

// RemainingTons is the headroom left before the target is reached.
func (a Allocation) RemainingTons() float64 {
	return math.Max(0, RoundTons(a.RequiredTons-a.ShippedTons))
}

// AllocationPatch carries privileged field edits; nil means unchanged.
// ShippedTons is deliberately absent.
type AllocationPatch struct {
	LoadingDate  *Date
	RequiredTons *float64
	Comment      *string
	ClientPrice  *float64
	OurPrice     *float64
}

// IsEmpty reports whether the patch changes nothing.
func (p AllocationPatch) IsEmpty() bool {
	return p.LoadingDate == nil && p.RequiredTons == nil && p.Comment == nil &&
		p.ClientPrice == nil && p.OurPrice == nil
}

// Apply returns a with the patch applied.
func (p AllocationPatch) Apply(a Allocation) Allocation {
	if p.LoadingDate != nil {
		a.LoadingDate = *p.LoadingDate
	}
	if p.RequiredTons != nil {
		a.RequiredTons = *p.RequiredTons
	}
	if p.Comment != nil {
		a.Comment = *p.Comment
	}
	if p.ClientPrice != nil {
		v := *p.ClientPrice
		a.ClientPrice = &v
	}
	if p.OurPrice != nil {
		v := *p.OurPrice
		a.OurPrice = &v
	}
	return a
}

// RoundTons trims float noise to a kilogram-scale precision for display and
// remaining-balance arithmetic.
func RoundTons(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
