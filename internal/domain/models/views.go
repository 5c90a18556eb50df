package models

// ScheduleEntry is an allocation joined with its parent order. Entries are
// only built for orders that still exist.
type ScheduleEntry struct {
	Allocation Allocation
	Order      Order
}

// DaySchedule groups the entries of one calendar date.
type DaySchedule struct {
	Date          Date            `json:"date"`
	Entries       []ScheduleEntry `json:"-"`
	RequiredTons  float64         `json:"requiredTons"`
	ShippedTons   float64         `json:"shippedTons"`
	RemainingTons float64         `json:"remainingTons"`
	Completed     int             `json:"completed"`
}

// OrderProgress totals all allocations of one order.
type OrderProgress struct {
	Order         Order   `json:"order"`
	Allocations   int     `json:"allocations"`
	RequiredTons  float64 `json:"requiredTons"`
	ShippedTons   float64 `json:"shippedTons"`
	RemainingTons float64 `json:"remainingTons"`
}

// ActivityEntry is a journal event with whatever it references still
// resolvable. Order or Allocation is nil when the reference is gone.
type ActivityEntry struct {
	Event      ActivityEvent
	Order      *Order
	Allocation *Allocation
}
