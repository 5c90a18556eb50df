package handlers

import (
	"time"

	"github.com/mamadbah2/dispatch/internal/domain/models"
)

// scheduleResponse is an allocation with orderId populated.
type scheduleResponse struct {
	ID           string       `json:"_id"`
	Order        models.Order `json:"orderId"`
	LoadingDate  models.Date  `json:"loadingDate"`
	RequiredTons float64      `json:"requiredTons"`
	ShippedTons  float64      `json:"shippedTons"`
	Completed    bool         `json:"completed"`
	Comment      string       `json:"comment"`
	Logistician  string       `json:"logistician"`
	ClientPrice  *float64     `json:"clientPrice"`
	OurPrice     *float64     `json:"ourPrice"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func newScheduleResponse(e models.ScheduleEntry) scheduleResponse {
	a := e.Allocation
	return scheduleResponse{
		ID:           a.ID,
		Order:        e.Order,
		LoadingDate:  a.LoadingDate,
		RequiredTons: a.RequiredTons,
		ShippedTons:  a.ShippedTons,
		Completed:    a.Completed(),
		Comment:      a.Comment,
		Logistician:  a.Logistician,
		ClientPrice:  a.ClientPrice,
		OurPrice:     a.OurPrice,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func newScheduleResponses(entries []models.ScheduleEntry) []scheduleResponse {
	out := make([]scheduleResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, newScheduleResponse(e))
	}
	return out
}

// dayResponse is one calendar date with its schedules.
type dayResponse struct {
	models.DaySchedule
	Schedules []scheduleResponse `json:"schedules"`
}

func newDayResponses(days []models.DaySchedule) []dayResponse {
	out := make([]dayResponse, 0, len(days))
	for _, d := range days {
		out = append(out, dayResponse{DaySchedule: d, Schedules: newScheduleResponses(d.Entries)})
	}
	return out
}

// activityResponse is a journal event with orderId and scheduleId populated;
// either is null once the referenced document is gone.
type activityResponse struct {
	ID        string              `json:"_id"`
	Kind      models.ActivityKind `json:"type"`
	Message   string              `json:"message"`
	Order     *models.Order       `json:"orderId"`
	Schedule  *models.Allocation  `json:"scheduleId"`
	Actor     string              `json:"actor,omitempty"`
	Tons      *float64            `json:"tons,omitempty"`
	Date      *models.Date        `json:"date,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
}

func newActivityResponses(entries []models.ActivityEntry) []activityResponse {
	out := make([]activityResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, activityResponse{
			ID:        e.Event.ID,
			Kind:      e.Event.Kind,
			Message:   e.Event.Message,
			Order:     e.Order,
			Schedule:  e.Allocation,
			Actor:     e.Event.Actor,
			Tons:      e.Event.Tons,
			Date:      e.Event.Date,
			CreatedAt: e.Event.CreatedAt,
		})
	}
	return out
}
