package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/auth"
	"github.com/mamadbah2/dispatch/internal/domain/models"
	"github.com/mamadbah2/dispatch/internal/service/schedule"
	"github.com/mamadbah2/dispatch/pkg/apperrors"
)

// ScheduleService is the reconciliation surface used by the handler.
type ScheduleService interface {
	CreateAllocation(ctx context.Context, in schedule.CreateInput) (models.ScheduleEntry, error)
	UpdateAllocationFields(ctx context.Context, id string, patch models.AllocationPatch) (models.ScheduleEntry, error)
	RecordShipment(ctx context.Context, id string, tons float64, logistician string) (models.ScheduleEntry, error)
	UpdateAndRecordShipment(ctx context.Context, id string, patch models.AllocationPatch, tons float64, logistician string) (models.ScheduleEntry, error)
	DeleteAllocation(ctx context.Context, id string) error
	ListAllocations(ctx context.Context) ([]models.ScheduleEntry, error)
	AllocationsForDate(ctx context.Context, date models.Date) ([]models.ScheduleEntry, error)
	AllocationsForOrder(ctx context.Context, orderID string) ([]models.ScheduleEntry, error)
}

// Calendar groups schedules by date.
type Calendar interface {
	Calendar(ctx context.Context, from, to models.Date) ([]models.DaySchedule, error)
}

// ScheduleHandler serves /schedule.
type ScheduleHandler struct {
	svc      ScheduleService
	calendar Calendar
	loc      *time.Location
	logger   *zap.Logger
}

// NewScheduleHandler constructs the schedule handler. loc resolves
// timestamp-shaped dates to a calendar day.
func NewScheduleHandler(svc ScheduleService, calendar Calendar, loc *time.Location, logger *zap.Logger) *ScheduleHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleHandler{svc: svc, calendar: calendar, loc: loc, logger: logger}
}

// List returns every live schedule, or only those of ?orderId=.
func (h *ScheduleHandler) List(c *gin.Context) {
	var (
		entries []models.ScheduleEntry
		err     error
	)
	if orderID := c.Query("orderId"); orderID != "" {
		entries, err = h.svc.AllocationsForOrder(c.Request.Context(), orderID)
	} else {
		entries, err = h.svc.ListAllocations(c.Request.Context())
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newScheduleResponses(entries))
}

// ForDate returns the schedules of one calendar date.
func (h *ScheduleHandler) ForDate(c *gin.Context) {
	date, err := h.parseDate(c.Param("date"), "date")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entries, err := h.svc.AllocationsForDate(c.Request.Context(), date)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newScheduleResponses(entries))
}

// Calendar returns schedules grouped by date between ?from= and ?to=.
func (h *ScheduleHandler) Calendar(c *gin.Context) {
	var from, to models.Date
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = h.parseDate(v, "from"); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = h.parseDate(v, "to"); err != nil {
			respondError(c, h.logger, err)
			return
		}
	}

	days, err := h.calendar.Calendar(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newDayResponses(days))
}

type createScheduleRequest struct {
	OrderID      string   `json:"orderId"`
	LoadingDate  string   `json:"loadingDate"`
	RequiredTons float64  `json:"requiredTons"`
	Comment      string   `json:"comment"`
	ClientPrice  *float64 `json:"clientPrice"`
	OurPrice     *float64 `json:"ourPrice"`
}

// Create plans a new loading. Admin only.
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	date, err := h.parseDate(req.LoadingDate, "loadingDate")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	entry, err := h.svc.CreateAllocation(c.Request.Context(), schedule.CreateInput{
		OrderID:      req.OrderID,
		LoadingDate:  date,
		RequiredTons: req.RequiredTons,
		Comment:      req.Comment,
		ClientPrice:  req.ClientPrice,
		OurPrice:     req.OurPrice,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, newScheduleResponse(entry))
}

// updateScheduleRequest mixes privileged edits with a loader's shipment.
// ShippedTons is the increment being reported, not a new total.
type updateScheduleRequest struct {
	LoadingDate  *string  `json:"loadingDate"`
	RequiredTons *float64 `json:"requiredTons"`
	Comment      *string  `json:"comment"`
	ClientPrice  *float64 `json:"clientPrice"`
	OurPrice     *float64 `json:"ourPrice"`
	ShippedTons  *float64 `json:"shippedTons"`
	Logistician  *string  `json:"logistician"`
}

// Update applies privileged edits (admin only), a shipment, or both in one
// write. A body holding only shippedTons and logistician needs no token.
// Alongside privileged fields a zero shippedTons means "no shipment", so
// edit forms may resend the whole object; on its own it is passed to the
// service and rejected as a non-positive shipment.
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	patch := models.AllocationPatch{
		RequiredTons: req.RequiredTons,
		Comment:      req.Comment,
		ClientPrice:  req.ClientPrice,
		OurPrice:     req.OurPrice,
	}
	if req.LoadingDate != nil {
		date, err := h.parseDate(*req.LoadingDate, "loadingDate")
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		patch.LoadingDate = &date
	}

	edit := !patch.IsEmpty()
	shipment := req.ShippedTons != nil && (!edit || *req.ShippedTons != 0)
	if !edit && !shipment {
		badRequest(c, "nothing to update")
		return
	}
	if edit && !auth.IsAdmin(c.Request.Context()) {
		respondError(c, h.logger, apperrors.Unauthorized("only an administrator can edit schedules"))
		return
	}
	var logistician string
	if req.Logistician != nil {
		logistician = strings.TrimSpace(*req.Logistician)
	}

	ctx := c.Request.Context()
	id := c.Param("id")

	var (
		entry models.ScheduleEntry
		err   error
	)
	switch {
	case edit && shipment:
		entry, err = h.svc.UpdateAndRecordShipment(ctx, id, patch, *req.ShippedTons, logistician)
	case edit:
		entry, err = h.svc.UpdateAllocationFields(ctx, id, patch)
	default:
		entry, err = h.svc.RecordShipment(ctx, id, *req.ShippedTons, logistician)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, newScheduleResponse(entry))
}

// Delete removes a schedule. Admin only.
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.svc.DeleteAllocation(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ScheduleHandler) parseDate(value, field string) (models.Date, error) {
	date, err := models.ParseDate(strings.TrimSpace(value), h.loc)
	if err != nil {
		return models.Date{}, apperrors.InvalidArgument("%s must be a date (YYYY-MM-DD)", field)
	}
	return date, nil
}
