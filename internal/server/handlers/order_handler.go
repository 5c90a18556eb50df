package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/domain/models"
)

// OrderService is the order surface used by the handler.
type OrderService interface {
	List(ctx context.Context) ([]models.Order, error)
	Get(ctx context.Context, id string) (models.Order, error)
	Create(ctx context.Context, in models.Order) (models.Order, error)
	Update(ctx context.Context, id string, patch models.OrderPatch) (models.Order, error)
	Delete(ctx context.Context, id string) error
	Progress(ctx context.Context, id string) (models.OrderProgress, error)
}

// OrderHandler serves /orders.
type OrderHandler struct {
	svc    OrderService
	logger *zap.Logger
}

// NewOrderHandler constructs the order handler.
func NewOrderHandler(svc OrderService, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderHandler{svc: svc, logger: logger}
}

type orderRequest struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Cargo       string  `json:"cargo"`
	PricePerTon float64 `json:"pricePerTon"`
	DistanceKm  float64 `json:"distanceKm"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ToLat       float64 `json:"toLat"`
	ToLon       float64 `json:"toLon"`
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *OrderHandler) Get(c *gin.Context) {
	order, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Create(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	order, err := h.svc.Create(c.Request.Context(), models.Order{
		From:        req.From,
		To:          req.To,
		Cargo:       req.Cargo,
		PricePerTon: req.PricePerTon,
		DistanceKm:  req.DistanceKm,
		Lat:         req.Lat,
		Lon:         req.Lon,
		ToLat:       req.ToLat,
		ToLon:       req.ToLon,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) Update(c *gin.Context) {
	var patch models.OrderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	order, err := h.svc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Progress returns the tonnage totals of one order.
func (h *OrderHandler) Progress(c *gin.Context) {
	progress, err := h.svc.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}
