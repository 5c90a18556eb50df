package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/dispatch/internal/domain/models"
)

// ActivityFeed lists recent journal entries.
type ActivityFeed interface {
	ListRecent(ctx context.Context, limit int) ([]models.ActivityEntry, error)
}

// ActivityHandler serves /activities.
type ActivityHandler struct {
	feed   ActivityFeed
	logger *zap.Logger
}

// NewActivityHandler constructs the activity handler.
func NewActivityHandler(feed ActivityFeed, logger *zap.Logger) *ActivityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityHandler{feed: feed, logger: logger}
}

// List returns the newest entries; ?limit= is clamped by the journal.
func (h *ActivityHandler) List(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}

	entries, err := h.feed.ListRecent(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, newActivityResponses(entries))
}
