package notifications

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"plantcare-billing/internal/app/http/middleware"
	"plantcare-billing/internal/domain/garden"
)

type OverdueSource interface {
	OverdueSummary(ctx context.Context, userID string) ([]garden.GardenOverdue, error)
}

type Handler struct {
	source OverdueSource
	log    logrus.FieldLogger
}

func New(source OverdueSource, log logrus.FieldLogger) *Handler {
	return &Handler{source: source, log: log.WithField("source", "notifications")}
}

// GetOverdue returns the caller's per-garden overdue task summary.
func (h *Handler) GetOverdue(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	summary, err := h.source.OverdueSummary(c.Request.Context(), userID)
	if err != nil {
		h.log.WithField("user_id", userID).WithError(err).Error("overdue summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load overdue tasks"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
