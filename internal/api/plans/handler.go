package plans

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"plantcare-billing/internal/domain/plans"
)

type Catalog interface {
	List(ctx context.Context) ([]plans.Plan, error)
}

type Handler struct {
	catalog Catalog
	log     logrus.FieldLogger
}

func New(catalog Catalog, log logrus.FieldLogger) *Handler {
	return &Handler{catalog: catalog, log: log.WithField("source", "plans")}
}

// ListPlans returns the catalog, cheapest first.
func (h *Handler) ListPlans(c *gin.Context) {
	plansList, err := h.catalog.List(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("loading plans failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load plans"})
		return
	}
	if plansList == nil {
		plansList = []plans.Plan{}
	}
	c.JSON(http.StatusOK, plansList)
}
