package billing

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"plantcare-billing/internal/app/http/middleware"
	"plantcare-billing/internal/domain/billing"
)

type portalSessionRequest struct {
	ReturnURL string `json:"returnUrl" binding:"required,url"`
}

var portalSessionCodes = billing.StatusCodes{
	Validation:   http.StatusBadRequest,
	NotFound:     http.StatusNotFound,
	Unconfigured: http.StatusBadRequest,
	Provider:     http.StatusBadRequest,
	Persistence:  http.StatusBadRequest,
	Other:        http.StatusBadRequest,
}

// portalURL issues a provider-hosted billing session for the caller's
// customer. It performs no local writes.
func (h *Handler) portalURL(ctx context.Context, userID, returnURL string) (string, error) {
	sub, err := h.mirror.LatestForUser(ctx, userID)
	if errors.Is(err, billing.ErrNoSubscription) {
		return "", &billing.NotFoundError{Msg: "No subscription found"}
	}
	if err != nil {
		return "", fmt.Errorf("load subscription: %w", err)
	}
	return h.provider.CreatePortalSession(ctx, sub.StripeCustomerID, returnURL)
}

func (h *Handler) CreateCustomerPortalSession(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	var body portalSessionRequest
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "create-customer-portal-session", portalSessionCodes, err)
		return
	}

	url, err := h.portalURL(c.Request.Context(), userID, body.ReturnURL)
	if err != nil {
		h.fail(c, "create-customer-portal-session", portalSessionCodes, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "url": url})
}

// GetSubscription returns the caller's most recent mirrored subscription.
func (h *Handler) GetSubscription(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not identified"})
		return
	}

	sub, err := h.mirror.LatestForUser(c.Request.Context(), userID)
	if errors.Is(err, billing.ErrNoSubscription) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No subscription found"})
		return
	}
	if err != nil {
		h.fail(c, "get-subscription", billing.DefaultStatusCodes, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}
