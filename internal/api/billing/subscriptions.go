package billing

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"plantcare-billing/internal/domain/billing"
)

type createSubscriptionRequest struct {
	PlanID    string `json:"planId" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
	UserEmail string `json:"userEmail" binding:"required,email"`
}

type createSubscriptionResponse struct {
	ClientSecret   string `json:"clientSecret"`
	SubscriptionID string `json:"subscriptionId"`
}

var createSubscriptionCodes = billing.DefaultStatusCodes

// createSubscription starts a provider subscription awaiting its first
// payment. The mirror row is written later by the webhook consumer.
func (h *Handler) createSubscription(ctx context.Context, in createSubscriptionRequest) (*createSubscriptionResponse, error) {
	plan, err := h.lookupPlan(ctx, in.PlanID, true)
	if err != nil {
		return nil, err
	}

	customerID, err := h.resolveCustomer(ctx, in.UserID, in.UserEmail)
	if err != nil {
		return nil, err
	}

	ps, err := h.provider.CreateSubscription(ctx, customerID, plan.StripePriceID, in.UserID, plan.ID)
	if err != nil {
		return nil, err
	}
	if ps.ClientSecret == "" {
		return nil, &billing.ProviderError{Op: "create subscription", Msg: "Subscription has no payment to confirm"}
	}

	h.log.WithFields(logrus.Fields{
		"op":              "create-subscription",
		"user_id":         in.UserID,
		"subscription_id": ps.ID,
		"plan_id":         plan.ID,
	}).Info("subscription created, awaiting payment confirmation")

	return &createSubscriptionResponse{ClientSecret: ps.ClientSecret, SubscriptionID: ps.ID}, nil
}

func (h *Handler) CreateSubscription(c *gin.Context) {
	var body createSubscriptionRequest
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "create-subscription", createSubscriptionCodes, err)
		return
	}

	out, err := h.createSubscription(c.Request.Context(), body)
	if err != nil {
		h.fail(c, "create-subscription", createSubscriptionCodes, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type cancelSubscriptionRequest struct {
	SubscriptionID    string `json:"subscriptionId" binding:"required"`
	CancelAtPeriodEnd *bool  `json:"cancelAtPeriodEnd" binding:"required"`
}

type cancelledSubscription struct {
	ID                string `json:"id"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *int64 `json:"current_period_end"`
}

var cancelSubscriptionCodes = billing.StatusCodes{
	Validation:   http.StatusBadRequest,
	NotFound:     http.StatusBadRequest,
	Unconfigured: http.StatusBadRequest,
	Provider:     http.StatusInternalServerError,
	Persistence:  http.StatusInternalServerError,
	Other:        http.StatusInternalServerError,
}

// cancelSubscription asks the provider first and mirrors only what it
// confirmed. A failed mirror write is reported even though the provider
// side already took effect.
func (h *Handler) cancelSubscription(ctx context.Context, in cancelSubscriptionRequest) (*cancelledSubscription, error) {
	var (
		ps  *billing.ProviderSubscription
		err error
	)
	if *in.CancelAtPeriodEnd {
		ps, err = h.provider.SetCancelAtPeriodEnd(ctx, in.SubscriptionID, true)
	} else {
		ps, err = h.provider.CancelNow(ctx, in.SubscriptionID)
	}
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"op": "cancel-subscription", "subscription_id": ps.ID, "cancel_at_period_end": ps.CancelAtPeriodEnd}
	if err := h.mirror.MarkCancellation(ctx, ps); err != nil {
		h.log.WithFields(fields).WithError(err).Warn("provider cancellation applied but mirror update failed")
		return nil, &billing.PersistenceError{Op: "update subscription mirror", Err: err}
	}
	h.log.WithFields(fields).Info("subscription cancellation recorded")

	return &cancelledSubscription{
		ID:                ps.ID,
		CancelAtPeriodEnd: ps.CancelAtPeriodEnd,
		CurrentPeriodEnd:  unixOrNil(ps.CurrentPeriodEnd),
	}, nil
}

func (h *Handler) CancelSubscription(c *gin.Context) {
	var body cancelSubscriptionRequest
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "cancel-subscription", cancelSubscriptionCodes, err)
		return
	}

	out, err := h.cancelSubscription(c.Request.Context(), body)
	if err != nil {
		h.fail(c, "cancel-subscription", cancelSubscriptionCodes, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": out})
}

type updateSubscriptionRequest struct {
	SubscriptionID string                     `json:"subscriptionId" binding:"required"`
	Updates        map[string]json.RawMessage `json:"updates" binding:"required"`
}

type updatedSubscription struct {
	ID                 string         `json:"id"`
	Status             billing.Status `json:"status"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
	CurrentPeriodStart *int64         `json:"current_period_start"`
	CurrentPeriodEnd   *int64         `json:"current_period_end"`
}

var updateSubscriptionCodes = cancelSubscriptionCodes

// updateSubscription forwards the updates and mirrors the provider's
// response, never the request.
func (h *Handler) updateSubscription(ctx context.Context, in updateSubscriptionRequest) (*updatedSubscription, error) {
	u, err := billing.ParseUpdates(in.Updates)
	if err != nil {
		return nil, err
	}
	if u.PlanID != nil {
		plan, err := h.lookupPlan(ctx, *u.PlanID, true)
		if err != nil {
			return nil, err
		}
		u.PriceID = &plan.StripePriceID
		u.PlanID = nil
	}

	ps, err := h.provider.UpdateSubscription(ctx, in.SubscriptionID, u)
	if err != nil {
		return nil, err
	}

	fields := logrus.Fields{"op": "update-subscription", "subscription_id": ps.ID, "status": ps.Status}
	if err := h.mirror.ApplyProviderState(ctx, ps); err != nil {
		h.log.WithFields(fields).WithError(err).Warn("provider update applied but mirror update failed")
		return nil, &billing.PersistenceError{Op: "update subscription mirror", Err: err}
	}
	h.log.WithFields(fields).Info("subscription update recorded")

	return &updatedSubscription{
		ID:                 ps.ID,
		Status:             ps.Status,
		CancelAtPeriodEnd:  ps.CancelAtPeriodEnd,
		CurrentPeriodStart: unixOrNil(ps.CurrentPeriodStart),
		CurrentPeriodEnd:   unixOrNil(ps.CurrentPeriodEnd),
	}, nil
}

func (h *Handler) UpdateSubscription(c *gin.Context) {
	var body updateSubscriptionRequest
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "update-subscription", updateSubscriptionCodes, err)
		return
	}

	out, err := h.updateSubscription(c.Request.Context(), body)
	if err != nil {
		h.fail(c, "update-subscription", updateSubscriptionCodes, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "subscription": out})
}
