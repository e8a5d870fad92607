package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"plantcare-billing/internal/domain/billing"
)

type paymentIntentRequest struct {
	PlanID    string `json:"planId" binding:"required"`
	UserID    string `json:"userId" binding:"required"`
	UserEmail string `json:"userEmail" binding:"required,email"`
}

type paymentSheet struct {
	PaymentIntent string `json:"paymentIntent,omitempty"`
	SetupIntent   string `json:"setupIntent,omitempty"`
	EphemeralKey  string `json:"ephemeralKey"`
	Customer      string `json:"customer"`
}

var paymentSheetCodes = billing.StatusCodes{
	Validation:   http.StatusBadRequest,
	NotFound:     http.StatusBadRequest,
	Unconfigured: http.StatusBadRequest,
	Provider:     http.StatusInternalServerError,
	Persistence:  http.StatusInternalServerError,
	Other:        http.StatusInternalServerError,
}

func (h *Handler) paymentIntent(ctx context.Context, in paymentIntentRequest) (*paymentSheet, error) {
	plan, err := h.lookupPlan(ctx, in.PlanID, false)
	if err != nil {
		return nil, err
	}
	if plan.PriceCents <= 0 {
		return nil, billing.Invalid("Plan %s has no price", plan.ID)
	}

	customerID, err := h.resolveCustomer(ctx, in.UserID, in.UserEmail)
	if err != nil {
		return nil, err
	}
	key, err := h.provider.CreateEphemeralKey(ctx, customerID)
	if err != nil {
		return nil, err
	}

	currency := plan.Currency
	if currency == "" {
		currency = h.currency
	}
	secret, err := h.provider.CreatePaymentIntent(ctx, customerID, plan.PriceCents, currency, map[string]string{
		"user_id": in.UserID,
		"plan_id": plan.ID,
	})
	if err != nil {
		return nil, err
	}

	return &paymentSheet{PaymentIntent: secret, EphemeralKey: key, Customer: customerID}, nil
}

func (h *Handler) CreatePaymentIntent(c *gin.Context) {
	var body paymentIntentRequest
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "create-payment-intent", paymentSheetCodes, err)
		return
	}

	out, err := h.paymentIntent(c.Request.Context(), body)
	if err != nil {
		h.fail(c, "create-payment-intent", paymentSheetCodes, err)
		return
	}
	h.log.WithFields(logrus.Fields{"op": "create-payment-intent", "user_id": body.UserID, "plan_id": body.PlanID}).Info("payment intent issued")
	c.JSON(http.StatusOK, out)
}

type setupRequest struct {
	UserID    string `json:"userId" binding:"required"`
	UserEmail string `json:"userEmail" binding:"required,email"`
}

func (h *Handler) subscriptionSetup(ctx context.Context, in setupRequest) (*paymentSheet, error) {
	customerID, err := h.resolveCustomer(ctx, in.UserID, in.UserEmail)
	if err != nil {
		return nil, err
	}
	key, err := h.provider.CreateEphemeralKey(ctx, customerID)
	if err != nil {
		return nil, err
	}
	secret, err := h.provider.CreateSetupIntent(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &paymentSheet{SetupIntent: secret, EphemeralKey: key, Customer: customerID}, nil
}

func (h *Handler) CreateSubscriptionSetup(c *gin.Context) {
	var body setupRequest
	if err := bindJSON(c, &body); err != nil {
		h.fail(c, "create-subscription-setup", paymentSheetCodes, err)
		return
	}

	out, err := h.subscriptionSetup(c.Request.Context(), body)
	if err != nil {
		h.fail(c, "create-subscription-setup", paymentSheetCodes, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func unixOrNil(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	u := t.Unix()
	return &u
}
