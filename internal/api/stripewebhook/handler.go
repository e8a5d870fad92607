package stripewebhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/webhook"

	"plantcare-billing/internal/domain/billing"
	"plantcare-billing/internal/domain/plans"
)

const maxBodyBytes = 65536

// EventStore applies a provider event to the subscription mirror at most once.
type EventStore interface {
	ApplyEvent(ctx context.Context, ev billing.ProcessedEvent, rec *billing.Subscription) (bool, error)
}

type PlanFinder interface {
	FindByPriceID(ctx context.Context, priceID string) (*plans.Plan, error)
}

// SubscriptionFetcher re-reads a subscription for events that only
// reference one.
type SubscriptionFetcher interface {
	GetSubscription(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error)
}

type Handler struct {
	store   EventStore
	plans   PlanFinder
	fetcher SubscriptionFetcher
	secret  string
	log     logrus.FieldLogger
}

type Deps struct {
	Store   EventStore
	Plans   PlanFinder
	Fetcher SubscriptionFetcher
	Secret  string
	Log     logrus.FieldLogger
}

func New(d Deps) *Handler {
	return &Handler{
		store:   d.Store,
		plans:   d.Plans,
		fetcher: d.Fetcher,
		secret:  d.Secret,
		log:     d.Log.WithField("source", "stripe-webhook"),
	}
}

// StripeWebhook verifies and applies one provider event. Failures that a
// redelivery could fix answer 500 so the provider retries; everything
// else is acknowledged.
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		h.log.WithError(err).Warn("stripe signature verification failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	log := h.log.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})
	ctx := c.Request.Context()

	var ps *billing.ProviderSubscription
	switch event.Type {
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse subscription"})
			return
		}
		ps, err = snapshot(&sub)
		if err == nil && event.Type == "customer.subscription.deleted" {
			ps.Status = billing.StatusCanceled
		}

	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse invoice"})
			return
		}
		if inv.Subscription == nil || inv.Subscription.ID == "" {
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
			return
		}
		ps, err = h.fetcher.GetSubscription(ctx, inv.Subscription.ID)
		if err != nil {
			log.WithError(err).Error("refetching subscription for invoice failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

	default:
		// Acknowledge unknown events to avoid retries
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if err != nil {
		log.WithError(err).Warn("unusable subscription payload")
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	rec, err := h.record(ctx, ps, event)
	if err != nil {
		log.WithError(err).Error("resolving plan for subscription failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	applied, err := h.store.ApplyEvent(ctx, processedEvent(event), rec)
	if err != nil {
		log.WithError(err).Error("applying event to mirror failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record subscription"})
		return
	}
	if !applied {
		log.Info("duplicate event skipped")
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}

	log.WithFields(logrus.Fields{"subscription_id": rec.StripeSubscriptionID, "status": rec.Status}).Info("subscription mirrored")
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
