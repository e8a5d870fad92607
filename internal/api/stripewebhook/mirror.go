package stripewebhooks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v75"

	"plantcare-billing/internal/domain/billing"
	"plantcare-billing/internal/domain/plans"
	stripeinfra "plantcare-billing/internal/infra/stripe"
)

func snapshot(sub *stripe.Subscription) (*billing.ProviderSubscription, error) {
	ps, err := stripeinfra.Snapshot(sub)
	if err != nil {
		return nil, err
	}
	if ps.CustomerID == "" {
		return nil, fmt.Errorf("subscription %s has no customer", ps.ID)
	}
	return ps, nil
}

// record builds the mirror row for ps. An unknown price leaves plan_id
// unset so an existing value is kept.
func (h *Handler) record(ctx context.Context, ps *billing.ProviderSubscription, event stripe.Event) (*billing.Subscription, error) {
	rec := &billing.Subscription{
		StripeSubscriptionID: ps.ID,
		StripeCustomerID:     ps.CustomerID,
		UserID:               ps.UserID,
		Status:               ps.Status,
		CancelAtPeriodEnd:    ps.CancelAtPeriodEnd,
		CanceledAt:           ps.CanceledAt,
		CurrentPeriodStart:   ps.CurrentPeriodStart,
		CurrentPeriodEnd:     ps.CurrentPeriodEnd,
		ProviderUpdatedAt:    time.Unix(event.Created, 0).UTC(),
	}

	if ps.PriceID == "" {
		return rec, nil
	}
	plan, err := h.plans.FindByPriceID(ctx, ps.PriceID)
	switch {
	case errors.Is(err, plans.ErrNotFound):
		h.log.WithField("price_id", ps.PriceID).Warn("no plan for subscription price")
	case err != nil:
		return nil, fmt.Errorf("find plan for price %s: %w", ps.PriceID, err)
	default:
		rec.PlanID = &plan.ID
	}
	return rec, nil
}

func processedEvent(event stripe.Event) billing.ProcessedEvent {
	return billing.ProcessedEvent{
		EventID:    event.ID,
		Type:       string(event.Type),
		OccurredAt: time.Unix(event.Created, 0).UTC(),
	}
}
