package stripe

import (
	"fmt"
	"strings"
	"time"

	stripego "github.com/stripe/stripe-go/v75"

	"plantcare-billing/internal/domain/billing"
)

// toStatus maps the provider status verbatim; an empty or unknown status
// is an error rather than a guess.
func toStatus(s stripego.SubscriptionStatus) (billing.Status, error) {
	return billing.ParseStatus(strings.TrimSpace(string(s)))
}

func unixPtr(sec int64) *time.Time {
	if sec == 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}

// Snapshot converts a provider subscription into the mirror's input type.
func Snapshot(sub *stripego.Subscription) (*billing.ProviderSubscription, error) {
	if sub == nil || sub.ID == "" {
		return nil, fmt.Errorf("subscription missing id")
	}
	st, err := toStatus(sub.Status)
	if err != nil {
		return nil, fmt.Errorf("subscription %s: %w", sub.ID, err)
	}

	ps := &billing.ProviderSubscription{
		ID:                 sub.ID,
		Status:             st,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         unixPtr(sub.CanceledAt),
		CurrentPeriodStart: unixPtr(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixPtr(sub.CurrentPeriodEnd),
	}
	if sub.Customer != nil {
		ps.CustomerID = sub.Customer.ID
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		ps.PriceID = sub.Items.Data[0].Price.ID
	}
	if sub.Metadata != nil {
		ps.UserID = sub.Metadata["user_id"]
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		ps.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return ps, nil
}
