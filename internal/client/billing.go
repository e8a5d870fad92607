package client

import (
	"context"
	"errors"
	"net/http"

	"plantcare-billing/internal/domain/billing"
)

type CreateSubscriptionInput struct {
	PlanID    string `json:"planId"`
	UserID    string `json:"userId"`
	UserEmail string `json:"userEmail"`
}

type CreateSubscriptionResult struct {
	ClientSecret   string `json:"clientSecret"`
	SubscriptionID string `json:"subscriptionId"`
}

// CreateSubscription starts a subscription and returns the secret the
// payment sheet confirms.
func (c *Client) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (*CreateSubscriptionResult, error) {
	var out CreateSubscriptionResult
	if err := c.do(ctx, http.MethodPost, "/create-subscription", false, in, &out); err != nil {
		return nil, err
	}
	c.invalidate()
	return &out, nil
}

type CanceledSubscription struct {
	ID                string `json:"id"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  *int64 `json:"current_period_end"`
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*CanceledSubscription, error) {
	body := map[string]interface{}{"subscriptionId": subscriptionID, "cancelAtPeriodEnd": atPeriodEnd}
	var out struct {
		Success      bool                 `json:"success"`
		Subscription CanceledSubscription `json:"subscription"`
	}
	if err := c.do(ctx, http.MethodPost, "/cancel-subscription", false, body, &out); err != nil {
		return nil, err
	}
	c.invalidate()
	return &out.Subscription, nil
}

type SubscriptionState struct {
	ID                 string         `json:"id"`
	Status             billing.Status `json:"status"`
	CancelAtPeriodEnd  bool           `json:"cancel_at_period_end"`
	CurrentPeriodStart *int64         `json:"current_period_start"`
	CurrentPeriodEnd   *int64         `json:"current_period_end"`
}

// UpdateSubscription forwards updates, keyed by provider field name.
func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, updates map[string]interface{}) (*SubscriptionState, error) {
	body := map[string]interface{}{"subscriptionId": subscriptionID, "updates": updates}
	var out struct {
		Success      bool              `json:"success"`
		Subscription SubscriptionState `json:"subscription"`
	}
	if err := c.do(ctx, http.MethodPost, "/update-subscription", false, body, &out); err != nil {
		return nil, err
	}
	c.invalidate()
	return &out.Subscription, nil
}

// CustomerPortalURL returns a hosted billing page for the signed-in user.
func (c *Client) CustomerPortalURL(ctx context.Context, returnURL string) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/create-customer-portal-session", true, map[string]string{"returnUrl": returnURL}, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}

type PaymentSheet struct {
	PaymentIntent string `json:"paymentIntent,omitempty"`
	SetupIntent   string `json:"setupIntent,omitempty"`
	EphemeralKey  string `json:"ephemeralKey"`
	Customer      string `json:"customer"`
}

func (c *Client) CreatePaymentIntent(ctx context.Context, planID, userID, email string) (*PaymentSheet, error) {
	body := map[string]string{"planId": planID, "userId": userID, "userEmail": email}
	var out PaymentSheet
	if err := c.do(ctx, http.MethodPost, "/create-payment-intent", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateSubscriptionSetup(ctx context.Context, userID, email string) (*PaymentSheet, error) {
	body := map[string]string{"userId": userID, "userEmail": email}
	var out PaymentSheet
	if err := c.do(ctx, http.MethodPost, "/create-subscription-setup", false, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Subscription returns the signed-in user's mirrored subscription, served
// from cache until a mutation succeeds or the entry expires.
func (c *Client) Subscription(ctx context.Context) (*billing.Subscription, error) {
	key := c.cacheKey(ctx)
	if sub, ok := c.cache.Get(key); ok {
		return sub, nil
	}

	var sub billing.Subscription
	err := c.do(ctx, http.MethodGet, "/subscription", true, nil, &sub)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, &sub)
	return &sub, nil
}
