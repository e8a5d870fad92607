package stripe

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	stripego "github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/client"
	"golang.org/x/crypto/blake2b"

	"plantcare-billing/internal/domain/billing"
)

// Client talks to Stripe through a per-instance API client so that no
// package-level key is shared between handlers.
type Client struct {
	api *client.API
}

func New(secretKey string, backends *stripego.Backends) *Client {
	return &Client{api: client.New(secretKey, backends)}
}

// NewWithLogger builds a client whose SDK logging goes to log.
func NewWithLogger(secretKey string, log stripego.LeveledLoggerInterface) *Client {
	cfg := &stripego.BackendConfig{LeveledLogger: log}
	return New(secretKey, &stripego.Backends{
		API:     stripego.GetBackendWithConfig(stripego.APIBackend, cfg),
		Connect: stripego.GetBackendWithConfig(stripego.ConnectBackend, cfg),
		Uploads: stripego.GetBackendWithConfig(stripego.UploadsBackend, cfg),
	})
}

// FindCustomerByEmail returns the first customer with the given email.
func (c *Client) FindCustomerByEmail(ctx context.Context, email string) (string, bool, error) {
	params := &stripego.CustomerListParams{Email: stripego.String(email)}
	params.Limit = stripego.Int64(1)
	params.Context = ctx

	it := c.api.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, true, nil
	}
	if err := it.Err(); err != nil {
		return "", false, providerError("list customers", err)
	}
	return "", false, nil
}

// CreateCustomer creates a customer tagged with the application user id.
// The idempotency key collapses concurrent first-time creates for the same
// user inside the provider's idempotency window.
func (c *Client) CreateCustomer(ctx context.Context, userID, email string) (string, error) {
	params := &stripego.CustomerParams{Email: stripego.String(email)}
	params.Context = ctx
	params.AddMetadata("user_id", userID)
	params.SetIdempotencyKey(customerIdempotencyKey(userID, email))

	cus, err := c.api.Customers.New(params)
	if err != nil {
		return "", providerError("create customer", err)
	}
	return cus.ID, nil
}

// CreateSubscription starts a subscription whose first payment the client
// confirms with the returned client secret.
func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID, userID, planID string) (*billing.ProviderSubscription, error) {
	params := &stripego.SubscriptionParams{
		Customer: stripego.String(customerID),
		Items: []*stripego.SubscriptionItemsParams{
			{Price: stripego.String(priceID)},
		},
		PaymentBehavior: stripego.String("default_incomplete"),
		PaymentSettings: &stripego.SubscriptionPaymentSettingsParams{
			SaveDefaultPaymentMethod: stripego.String("on_subscription"),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", userID)
	params.AddMetadata("plan_id", planID)
	params.AddExpand("latest_invoice.payment_intent")

	sub, err := c.api.Subscriptions.New(params)
	if err != nil {
		return nil, providerError("create subscription", err)
	}
	return snapshotOrErr(sub)
}

func (c *Client) GetSubscription(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	params := &stripego.SubscriptionParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return nil, providerError("get subscription", err)
	}
	return snapshotOrErr(sub)
}

func (c *Client) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*billing.ProviderSubscription, error) {
	params := &stripego.SubscriptionParams{CancelAtPeriodEnd: stripego.Bool(atPeriodEnd)}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, providerError("update subscription", err)
	}
	return snapshotOrErr(sub)
}

func (c *Client) CancelNow(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error) {
	params := &stripego.SubscriptionCancelParams{}
	params.Context = ctx

	sub, err := c.api.Subscriptions.Cancel(subscriptionID, params)
	if err != nil {
		return nil, providerError("cancel subscription", err)
	}
	return snapshotOrErr(sub)
}

// UpdateSubscription forwards u to the provider. A price swap replaces the
// price of the subscription's first item.
func (c *Client) UpdateSubscription(ctx context.Context, subscriptionID string, u billing.SubscriptionUpdate) (*billing.ProviderSubscription, error) {
	params := &stripego.SubscriptionParams{
		CancelAtPeriodEnd:    u.CancelAtPeriodEnd,
		ProrationBehavior:    u.ProrationBehavior,
		DefaultPaymentMethod: u.DefaultPaymentMethod,
		TrialEnd:             u.TrialEnd,
	}
	params.Context = ctx
	if u.TrialEndNow {
		params.TrialEndNow = stripego.Bool(true)
	}
	for k, v := range u.Metadata {
		params.AddMetadata(k, v)
	}
	if u.PauseBehavior != nil {
		params.PauseCollection = &stripego.SubscriptionPauseCollectionParams{Behavior: u.PauseBehavior}
	}
	if u.ResumeCollection {
		params.AddExtra("pause_collection", "")
	}

	if u.PriceID != nil {
		current, err := c.api.Subscriptions.Get(subscriptionID, &stripego.SubscriptionParams{Params: stripego.Params{Context: ctx}})
		if err != nil {
			return nil, providerError("get subscription", err)
		}
		if current.Items == nil || len(current.Items.Data) == 0 {
			return nil, &billing.ProviderError{Op: "update subscription", Msg: "Subscription has no price item"}
		}
		params.Items = []*stripego.SubscriptionItemsParams{
			{ID: stripego.String(current.Items.Data[0].ID), Price: u.PriceID},
		}
	}

	sub, err := c.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, providerError("update subscription", err)
	}
	return snapshotOrErr(sub)
}

func (c *Client) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	params := &stripego.BillingPortalSessionParams{
		Customer:  stripego.String(customerID),
		ReturnURL: stripego.String(returnURL),
	}
	params.Context = ctx

	s, err := c.api.BillingPortalSessions.New(params)
	if err != nil {
		return "", providerError("create portal session", err)
	}
	return s.URL, nil
}

func (c *Client) CreatePaymentIntent(ctx context.Context, customerID string, amount int64, currency string, metadata map[string]string) (string, error) {
	params := &stripego.PaymentIntentParams{
		Amount:   stripego.Int64(amount),
		Currency: stripego.String(strings.ToLower(currency)),
		Customer: stripego.String(customerID),
		AutomaticPaymentMethods: &stripego.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripego.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return "", providerError("create payment intent", err)
	}
	return pi.ClientSecret, nil
}

func (c *Client) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	params := &stripego.SetupIntentParams{
		Customer:           stripego.String(customerID),
		PaymentMethodTypes: stripego.StringSlice([]string{"card"}),
		Usage:              stripego.String("off_session"),
	}
	params.Context = ctx

	si, err := c.api.SetupIntents.New(params)
	if err != nil {
		return "", providerError("create setup intent", err)
	}
	return si.ClientSecret, nil
}

// CreateEphemeralKey issues a key the mobile SDK uses to act on the customer.
func (c *Client) CreateEphemeralKey(ctx context.Context, customerID string) (string, error) {
	params := &stripego.EphemeralKeyParams{
		Customer:      stripego.String(customerID),
		StripeVersion: stripego.String(stripego.APIVersion),
	}
	params.Context = ctx

	k, err := c.api.EphemeralKeys.New(params)
	if err != nil {
		return "", providerError("create ephemeral key", err)
	}
	return k.Secret, nil
}

// customerIdempotencyKey is stable per user and email and stays within the
// provider's key length limit for any email.
func customerIdempotencyKey(userID, email string) string {
	sum := blake2b.Sum256([]byte(userID + "\x00" + strings.ToLower(strings.TrimSpace(email))))
	return "customer-create-" + hex.EncodeToString(sum[:])
}

func snapshotOrErr(sub *stripego.Subscription) (*billing.ProviderSubscription, error) {
	ps, err := Snapshot(sub)
	if err != nil {
		return nil, &billing.ProviderError{Op: "decode subscription", Msg: err.Error(), Err: err}
	}
	return ps, nil
}

// providerError keeps the provider's own message for the caller.
func providerError(op string, err error) error {
	var se *stripego.Error
	if errors.As(err, &se) && se.Msg != "" {
		return &billing.ProviderError{Op: op, Msg: se.Msg, Err: err}
	}
	return &billing.ProviderError{Op: op, Msg: fmt.Sprintf("%s failed: %v", op, err), Err: err}
}
