package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"plantcare-billing/internal/domain/billing"
	"plantcare-billing/internal/domain/plans"
)

type fakeProvider struct {
	mu sync.Mutex

	customers map[string]string // email -> customer id
	subs      map[string]*billing.ProviderSubscription
	calls     []string
	lastPI    struct {
		amount   int64
		currency string
		metadata map[string]string
	}
	lastUpdate billing.SubscriptionUpdate

	failOn map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		customers: map[string]string{},
		subs:      map[string]*billing.ProviderSubscription{},
		failOn:    map[string]error{},
	}
}

func (f *fakeProvider) record(call string) error {
	f.calls = append(f.calls, call)
	return f.failOn[call]
}

func (f *fakeProvider) FindCustomerByEmail(_ context.Context, email string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("FindCustomerByEmail"); err != nil {
		return "", false, err
	}
	id, ok := f.customers[email]
	return id, ok, nil
}

func (f *fakeProvider) CreateCustomer(_ context.Context, userID, email string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateCustomer"); err != nil {
		return "", err
	}
	id := fmt.Sprintf("cus_%d", len(f.customers)+1)
	f.customers[email] = id
	return id, nil
}

func (f *fakeProvider) CreateSubscription(_ context.Context, customerID, priceID, userID, planID string) (*billing.ProviderSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateSubscription"); err != nil {
		return nil, err
	}
	id := fmt.Sprintf("sub_%d", len(f.subs)+1)
	ps := &billing.ProviderSubscription{
		ID:           id,
		CustomerID:   customerID,
		Status:       billing.StatusIncomplete,
		PriceID:      priceID,
		UserID:       userID,
		ClientSecret: "pi_" + id + "_secret",
	}
	f.subs[id] = ps
	return ps, nil
}

func (f *fakeProvider) sub(id string) (*billing.ProviderSubscription, error) {
	ps, ok := f.subs[id]
	if !ok {
		return nil, &billing.ProviderError{Op: "get", Msg: "No such subscription: '" + id + "'"}
	}
	return ps, nil
}

func (f *fakeProvider) SetCancelAtPeriodEnd(_ context.Context, id string, atPeriodEnd bool) (*billing.ProviderSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetCancelAtPeriodEnd"); err != nil {
		return nil, err
	}
	ps, err := f.sub(id)
	if err != nil {
		return nil, err
	}
	ps.CancelAtPeriodEnd = atPeriodEnd
	cp := *ps
	return &cp, nil
}

func (f *fakeProvider) CancelNow(_ context.Context, id string) (*billing.ProviderSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CancelNow"); err != nil {
		return nil, err
	}
	ps, err := f.sub(id)
	if err != nil {
		return nil, err
	}
	now := time.Unix(1700000500, 0).UTC()
	ps.Status = billing.StatusCanceled
	ps.CanceledAt = &now
	cp := *ps
	return &cp, nil
}

// UpdateSubscription applies only the fields the provider honours; it
// ignores metadata and reports its own status.
func (f *fakeProvider) UpdateSubscription(_ context.Context, id string, u billing.SubscriptionUpdate) (*billing.ProviderSubscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("UpdateSubscription"); err != nil {
		return nil, err
	}
	f.lastUpdate = u
	ps, err := f.sub(id)
	if err != nil {
		return nil, err
	}
	if u.CancelAtPeriodEnd != nil {
		ps.CancelAtPeriodEnd = *u.CancelAtPeriodEnd
	}
	if u.PriceID != nil {
		ps.PriceID = *u.PriceID
	}
	cp := *ps
	return &cp, nil
}

func (f *fakeProvider) CreatePortalSession(_ context.Context, customerID, returnURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreatePortalSession"); err != nil {
		return "", err
	}
	return "https://billing.example.com/session/" + customerID, nil
}

func (f *fakeProvider) CreatePaymentIntent(_ context.Context, customerID string, amount int64, currency string, metadata map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreatePaymentIntent"); err != nil {
		return "", err
	}
	f.lastPI.amount, f.lastPI.currency, f.lastPI.metadata = amount, currency, metadata
	return "pi_for_" + customerID + "_secret", nil
}

func (f *fakeProvider) CreateSetupIntent(_ context.Context, customerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateSetupIntent"); err != nil {
		return "", err
	}
	return "seti_for_" + customerID + "_secret", nil
}

func (f *fakeProvider) CreateEphemeralKey(_ context.Context, customerID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("CreateEphemeralKey"); err != nil {
		return "", err
	}
	return "ek_" + customerID, nil
}

type fakeMirror struct {
	rows    map[string]*billing.Subscription
	failErr error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: map[string]*billing.Subscription{}}
}

func (m *fakeMirror) put(s *billing.Subscription) { m.rows[s.StripeSubscriptionID] = s }

func (m *fakeMirror) MarkCancellation(_ context.Context, ps *billing.ProviderSubscription) error {
	if m.failErr != nil {
		return m.failErr
	}
	row, ok := m.rows[ps.ID]
	if !ok {
		return billing.ErrMirrorMissing
	}
	row.CancelAtPeriodEnd = ps.CancelAtPeriodEnd
	row.CanceledAt = ps.CanceledAt
	row.Status = ps.Status
	return nil
}

func (m *fakeMirror) ApplyProviderState(_ context.Context, ps *billing.ProviderSubscription) error {
	if m.failErr != nil {
		return m.failErr
	}
	row, ok := m.rows[ps.ID]
	if !ok {
		return billing.ErrMirrorMissing
	}
	row.Status = ps.Status
	row.CancelAtPeriodEnd = ps.CancelAtPeriodEnd
	row.CurrentPeriodStart = ps.CurrentPeriodStart
	row.CurrentPeriodEnd = ps.CurrentPeriodEnd
	return nil
}

func (m *fakeMirror) LatestForUser(_ context.Context, userID string) (*billing.Subscription, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	for _, row := range m.rows {
		if row.UserID == userID {
			return row, nil
		}
	}
	return nil, billing.ErrNoSubscription
}

type fakeCatalog map[string]*plans.Plan

func (f fakeCatalog) Get(_ context.Context, id string) (*plans.Plan, error) {
	if id == "explode" {
		return nil, errors.New("connection refused")
	}
	p, ok := f[id]
	if !ok {
		return nil, plans.ErrNotFound
	}
	return p, nil
}

func defaultCatalog() fakeCatalog {
	return fakeCatalog{
		"monthly_premium": {ID: "monthly_premium", Name: "Monthly Premium", PriceCents: 999, Currency: "usd", StripePriceID: "price_monthly"},
		"yearly_premium":  {ID: "yearly_premium", Name: "Yearly Premium", PriceCents: 9999, Currency: "usd", StripePriceID: "price_yearly"},
		"draft":           {ID: "draft", Name: "Draft", PriceCents: 500},
		"free":            {ID: "free", Name: "Free", PriceCents: 0, StripePriceID: "price_free"},
	}
}
