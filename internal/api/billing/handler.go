package billing

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"plantcare-billing/internal/domain/billing"
	"plantcare-billing/internal/domain/plans"
)

// Provider is the billing provider as seen by the subscription endpoints.
type Provider interface {
	FindCustomerByEmail(ctx context.Context, email string) (string, bool, error)
	CreateCustomer(ctx context.Context, userID, email string) (string, error)
	CreateSubscription(ctx context.Context, customerID, priceID, userID, planID string) (*billing.ProviderSubscription, error)
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*billing.ProviderSubscription, error)
	CancelNow(ctx context.Context, subscriptionID string) (*billing.ProviderSubscription, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, u billing.SubscriptionUpdate) (*billing.ProviderSubscription, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	CreatePaymentIntent(ctx context.Context, customerID string, amount int64, currency string, metadata map[string]string) (string, error)
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)
	CreateEphemeralKey(ctx context.Context, customerID string) (string, error)
}

// Mirror is the local subscription table.
type Mirror interface {
	MarkCancellation(ctx context.Context, ps *billing.ProviderSubscription) error
	ApplyProviderState(ctx context.Context, ps *billing.ProviderSubscription) error
	LatestForUser(ctx context.Context, userID string) (*billing.Subscription, error)
}

type PlanCatalog interface {
	Get(ctx context.Context, id string) (*plans.Plan, error)
}

type Handler struct {
	provider Provider
	mirror   Mirror
	plans    PlanCatalog
	currency string
	log      logrus.FieldLogger
}

type Deps struct {
	Provider Provider
	Mirror   Mirror
	Plans    PlanCatalog
	Currency string
	Log      logrus.FieldLogger
}

func New(d Deps) *Handler {
	registerJSONTagNames()
	currency := d.Currency
	if currency == "" {
		currency = "usd"
	}
	return &Handler{
		provider: d.Provider,
		mirror:   d.Mirror,
		plans:    d.Plans,
		currency: currency,
		log:      d.Log.WithField("source", "billing"),
	}
}

// lookupPlan resolves a plan id, requiring a provider price when
// needPrice is set.
func (h *Handler) lookupPlan(ctx context.Context, planID string, needPrice bool) (*plans.Plan, error) {
	p, err := h.plans.Get(ctx, planID)
	if errors.Is(err, plans.ErrNotFound) {
		return nil, &billing.NotFoundError{Msg: "Plan not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", planID, err)
	}
	if needPrice && !p.Configured() {
		return nil, &billing.NotFoundError{Msg: "Plan is not configured for billing", Unconfigured: true}
	}
	return p, nil
}

func (h *Handler) fail(c *gin.Context, op string, codes billing.StatusCodes, err error) {
	status := codes.For(err)
	entry := h.log.WithFields(logrus.Fields{"op": op, "status": status}).WithError(err)
	if status >= 500 {
		entry.Error("billing operation failed")
	} else {
		entry.Warn("billing request rejected")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func bindJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return &billing.ValidationError{Msg: describeBindError(err)}
	}
	return nil
}

func describeBindError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid request body"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return "Invalid request body: " + strings.Join(msgs, ", ")
}

var tagNamesOnce sync.Once

// registerJSONTagNames makes validation messages name fields as they
// appear on the wire.
func registerJSONTagNames() {
	tagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
}
