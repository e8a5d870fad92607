package billing

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Subscription is the local mirror of a provider subscription. Rows are
// never deleted; canceled subscriptions stay as history.
type Subscription struct {
	ID                   string     `gorm:"primaryKey;type:uuid" json:"id"`
	StripeSubscriptionID string     `gorm:"column:stripe_subscription_id;not null;uniqueIndex:idx_billing_subscriptions_stripe_id" json:"subscription_id"`
	StripeCustomerID     string     `gorm:"column:stripe_customer_id;not null;index" json:"customer_id"`
	UserID               string     `gorm:"column:user_id;index" json:"user_id"`
	PlanID               *string    `gorm:"column:plan_id" json:"plan_id"`
	Status               Status     `gorm:"type:varchar(32);not null" json:"status"`
	CancelAtPeriodEnd    bool       `gorm:"column:cancel_at_period_end;not null" json:"cancel_at_period_end"`
	CanceledAt           *time.Time `gorm:"column:canceled_at" json:"canceled_at"`
	CurrentPeriodStart   *time.Time `gorm:"column:current_period_start" json:"current_period_start"`
	CurrentPeriodEnd     *time.Time `gorm:"column:current_period_end" json:"current_period_end"`

	// ProviderUpdatedAt is the creation time of the newest provider event
	// applied to this row; older events never overwrite it.
	ProviderUpdatedAt time.Time `gorm:"column:provider_updated_at;not null" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string { return "billing_subscriptions" }

func (s *Subscription) BeforeCreate(*gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// ProcessedEvent marks a provider webhook event as applied.
type ProcessedEvent struct {
	EventID     string    `gorm:"primaryKey;column:event_id;type:varchar(255)"`
	Type        string    `gorm:"not null"`
	OccurredAt  time.Time `gorm:"column:occurred_at;not null"`
	ProcessedAt time.Time `gorm:"column:processed_at;not null"`
}

func (ProcessedEvent) TableName() string { return "billing_events" }

// ProviderSubscription is the provider's view of a subscription as echoed
// back from a mutation or delivered in an event. Mirror writes are built
// only from this type.
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	Status             Status
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	PriceID            string
	UserID             string
	ClientSecret       string
}
