package billing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrMirrorMissing  = errors.New("no mirrored subscription for provider id")
	ErrNoSubscription = errors.New("no subscription on file")
)

// Store persists the subscription mirror.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// MarkCancellation writes the provider-confirmed cancellation state.
func (s *Store) MarkCancellation(ctx context.Context, ps *ProviderSubscription) error {
	return s.update(ctx, ps.ID, map[string]interface{}{
		"cancel_at_period_end": ps.CancelAtPeriodEnd,
		"canceled_at":          ps.CanceledAt,
		"status":               ps.Status,
		"updated_at":           s.now(),
	})
}

// ApplyProviderState overwrites status, cancellation flag and period
// boundaries with what the provider returned.
func (s *Store) ApplyProviderState(ctx context.Context, ps *ProviderSubscription) error {
	return s.update(ctx, ps.ID, map[string]interface{}{
		"status":               ps.Status,
		"cancel_at_period_end": ps.CancelAtPeriodEnd,
		"current_period_start": ps.CurrentPeriodStart,
		"current_period_end":   ps.CurrentPeriodEnd,
		"updated_at":           s.now(),
	})
}

func (s *Store) update(ctx context.Context, providerID string, fields map[string]interface{}) error {
	res := s.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("stripe_subscription_id = ?", providerID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrMirrorMissing
	}
	return nil
}

// LatestForUser returns the most recently updated subscription of a user.
func (s *Store) LatestForUser(ctx context.Context, userID string) (*Subscription, error) {
	var sub Subscription
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ApplyEvent records ev and upserts rec in one transaction. It reports
// false when the event was already processed. Rows carrying a newer
// provider_updated_at than rec are left untouched.
func (s *Store) ApplyEvent(ctx context.Context, ev ProcessedEvent, rec *Subscription) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ev.ProcessedAt = s.now()
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&ev)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		res = tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "stripe_subscription_id"}},
			DoUpdates: append(clause.AssignmentColumns([]string{
				"stripe_customer_id",
				"status",
				"cancel_at_period_end",
				"canceled_at",
				"current_period_start",
				"current_period_end",
				"provider_updated_at",
				"updated_at",
			}),
				clause.Assignment{
					Column: clause.Column{Name: "user_id"},
					Value:  gorm.Expr(`COALESCE(NULLIF(excluded.user_id, ''), "billing_subscriptions"."user_id")`),
				},
				clause.Assignment{
					Column: clause.Column{Name: "plan_id"},
					Value:  gorm.Expr(`COALESCE(excluded.plan_id, "billing_subscriptions"."plan_id")`),
				},
			),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: `"billing_subscriptions"."provider_updated_at" <= excluded.provider_updated_at`},
			}},
		}).Create(rec)
		if res.Error != nil {
			return res.Error
		}
		applied = true
		return nil
	})
	return applied, err
}
