package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"plantcare-billing/internal/domain/billing"
	"plantcare-billing/internal/domain/plans"
	"plantcare-billing/internal/infra/logging"
)

// Open connects to Postgres with queries logged through log.
func Open(dsn string, log logrus.FieldLogger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 logging.Gorm(log),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates the billing tables. The overdue task summary
// function belongs to the garden schema and is not managed here.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&plans.Plan{},
		&billing.Subscription{},
		&billing.ProcessedEvent{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
