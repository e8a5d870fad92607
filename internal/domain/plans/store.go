package plans

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("plan not found")

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id string) (*Plan, error) {
	var p Plan
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) FindByPriceID(ctx context.Context, priceID string) (*Plan, error) {
	var p Plan
	if err := s.db.WithContext(ctx).Where("stripe_price_id = ?", priceID).First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// List returns the catalog ordered by price, cheapest first.
func (s *Store) List(ctx context.Context) ([]Plan, error) {
	var out []Plan
	if err := s.db.WithContext(ctx).Order("price_cents ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
