package plans

type Plan struct {
	ID            string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name          string `gorm:"not null" json:"name"`
	PriceCents    int64  `gorm:"column:price_cents;not null" json:"price"`
	Currency      string `gorm:"type:varchar(3);not null;default:'usd'" json:"currency"`
	Interval      string `json:"interval"`
	StripePriceID string `gorm:"column:stripe_price_id;index:idx_plans_stripe_price_id" json:"stripe_price_id"`
}

// Configured reports whether the plan can be billed.
func (p *Plan) Configured() bool {
	return p != nil && p.StripePriceID != ""
}
