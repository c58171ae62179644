package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateType is the interest flag stored on a subscription.
type RateType string

const (
	RateTypeSimple   RateType = "S"
	RateTypeCompound RateType = "M"
)

func (r RateType) Valid() bool {
	return r == RateTypeSimple || r == RateTypeCompound
}

const (
	DefaultTermMonths = 12
	// MaxTermMonths bounds user-chosen terms (50 years).
	MaxTermMonths = 600
)

// Subscription records that a user joined a savings product. One row per
// (user, product).
type Subscription struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	UserID         uint            `gorm:"uniqueIndex:idx_subscription_user_product;not null" json:"user_id"`
	ProductID      uint            `gorm:"uniqueIndex:idx_subscription_user_product;not null" json:"-"`
	Product        SavingsProduct  `gorm:"foreignKey:ProductID" json:"product"`
	Amount         int64           `gorm:"not null" json:"amount"`
	MonthlyPayment int64           `gorm:"not null" json:"monthly_payment"`
	TermMonths     int             `gorm:"not null" json:"term_months"`
	JoinedAt       time.Time       `gorm:"type:date" json:"joined_at"`
	Rate           decimal.Decimal `gorm:"type:decimal(6,2)" json:"rate"`
	RateType       RateType        `gorm:"type:varchar(1);not null" json:"rate_type"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
