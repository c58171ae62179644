package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductTypeDeposit ProductType = "deposit"
	ProductTypeSavings ProductType = "savings"
)

func (t ProductType) Valid() bool {
	return t == ProductTypeDeposit || t == ProductTypeSavings
}

// SavingsProduct is a deposit or installment-savings product from the feed.
type SavingsProduct struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ProductCode      string          `gorm:"uniqueIndex;not null" json:"product_code"`
	ProductType      ProductType     `gorm:"type:varchar(10);index;not null;default:deposit" json:"product_type"`
	CompanyName      string          `json:"company_name"`
	ProductName      string          `json:"product_name"`
	Notes            string          `json:"notes"`
	JoinDeny         int             `json:"join_deny"` // 1 none, 2 low-income, 3 partial
	JoinMember       string          `json:"join_member"`
	JoinWay          string          `json:"join_way"`
	SpecialCondition string          `json:"special_condition"`
	Options          []SavingsOption `gorm:"foreignKey:ProductID" json:"options"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type SavingsOption struct {
	ID           uint                `gorm:"primaryKey" json:"id"`
	ProductID    uint                `gorm:"uniqueIndex:idx_savings_option_key;not null" json:"-"`
	ProductCode  string              `gorm:"index" json:"product_code"`
	RateTypeName string              `gorm:"uniqueIndex:idx_savings_option_key;type:varchar(100);not null" json:"rate_type_name"`
	TermMonths   int                 `gorm:"uniqueIndex:idx_savings_option_key;not null" json:"term_months"`
	BaseRate     decimal.NullDecimal `gorm:"type:decimal(6,2)" json:"base_rate"`
	MaxRate      decimal.NullDecimal `gorm:"type:decimal(6,2)" json:"max_rate"`
	CreatedAt    time.Time           `json:"-"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// LoanProduct is a jeonse (rent deposit) loan product from the feed.
type LoanProduct struct {
	ID             uint         `gorm:"primaryKey" json:"id"`
	ProductCode    string       `gorm:"uniqueIndex;not null" json:"product_code"`
	CompanyName    string       `json:"company_name"`
	ProductName    string       `json:"product_name"`
	JoinWay        string       `json:"join_way"`
	IncidentalCost string       `json:"incidental_cost"`
	EarlyRepayFee  string       `json:"early_repay_fee"`
	OverdueRate    string       `json:"overdue_rate"`
	LoanLimit      string       `json:"loan_limit"`
	Options        []LoanOption `gorm:"foreignKey:ProductID" json:"options"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type LoanOption struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	ProductID       uint                `gorm:"uniqueIndex:idx_loan_option_key;not null" json:"-"`
	ProductCode     string              `gorm:"index" json:"product_code"`
	RepaymentType   string              `gorm:"uniqueIndex:idx_loan_option_key;type:varchar(100);not null" json:"repayment_type"`
	LendingRateType string              `gorm:"uniqueIndex:idx_loan_option_key;type:varchar(100);not null" json:"lending_rate_type"`
	RateMin         decimal.Decimal     `gorm:"type:decimal(6,2)" json:"rate_min"`
	RateMax         decimal.Decimal     `gorm:"type:decimal(6,2)" json:"rate_max"`
	RateAvg         decimal.NullDecimal `gorm:"type:decimal(6,2)" json:"rate_avg"`
	CreatedAt       time.Time           `json:"-"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
