// Package ledger manages users' subscriptions to savings products.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finagent-go/internal/apperr"
	"finagent-go/internal/catalog"
	"finagent-go/internal/models"
)

// compoundMarkers are matched against the free-form rate type label of an
// option. The provider labels compound interest "복리".
var compoundMarkers = []string{"복리", "compound"}

// Patch holds the subscription fields a user may change. Nil fields are left
// untouched.
type Patch struct {
	Amount         *int64           `json:"amount"`
	MonthlyPayment *int64           `json:"monthly_payment"`
	JoinedAt       *time.Time       `json:"joined_at"`
	TermMonths     *int             `json:"term_months"`
	Rate           *decimal.Decimal `json:"rate"`
	RateType       *models.RateType `json:"rate_type"`
}

func (p Patch) validate() error {
	switch {
	case p.Amount != nil && *p.Amount < 0:
		return fmt.Errorf("%w: amount must not be negative", apperr.ErrInvalidInput)
	case p.MonthlyPayment != nil && *p.MonthlyPayment < 0:
		return fmt.Errorf("%w: monthly_payment must not be negative", apperr.ErrInvalidInput)
	case p.TermMonths != nil && *p.TermMonths <= 0:
		return fmt.Errorf("%w: term_months must be positive", apperr.ErrInvalidInput)
	case p.TermMonths != nil && *p.TermMonths > models.MaxTermMonths:
		return fmt.Errorf("%w: term_months must be at most %d", apperr.ErrInvalidInput, models.MaxTermMonths)
	case p.Rate != nil && p.Rate.IsNegative():
		return fmt.Errorf("%w: rate must not be negative", apperr.ErrInvalidInput)
	case p.RateType != nil && !p.RateType.Valid():
		return fmt.Errorf("%w: rate_type must be S or M", apperr.ErrInvalidInput)
	}
	return nil
}

func (p Patch) columns() map[string]any {
	cols := map[string]any{}
	if p.Amount != nil {
		cols["amount"] = *p.Amount
	}
	if p.MonthlyPayment != nil {
		cols["monthly_payment"] = *p.MonthlyPayment
	}
	if p.JoinedAt != nil {
		cols["joined_at"] = *p.JoinedAt
	}
	if p.TermMonths != nil {
		cols["term_months"] = *p.TermMonths
	}
	if p.Rate != nil {
		cols["rate"] = *p.Rate
	}
	if p.RateType != nil {
		cols["rate_type"] = *p.RateType
	}
	return cols
}

// Holding is a subscription together with its maturity projection.
type Holding struct {
	models.Subscription
	Projection Projection `json:"projection"`
}

type Service struct {
	db     *gorm.DB
	store  *catalog.Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(db *gorm.DB, store *catalog.Store, logger *slog.Logger) *Service {
	return &Service{
		db:     db,
		store:  store,
		logger: logger.With("component", "ledger"),
		now:    time.Now,
	}
}

// Join subscribes userID to the savings product with the given code. The
// rate comes from the product's 12-month option when it has one, otherwise
// from its first option; the term always starts at 12 months.
func (s *Service) Join(ctx context.Context, userID uint, code string) (*models.Subscription, error) {
	product, err := s.store.GetSavingsByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	var existing int64
	err = s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ? AND product_id = ?", userID, product.ID).
		Count(&existing).Error
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, apperr.ErrAlreadyJoined
	}

	rate, rateType := defaultRate(product.Options)
	sub := models.Subscription{
		UserID:     userID,
		ProductID:  product.ID,
		TermMonths: models.DefaultTermMonths,
		JoinedAt:   s.now().UTC().Truncate(24 * time.Hour),
		Rate:       rate,
		RateType:   rateType,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&sub).Error; err != nil {
		if errors.Is(apperr.FromGorm(err), apperr.ErrConflict) {
			return nil, apperr.ErrAlreadyJoined
		}
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	sub.Product = *product

	s.logger.Info("product joined", "user_id", userID, "product_code", code, "subscription_id", sub.ID)
	return &sub, nil
}

// defaultRate picks the 12-month option, else the first one. A product
// without options joins at 0% simple.
func defaultRate(opts []models.SavingsOption) (decimal.Decimal, models.RateType) {
	if len(opts) == 0 {
		return decimal.Zero, models.RateTypeSimple
	}
	chosen := opts[0]
	for _, o := range opts {
		if o.TermMonths == models.DefaultTermMonths {
			chosen = o
			break
		}
	}

	rate := decimal.Zero
	if chosen.BaseRate.Valid {
		rate = chosen.BaseRate.Decimal
	}
	return rate, RateTypeFor(chosen.RateTypeName)
}

// RateTypeFor maps a provider rate type label to a subscription rate type.
func RateTypeFor(label string) models.RateType {
	lower := strings.ToLower(label)
	for _, m := range compoundMarkers {
		if strings.Contains(lower, m) {
			return models.RateTypeCompound
		}
	}
	return models.RateTypeSimple
}

func (s *Service) Get(ctx context.Context, userID, id uint) (*models.Subscription, error) {
	return s.owned(s.db.WithContext(ctx).Preload("Product"), userID, id)
}

// Update applies p to a subscription owned by userID.
func (s *Service) Update(ctx context.Context, userID, id uint, p Patch) (*models.Subscription, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	sub, err := s.owned(db, userID, id)
	if err != nil {
		return nil, err
	}

	if cols := p.columns(); len(cols) > 0 {
		if err := db.Model(sub).Updates(cols).Error; err != nil {
			return nil, fmt.Errorf("update subscription %d: %w", id, err)
		}
	}
	return s.owned(db.Preload("Product"), userID, id)
}

func (s *Service) Cancel(ctx context.Context, userID, id uint) error {
	db := s.db.WithContext(ctx)
	sub, err := s.owned(db, userID, id)
	if err != nil {
		return err
	}
	if err := db.Delete(&models.Subscription{}, sub.ID).Error; err != nil {
		return fmt.Errorf("delete subscription %d: %w", id, err)
	}
	s.logger.Info("subscription cancelled", "user_id", userID, "subscription_id", id)
	return nil
}

// ListForUser returns userID's subscriptions with products and options loaded
// in batch, each with its maturity projection.
func (s *Service) ListForUser(ctx context.Context, userID uint) ([]Holding, error) {
	var subs []models.Subscription
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Product.Options", func(db *gorm.DB) *gorm.DB { return db.Order("term_months").Order("id") }).
		Where("user_id = ?", userID).
		Order("id").
		Find(&subs).Error
	if err != nil {
		return nil, err
	}

	out := make([]Holding, 0, len(subs))
	for _, sub := range subs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, Holding{Subscription: sub, Projection: Project(sub, sub.Product.ProductType)})
	}
	return out, nil
}

// owned loads a subscription and checks it belongs to userID.
func (s *Service) owned(db *gorm.DB, userID, id uint) (*models.Subscription, error) {
	var sub models.Subscription
	if err := db.Take(&sub, id).Error; err != nil {
		return nil, apperr.FromGorm(err)
	}
	if sub.UserID != userID {
		return nil, apperr.ErrForbidden
	}
	return &sub, nil
}
