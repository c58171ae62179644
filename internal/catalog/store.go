package catalog

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finagent-go/internal/apperr"
	"finagent-go/internal/models"
)

// Mutable columns refreshed on every upsert. The conflict key columns are
// never rewritten.
var (
	savingsProductColumns = []string{
		"product_type", "company_name", "product_name", "notes", "join_deny",
		"join_member", "join_way", "special_condition", "updated_at",
	}
	savingsOptionColumns = []string{"product_code", "base_rate", "max_rate", "updated_at"}
	loanProductColumns   = []string{
		"company_name", "product_name", "join_way", "incidental_cost",
		"early_repay_fee", "overdue_rate", "loan_limit", "updated_at",
	}
	loanOptionColumns = []string{"product_code", "rate_min", "rate_max", "rate_avg", "updated_at"}
)

type Filter struct {
	Type models.ProductType
}

type Counts struct {
	SavingsProducts int64 `json:"savings_products"`
	SavingsOptions  int64 `json:"savings_options"`
	LoanProducts    int64 `json:"loan_products"`
	LoanOptions     int64 `json:"loan_options"`
}

// Store is the gorm-backed catalog of savings and loan products.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// UpsertSavingsProduct inserts p or, when its product code already exists,
// replaces every mutable column in the same statement.
func (s *Store) UpsertSavingsProduct(ctx context.Context, p models.SavingsProduct) (*models.SavingsProduct, error) {
	if p.ProductCode == "" {
		return nil, fmt.Errorf("%w: empty product code", apperr.ErrInvalidInput)
	}
	if p.ProductType == "" {
		p.ProductType = models.ProductTypeDeposit
	}
	p.ID = 0
	p.Options = nil

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_code"}},
			DoUpdates: clause.AssignmentColumns(savingsProductColumns),
		}).
		Omit(clause.Associations).
		Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("upsert savings product %s: %w", p.ProductCode, err)
	}

	var out models.SavingsProduct
	if err := s.db.WithContext(ctx).Where("product_code = ?", p.ProductCode).Take(&out).Error; err != nil {
		return nil, apperr.FromGorm(err)
	}
	return &out, nil
}

// UpsertSavingsOption stores opt under the product identified by code,
// keyed on (product, term, rate type name). A missing parent yields
// apperr.ErrOrphanOption.
func (s *Store) UpsertSavingsOption(ctx context.Context, code string, opt models.SavingsOption) (*models.SavingsOption, error) {
	parentID, err := s.parentID(ctx, &models.SavingsProduct{}, code)
	if err != nil {
		return nil, err
	}
	opt.ID = 0
	opt.ProductID = parentID
	opt.ProductCode = code

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "term_months"}, {Name: "rate_type_name"}},
			DoUpdates: clause.AssignmentColumns(savingsOptionColumns),
		}).
		Create(&opt).Error
	if err != nil {
		return nil, fmt.Errorf("upsert savings option %s/%d: %w", code, opt.TermMonths, err)
	}

	var out models.SavingsOption
	err = s.db.WithContext(ctx).
		Where("product_id = ? AND term_months = ? AND rate_type_name = ?", parentID, opt.TermMonths, opt.RateTypeName).
		Take(&out).Error
	if err != nil {
		return nil, apperr.FromGorm(err)
	}
	return &out, nil
}

func (s *Store) UpsertLoanProduct(ctx context.Context, p models.LoanProduct) (*models.LoanProduct, error) {
	if p.ProductCode == "" {
		return nil, fmt.Errorf("%w: empty product code", apperr.ErrInvalidInput)
	}
	p.ID = 0
	p.Options = nil

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_code"}},
			DoUpdates: clause.AssignmentColumns(loanProductColumns),
		}).
		Omit(clause.Associations).
		Create(&p).Error
	if err != nil {
		return nil, fmt.Errorf("upsert loan product %s: %w", p.ProductCode, err)
	}

	var out models.LoanProduct
	if err := s.db.WithContext(ctx).Where("product_code = ?", p.ProductCode).Take(&out).Error; err != nil {
		return nil, apperr.FromGorm(err)
	}
	return &out, nil
}

// UpsertLoanOption is keyed on (product, repayment type, lending rate type);
// loan rows carry no term.
func (s *Store) UpsertLoanOption(ctx context.Context, code string, opt models.LoanOption) (*models.LoanOption, error) {
	parentID, err := s.parentID(ctx, &models.LoanProduct{}, code)
	if err != nil {
		return nil, err
	}
	opt.ID = 0
	opt.ProductID = parentID
	opt.ProductCode = code

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "product_id"}, {Name: "repayment_type"}, {Name: "lending_rate_type"}},
			DoUpdates: clause.AssignmentColumns(loanOptionColumns),
		}).
		Create(&opt).Error
	if err != nil {
		return nil, fmt.Errorf("upsert loan option %s: %w", code, err)
	}

	var out models.LoanOption
	err = s.db.WithContext(ctx).
		Where("product_id = ? AND repayment_type = ? AND lending_rate_type = ?", parentID, opt.RepaymentType, opt.LendingRateType).
		Take(&out).Error
	if err != nil {
		return nil, apperr.FromGorm(err)
	}
	return &out, nil
}

func (s *Store) parentID(ctx context.Context, model any, code string) (uint, error) {
	var row struct{ ID uint }
	err := s.db.WithContext(ctx).Model(model).Select("id").Where("product_code = ?", code).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %q", apperr.ErrOrphanOption, code)
	}
	if err != nil {
		return 0, err
	}
	return row.ID, nil
}

// ListSavings returns products with their options attached. Options for the
// whole page are loaded in a single IN query.
func (s *Store) ListSavings(ctx context.Context, f Filter) ([]models.SavingsProduct, error) {
	q := s.db.WithContext(ctx).Preload("Options", orderOptions).Order("id")
	if f.Type != "" {
		q = q.Where("product_type = ?", f.Type)
	}

	products := []models.SavingsProduct{}
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) ListLoans(ctx context.Context) ([]models.LoanProduct, error) {
	products := []models.LoanProduct{}
	err := s.db.WithContext(ctx).
		Preload("Options", orderByID).
		Order("id").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetSavingsByCode(ctx context.Context, code string) (*models.SavingsProduct, error) {
	var p models.SavingsProduct
	err := s.db.WithContext(ctx).Preload("Options", orderOptions).Where("product_code = ?", code).Take(&p).Error
	if err != nil {
		return nil, apperr.FromGorm(err)
	}
	return &p, nil
}

func (s *Store) GetLoanByCode(ctx context.Context, code string) (*models.LoanProduct, error) {
	var p models.LoanProduct
	err := s.db.WithContext(ctx).Preload("Options", orderByID).Where("product_code = ?", code).Take(&p).Error
	if err != nil {
		return nil, apperr.FromGorm(err)
	}
	return &p, nil
}

// DeleteSavingsProduct removes the product, its options and every
// subscription pointing at it in one transaction.
func (s *Store) DeleteSavingsProduct(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.SavingsProduct
		if err := tx.Select("id").Where("product_code = ?", code).Take(&p).Error; err != nil {
			return apperr.FromGorm(err)
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.SavingsOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.SavingsProduct{}, p.ID).Error
	})
}

func (s *Store) DeleteLoanProduct(ctx context.Context, code string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p models.LoanProduct
		if err := tx.Select("id").Where("product_code = ?", code).Take(&p).Error; err != nil {
			return apperr.FromGorm(err)
		}
		if err := tx.Where("product_id = ?", p.ID).Delete(&models.LoanOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.LoanProduct{}, p.ID).Error
	})
}

func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	db := s.db.WithContext(ctx)
	for _, q := range []struct {
		model any
		dst   *int64
	}{
		{&models.SavingsProduct{}, &c.SavingsProducts},
		{&models.SavingsOption{}, &c.SavingsOptions},
		{&models.LoanProduct{}, &c.LoanProducts},
		{&models.LoanOption{}, &c.LoanOptions},
	} {
		if err := db.Model(q.model).Count(q.dst).Error; err != nil {
			return Counts{}, err
		}
	}
	return c, nil
}

func orderOptions(db *gorm.DB) *gorm.DB {
	return db.Order("term_months").Order("id")
}

func orderByID(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}
