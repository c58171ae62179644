package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"finagent-go/internal/apperr"
	"finagent-go/internal/catalog"
	"finagent-go/internal/models"
)

// Kind selects one of the provider's product feeds.
type Kind string

const (
	KindDeposit Kind = "deposit"
	KindSaving  Kind = "saving"
	KindLoan    Kind = "loan"
)

// Placeholders stored for loan text fields the provider leaves empty.
const (
	NoInfoPlaceholder    = "정보 없음"
	LoanLimitPlaceholder = "한도 확인 필요"
)

func Kinds() []Kind {
	return []Kind{KindDeposit, KindSaving, KindLoan}
}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindDeposit, KindSaving, KindLoan:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown feed kind %q", apperr.ErrInvalidInput, s)
}

func (k Kind) endpoint() string {
	switch k {
	case KindDeposit:
		return "depositProductsSearch.json"
	case KindSaving:
		return "savingProductsSearch.json"
	case KindLoan:
		return "rentHouseLoanProductsSearch.json"
	}
	return ""
}

// sink writes decoded rows of one kind into the catalog.
type sink interface {
	base(ctx context.Context, raw json.RawMessage) error
	option(ctx context.Context, raw json.RawMessage) error
}

func newSink(k Kind, store *catalog.Store) (sink, error) {
	switch k {
	case KindDeposit:
		return savingsSink{store: store, productType: models.ProductTypeDeposit}, nil
	case KindSaving:
		return savingsSink{store: store, productType: models.ProductTypeSavings}, nil
	case KindLoan:
		return loanSink{store: store}, nil
	}
	return nil, fmt.Errorf("%w: unknown feed kind %q", apperr.ErrInvalidInput, k)
}

type savingsSink struct {
	store       *catalog.Store
	productType models.ProductType
}

func (s savingsSink) base(ctx context.Context, raw json.RawMessage) error {
	var row savingsBaseRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	_, err := s.store.UpsertSavingsProduct(ctx, toSavingsProduct(row, s.productType))
	return err
}

func (s savingsSink) option(ctx context.Context, raw json.RawMessage) error {
	var row savingsOptionRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	_, err := s.store.UpsertSavingsOption(ctx, strings.TrimSpace(row.ProductCode), toSavingsOption(row))
	return err
}

type loanSink struct {
	store *catalog.Store
}

func (s loanSink) base(ctx context.Context, raw json.RawMessage) error {
	var row loanBaseRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	_, err := s.store.UpsertLoanProduct(ctx, toLoanProduct(row))
	return err
}

func (s loanSink) option(ctx context.Context, raw json.RawMessage) error {
	var row loanOptionRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	_, err := s.store.UpsertLoanOption(ctx, strings.TrimSpace(row.ProductCode), toLoanOption(row))
	return err
}

// Deposit text fields pass through as sent, empty strings included.
func toSavingsProduct(row savingsBaseRow, t models.ProductType) models.SavingsProduct {
	return models.SavingsProduct{
		ProductCode:      strings.TrimSpace(row.ProductCode),
		ProductType:      t,
		CompanyName:      row.CompanyName,
		ProductName:      row.ProductName,
		Notes:            row.EtcNote,
		JoinDeny:         int(row.JoinDeny),
		JoinMember:       row.JoinMember,
		JoinWay:          row.JoinWay,
		SpecialCondition: row.SpclCnd,
	}
}

func toSavingsOption(row savingsOptionRow) models.SavingsOption {
	return models.SavingsOption{
		RateTypeName: row.RateTypeName,
		TermMonths:   int(row.SaveTrm),
		BaseRate:     decimal.NewNullDecimal(row.IntrRate.orZero()),
		MaxRate:      decimal.NewNullDecimal(row.IntrRateMax.orZero()),
	}
}

func toLoanProduct(row loanBaseRow) models.LoanProduct {
	return models.LoanProduct{
		ProductCode:    strings.TrimSpace(row.ProductCode),
		CompanyName:    row.CompanyName,
		ProductName:    row.ProductName,
		JoinWay:        row.JoinWay,
		IncidentalCost: orPlaceholder(row.LoanInciExpn, NoInfoPlaceholder),
		EarlyRepayFee:  orPlaceholder(row.ErlyRpayFee, NoInfoPlaceholder),
		OverdueRate:    orPlaceholder(row.DlyRate, NoInfoPlaceholder),
		LoanLimit:      orPlaceholder(row.LoanLmt, LoanLimitPlaceholder),
	}
}

// The average rate stays null when absent; zero would read as a real rate.
func toLoanOption(row loanOptionRow) models.LoanOption {
	return models.LoanOption{
		RepaymentType:   row.RpayTypeName,
		LendingRateType: row.LendRateType,
		RateMin:         row.LendRateMin.orZero(),
		RateMax:         row.LendRateMax.orZero(),
		RateAvg:         row.LendRateAvg.nullable(),
	}
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
