package ledger

import (
	"github.com/shopspring/decimal"

	"finagent-go/internal/models"
)

// Projection is the pre-tax outcome of a subscription held to maturity,
// in whole currency units.
type Projection struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Total     decimal.Decimal `json:"total"`
}

var (
	hundred = decimal.NewFromInt(100)
	twelve  = decimal.NewFromInt(12)
)

// growthScale is the number of decimal places kept on rates and growth
// factors between steps.
const growthScale = 16

// Project computes the maturity outcome of s. Deposits treat Amount as a lump
// sum; savings treat MonthlyPayment as an installment paid at the start of
// each month. Compound subscriptions compound monthly.
func Project(s models.Subscription, t models.ProductType) Projection {
	n := s.TermMonths
	if n <= 0 {
		return Projection{Principal: decimal.Zero, Interest: decimal.Zero, Total: decimal.Zero}
	}
	monthly := s.Rate.Div(hundred).Div(twelve).Round(growthScale)

	var principal, interest decimal.Decimal
	if t == models.ProductTypeSavings {
		pay := decimal.NewFromInt(s.MonthlyPayment)
		principal = pay.Mul(decimal.NewFromInt(int64(n)))
		interest = installmentInterest(pay, monthly, n, s.RateType)
	} else {
		principal = decimal.NewFromInt(s.Amount)
		interest = lumpSumInterest(principal, monthly, n, s.RateType)
	}

	interest = interest.Round(0)
	return Projection{
		Principal: principal,
		Interest:  interest,
		Total:     principal.Add(interest),
	}
}

func lumpSumInterest(p, monthly decimal.Decimal, n int, rt models.RateType) decimal.Decimal {
	if rt != models.RateTypeCompound {
		return p.Mul(monthly).Mul(decimal.NewFromInt(int64(n)))
	}
	return p.Mul(growth(monthly, n).Sub(decimal.NewFromInt(1)))
}

// installmentInterest sums the interest earned by each payment; the k-th
// payment from the end is held for k months.
func installmentInterest(pay, monthly decimal.Decimal, n int, rt models.RateType) decimal.Decimal {
	if rt != models.RateTypeCompound {
		months := int64(n) * int64(n+1) / 2
		return pay.Mul(monthly).Mul(decimal.NewFromInt(months))
	}
	one := decimal.NewFromInt(1)
	sum := decimal.Zero
	g := one
	factor := one.Add(monthly)
	for k := 1; k <= n; k++ {
		g = g.Mul(factor).Round(growthScale)
		sum = sum.Add(pay.Mul(g.Sub(one)))
	}
	return sum
}

func growth(monthly decimal.Decimal, n int) decimal.Decimal {
	g := decimal.NewFromInt(1)
	factor := g.Add(monthly)
	for i := 0; i < n; i++ {
		g = g.Mul(factor).Round(growthScale)
	}
	return g
}
