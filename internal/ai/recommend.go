package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xeipuuv/gojsonschema"

	"finagent-go/internal/apperr"
	"finagent-go/internal/catalog"
	"finagent-go/internal/models"
)

//go:embed prompt.txt
var promptText string

//go:embed recommendation.schema.json
var recommendationSchema string

// SavingsLister is the catalog read the recommender needs.
type SavingsLister interface {
	ListSavings(ctx context.Context, f catalog.Filter) ([]models.SavingsProduct, error)
}

// Profile is what the customer tells us about themselves. Nil fields are
// filled from the stored user.
type Profile struct {
	Age     *int   `json:"age"`
	Salary  *int64 `json:"salary"`
	Money   *int64 `json:"money"`
	Purpose string `json:"purpose"`
}

func (p Profile) WithDefaults(u *models.User) Profile {
	if u == nil {
		return p
	}
	if p.Age == nil {
		p.Age = u.Age
	}
	if p.Salary == nil {
		p.Salary = u.Salary
	}
	if p.Money == nil {
		p.Money = u.Money
	}
	return p
}

type Analysis struct {
	Purpose  string `json:"purpose"`
	Keywords string `json:"keywords"`
}

type RecommendedProduct struct {
	ProductCode string             `json:"product_code"`
	ProductName string             `json:"product_name"`
	CompanyName string             `json:"company_name"`
	ProductType models.ProductType `json:"product_type"`
	// MaxRate and SaveTerm are the best rate the product offers and the
	// term it is offered for; null and 0 when the product has no rates.
	MaxRate  decimal.NullDecimal `json:"max_rate"`
	SaveTerm int                 `json:"save_trm"`
	Reason   string              `json:"reason"`
}

type Recommendation struct {
	Analysis Analysis             `json:"analysis"`
	Products []RecommendedProduct `json:"products"`
}

// Fallback is returned whenever a recommendation cannot be produced.
func Fallback() *Recommendation {
	return &Recommendation{
		Analysis: Analysis{Purpose: "analysis failed", Keywords: "none"},
		Products: []RecommendedProduct{},
	}
}

type Recommender struct {
	completer Completer
	catalog   SavingsLister
	schema    *gojsonschema.Schema
	logger    *slog.Logger
}

func NewRecommender(completer Completer, lister SavingsLister, logger *slog.Logger) (*Recommender, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(recommendationSchema))
	if err != nil {
		return nil, fmt.Errorf("compile recommendation schema: %w", err)
	}
	return &Recommender{
		completer: completer,
		catalog:   lister,
		schema:    schema,
		logger:    logger.With("component", "recommender"),
	}, nil
}

// Recommend asks the completion service to pick products for p. On any
// failure it returns Fallback() together with the error, so callers always
// have a body to send.
func (r *Recommender) Recommend(ctx context.Context, p Profile) (*Recommendation, error) {
	if strings.TrimSpace(p.Purpose) == "" {
		return Fallback(), fmt.Errorf("%w: purpose is required", apperr.ErrInvalidInput)
	}

	products, err := r.catalog.ListSavings(ctx, catalog.Filter{})
	if err != nil {
		return Fallback(), fmt.Errorf("list catalog: %w", err)
	}

	reply, err := r.completer.Complete(ctx, promptText, userMessage(p, products))
	if err != nil {
		r.logger.Warn("completion failed", "err", err)
		return Fallback(), err
	}

	rec, err := r.parse(reply, products)
	if err != nil {
		r.logger.Warn("unusable recommendation reply", "err", err, "reply_len", len(reply))
		return Fallback(), err
	}
	return rec, nil
}

func (r *Recommender) parse(reply string, products []models.SavingsProduct) (*Recommendation, error) {
	raw, ok := ExtractJSONObject(reply)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in reply", apperr.ErrRecommendationParse)
	}

	res, err := r.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRecommendationParse, err)
	}
	if !res.Valid() {
		d := []string{}
		for _, e := range res.Errors() {
			d = append(d, e.String())
		}
		return nil, fmt.Errorf("%w: %s", apperr.ErrRecommendationParse, strings.Join(d, "; "))
	}

	var rec Recommendation
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrRecommendationParse, err)
	}

	byCode := make(map[string]models.SavingsProduct, len(products))
	for _, p := range products {
		byCode[p.ProductCode] = p
	}
	kept := make([]RecommendedProduct, 0, len(rec.Products))
	for _, rp := range rec.Products {
		p, ok := byCode[strings.TrimSpace(rp.ProductCode)]
		if !ok {
			r.logger.Debug("dropping unknown product code", "product_code", rp.ProductCode)
			continue
		}
		item := RecommendedProduct{
			ProductCode: p.ProductCode,
			ProductName: p.ProductName,
			CompanyName: p.CompanyName,
			ProductType: p.ProductType,
			Reason:      rp.Reason,
		}
		if best, ok := topRate(bestRates(p.Options)); ok {
			item.MaxRate = decimal.NewNullDecimal(best.rate)
			item.SaveTerm = best.term
		}
		kept = append(kept, item)
	}
	rec.Products = kept
	return &rec, nil
}

func userMessage(p Profile, products []models.SavingsProduct) string {
	var b strings.Builder
	b.WriteString("Customer profile:\n")
	fmt.Fprintf(&b, "- age: %s\n", orUnknown(p.Age))
	fmt.Fprintf(&b, "- yearly salary (KRW): %s\n", orUnknown(p.Salary))
	fmt.Fprintf(&b, "- current assets (KRW): %s\n", orUnknown(p.Money))
	fmt.Fprintf(&b, "- purpose: %s\n", strings.TrimSpace(p.Purpose))
	b.WriteString("\nCatalog:\n")
	for _, prod := range products {
		fmt.Fprintf(&b, "[%s] %s / %s (%s): ", prod.ProductCode, prod.CompanyName, prod.ProductName, prod.ProductType)
		rates := bestRates(prod.Options)
		if len(rates) == 0 {
			b.WriteString("no rate information")
		}
		for i, tr := range rates {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%dm %s%%", tr.term, tr.rate.StringFixed(2))
		}
		if sc := strings.TrimSpace(prod.SpecialCondition); sc != "" {
			b.WriteString(" | ")
			b.WriteString(strings.Join(strings.Fields(sc), " "))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

type termRate struct {
	term int
	rate decimal.Decimal
}

// bestRates returns the highest offered rate for each term, ordered by term.
// The preferential rate wins over the base rate when present.
func bestRates(opts []models.SavingsOption) []termRate {
	best := map[int]decimal.Decimal{}
	for _, o := range opts {
		var rate decimal.Decimal
		switch {
		case o.MaxRate.Valid:
			rate = o.MaxRate.Decimal
		case o.BaseRate.Valid:
			rate = o.BaseRate.Decimal
		default:
			continue
		}
		if cur, ok := best[o.TermMonths]; !ok || rate.GreaterThan(cur) {
			best[o.TermMonths] = rate
		}
	}

	out := make([]termRate, 0, len(best))
	for term, rate := range best {
		out = append(out, termRate{term: term, rate: rate})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].term < out[j].term })
	return out
}

// topRate picks the highest rate, the shortest term on ties.
func topRate(rates []termRate) (termRate, bool) {
	if len(rates) == 0 {
		return termRate{}, false
	}
	top := rates[0]
	for _, tr := range rates[1:] {
		if tr.rate.GreaterThan(top.rate) {
			top = tr
		}
	}
	return top, true
}

func orUnknown[T int | int64](v *T) string {
	if v == nil {
		return "unknown"
	}
	return strconv.FormatInt(int64(*v), 10)
}
