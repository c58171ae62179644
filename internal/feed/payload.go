package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// envelope is one page of a provider response.
type envelope struct {
	Result struct {
		ErrCode    string            `json:"err_cd"`
		ErrMsg     string            `json:"err_msg"`
		TotalCount flexInt           `json:"total_count"`
		MaxPageNo  flexInt           `json:"max_page_no"`
		NowPageNo  flexInt           `json:"now_page_no"`
		BaseList   []json.RawMessage `json:"baseList"`
		OptionList []json.RawMessage `json:"optionList"`
	} `json:"result"`
}

// Payload is the merged base and option lists of every fetched page. Rows are
// kept raw so each one can fail decoding on its own.
type Payload struct {
	Base    []json.RawMessage
	Options []json.RawMessage
}

type savingsBaseRow struct {
	ProductCode string  `json:"fin_prdt_cd"`
	CompanyName string  `json:"kor_co_nm"`
	ProductName string  `json:"fin_prdt_nm"`
	EtcNote     string  `json:"etc_note"`
	JoinDeny    flexInt `json:"join_deny"`
	JoinMember  string  `json:"join_member"`
	JoinWay     string  `json:"join_way"`
	SpclCnd     string  `json:"spcl_cnd"`
}

type savingsOptionRow struct {
	ProductCode  string   `json:"fin_prdt_cd"`
	RateTypeName string   `json:"intr_rate_type_nm"`
	SaveTrm      flexInt  `json:"save_trm"`
	IntrRate     flexRate `json:"intr_rate"`
	IntrRateMax  flexRate `json:"intr_rate2"`
}

type loanBaseRow struct {
	ProductCode  string `json:"fin_prdt_cd"`
	CompanyName  string `json:"kor_co_nm"`
	ProductName  string `json:"fin_prdt_nm"`
	JoinWay      string `json:"join_way"`
	LoanInciExpn string `json:"loan_inci_expn"`
	ErlyRpayFee  string `json:"erly_rpay_fee"`
	DlyRate      string `json:"dly_rate"`
	LoanLmt      string `json:"loan_lmt"`
}

type loanOptionRow struct {
	ProductCode  string   `json:"fin_prdt_cd"`
	RpayTypeName string   `json:"rpay_type_nm"`
	LendRateType string   `json:"lend_rate_type_nm"`
	LendRateMin  flexRate `json:"lend_rate_min"`
	LendRateMax  flexRate `json:"lend_rate_max"`
	LendRateAvg  flexRate `json:"lend_rate_avg"`
}

// flexInt accepts 12, "12", "", and null. Missing values decode to 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		unq, err := strconv.Unquote(s)
		if err != nil {
			return fmt.Errorf("flexInt: %w", err)
		}
		s = strings.TrimSpace(unq)
	}
	if s == "" {
		*f = 0
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*f = flexInt(n)
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v != math.Trunc(v) {
		return fmt.Errorf("flexInt: cannot use %s as integer", s)
	}
	// float64(math.MaxInt) rounds up to 2^63
	if v < math.MinInt || v >= -float64(math.MinInt) {
		return fmt.Errorf("flexInt: %s out of range", s)
	}
	*f = flexInt(v)
	return nil
}

// flexRate is a nullable decimal that also treats "" as null.
type flexRate decimal.NullDecimal

func (f *flexRate) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" || s == `""` {
		*f = flexRate{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("flexRate: %w", err)
	}
	*f = flexRate{Decimal: d, Valid: true}
	return nil
}

func (f flexRate) orZero() decimal.Decimal {
	if !f.Valid {
		return decimal.Zero
	}
	return f.Decimal
}

func (f flexRate) nullable() decimal.NullDecimal {
	return decimal.NullDecimal(f)
}
