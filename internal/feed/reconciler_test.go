package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finagent-go/internal/apperr"
	"finagent-go/internal/catalog"
	"finagent-go/internal/database/dbtest"
	"finagent-go/internal/models"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeFetcher struct {
	payloads map[Kind]*Payload
	errs     map[Kind]error
	calls    atomic.Int32
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, kind Kind) (*Payload, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
		<-f.release
	}
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	if p, ok := f.payloads[kind]; ok {
		return p, nil
	}
	return &Payload{}, nil
}

type countingInvalidator struct{ n atomic.Int32 }

func (c *countingInvalidator) Invalidate(context.Context) { c.n.Add(1) }

func loadFixture(t *testing.T, name string) *Payload {
	t.Helper()
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(b, &env))
	return &Payload{Base: env.Result.BaseList, Options: env.Result.OptionList}
}

func TestReconciler_Deposit(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(dbtest.New(t))
	inv := &countingInvalidator{}
	fetcher := &fakeFetcher{payloads: map[Kind]*Payload{KindDeposit: loadFixture(t, "deposit.json")}}
	r := NewReconciler(fetcher, store, inv, discard)

	res, err := r.Sync(ctx, KindDeposit)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Products)
	assert.Equal(t, 1, res.SkippedProducts)
	assert.Equal(t, 3, res.Options)
	assert.Equal(t, 1, res.SkippedOptions)
	assert.EqualValues(t, 1, inv.n.Load())

	p, err := store.GetSavingsByCode(ctx, "WR0001B")
	require.NoError(t, err)
	assert.Equal(t, models.ProductTypeDeposit, p.ProductType)
	assert.Equal(t, 1, p.JoinDeny)
	require.Len(t, p.Options, 2)
	assert.Equal(t, 6, p.Options[0].TermMonths)
	assert.Equal(t, 12, p.Options[1].TermMonths)
	assert.True(t, p.Options[1].MaxRate.Decimal.Equal(decimal.RequireFromString("3.45")))

	hana, err := store.GetSavingsByCode(ctx, "10511008000996000")
	require.NoError(t, err)
	assert.Equal(t, 0, hana.JoinDeny)
	require.Len(t, hana.Options, 1)
	assert.True(t, hana.Options[0].BaseRate.Decimal.IsZero())

	_, err = store.GetSavingsByCode(ctx, "BROKEN")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestReconciler_PaddedOptionCodes(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(dbtest.New(t))
	fetcher := &fakeFetcher{payloads: map[Kind]*Payload{
		KindSaving: {
			Base:    []json.RawMessage{json.RawMessage(`{"fin_prdt_cd":"SV01","fin_prdt_nm":"saver"}`)},
			Options: []json.RawMessage{json.RawMessage(`{"fin_prdt_cd":" SV01 ","save_trm":"12","intr_rate_type_nm":"단리","intr_rate":3.1,"intr_rate2":3.5}`)},
		},
		KindLoan: {
			Base:    []json.RawMessage{json.RawMessage(`{"fin_prdt_cd":"LN01"}`)},
			Options: []json.RawMessage{json.RawMessage(`{"fin_prdt_cd":"LN01\t","rpay_type_nm":"분할상환","lend_rate_type_nm":"고정금리","lend_rate_min":3.1,"lend_rate_max":4.2}`)},
		},
	}}
	r := NewReconciler(fetcher, store, nil, discard)

	res, err := r.Sync(ctx, KindSaving)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Options)
	assert.Zero(t, res.SkippedOptions)

	res, err = r.Sync(ctx, KindLoan)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Options)
	assert.Zero(t, res.SkippedOptions)

	p, err := store.GetSavingsByCode(ctx, "SV01")
	require.NoError(t, err)
	require.Len(t, p.Options, 1)
	assert.Equal(t, 12, p.Options[0].TermMonths)
}

func TestReconciler_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(dbtest.New(t))
	fetcher := &fakeFetcher{payloads: map[Kind]*Payload{
		KindDeposit: loadFixture(t, "deposit.json"),
		KindLoan:    loadFixture(t, "loan.json"),
	}}
	r := NewReconciler(fetcher, store, nil, discard)

	for i := 0; i < 2; i++ {
		_, err := r.Sync(ctx, KindDeposit)
		require.NoError(t, err)
		_, err = r.Sync(ctx, KindLoan)
		require.NoError(t, err)
	}

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, catalog.Counts{SavingsProducts: 2, SavingsOptions: 3, LoanProducts: 1, LoanOptions: 3}, counts)
}

func TestReconciler_Loan(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(dbtest.New(t))
	fetcher := &fakeFetcher{payloads: map[Kind]*Payload{KindLoan: loadFixture(t, "loan.json")}}
	r := NewReconciler(fetcher, store, nil, discard)

	res, err := r.Sync(ctx, KindLoan)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Products)
	assert.Equal(t, 3, res.Options)

	p, err := store.GetLoanByCode(ctx, "KB0001R")
	require.NoError(t, err)
	assert.Equal(t, NoInfoPlaceholder, p.IncidentalCost)
	assert.Equal(t, NoInfoPlaceholder, p.OverdueRate)
	assert.Equal(t, LoanLimitPlaceholder, p.LoanLimit)
	assert.NotEqual(t, NoInfoPlaceholder, p.EarlyRepayFee)
	require.Len(t, p.Options, 3)
	assert.False(t, p.Options[0].RateAvg.Valid)
	assert.True(t, p.Options[1].RateAvg.Decimal.Equal(decimal.RequireFromString("4.12")))
}

func TestReconciler_FetchFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(dbtest.New(t))
	inv := &countingInvalidator{}
	fetcher := &fakeFetcher{errs: map[Kind]error{KindDeposit: fmt.Errorf("%w: timeout", apperr.ErrUpstreamFetch)}}
	r := NewReconciler(fetcher, store, inv, discard)

	_, err := r.Sync(ctx, KindDeposit)
	assert.ErrorIs(t, err, apperr.ErrUpstreamFetch)
	assert.Zero(t, inv.n.Load())

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, counts.SavingsProducts)
}

func TestReconciler_SyncAll_KindsIndependent(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(dbtest.New(t))
	fetcher := &fakeFetcher{
		payloads: map[Kind]*Payload{KindDeposit: loadFixture(t, "deposit.json")},
		errs:     map[Kind]error{KindLoan: fmt.Errorf("%w: status 500", apperr.ErrUpstreamFetch)},
	}
	r := NewReconciler(fetcher, store, nil, discard)

	results, err := r.SyncAll(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrUpstreamFetch)
	require.Len(t, results, 3)
	assert.Equal(t, KindDeposit, results[0].Kind)
	assert.Equal(t, 2, results[0].Products)

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts.SavingsProducts)
	assert.Zero(t, counts.LoanProducts)
}

func TestReconciler_SharesInFlightRun(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewStore(dbtest.New(t))
	fetcher := &fakeFetcher{
		payloads: map[Kind]*Payload{KindDeposit: loadFixture(t, "deposit.json")},
		started:  make(chan struct{}, 2),
		release:  make(chan struct{}),
	}
	r := NewReconciler(fetcher, store, nil, discard)

	var wg sync.WaitGroup
	results := make([]Result, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = r.Sync(ctx, KindDeposit)
	}()
	<-fetcher.started

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], _ = r.Sync(ctx, KindDeposit)
	}()
	time.Sleep(50 * time.Millisecond)
	close(fetcher.release)
	wg.Wait()

	assert.EqualValues(t, 1, fetcher.calls.Load())
	assert.Equal(t, results[0], results[1])
}
