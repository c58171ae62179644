package feed

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"finagent-go/internal/apperr"
	"finagent-go/internal/catalog"
)

// Invalidator drops cached catalog listings after a sync.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Result struct {
	Kind            Kind          `json:"kind"`
	Products        int           `json:"products"`
	Options         int           `json:"options"`
	SkippedProducts int           `json:"skipped_products"`
	SkippedOptions  int           `json:"skipped_options"`
	Elapsed         time.Duration `json:"elapsed_ns"`
}

// Reconciler loads a provider feed into the catalog. Runs are idempotent:
// replaying the same payload only refreshes values.
type Reconciler struct {
	fetcher Fetcher
	store   *catalog.Store
	cache   Invalidator
	logger  *slog.Logger
	flight  singleflight.Group
}

func NewReconciler(fetcher Fetcher, store *catalog.Store, cache Invalidator, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		fetcher: fetcher,
		store:   store,
		cache:   cache,
		logger:  logger.With("component", "feed"),
	}
}

// Sync runs one kind. Concurrent calls for the same kind share a single run
// and its result.
func (r *Reconciler) Sync(ctx context.Context, kind Kind) (Result, error) {
	v, err, shared := r.flight.Do(string(kind), func() (any, error) {
		return r.run(ctx, kind)
	})
	if shared {
		r.logger.Debug("joined in-flight sync", "kind", kind)
	}
	res, _ := v.(Result)
	return res, err
}

// SyncAll runs every kind in parallel. Kinds write disjoint partitions, so
// one failing kind does not stop the others.
func (r *Reconciler) SyncAll(ctx context.Context) ([]Result, error) {
	kinds := Kinds()
	results := make([]Result, len(kinds))
	errs := make([]error, len(kinds))

	var g errgroup.Group
	for i, k := range kinds {
		g.Go(func() error {
			results[i], errs[i] = r.Sync(ctx, k)
			return nil
		})
	}
	_ = g.Wait()
	return results, errors.Join(errs...)
}

func (r *Reconciler) run(ctx context.Context, kind Kind) (Result, error) {
	start := time.Now()
	log := r.logger.With("kind", kind)
	res := Result{Kind: kind}

	sink, err := newSink(kind, r.store)
	if err != nil {
		return res, err
	}

	payload, err := r.fetcher.Fetch(ctx, kind)
	if err != nil {
		log.Error("feed fetch failed", "err", err)
		return res, err
	}

	// Every product row is written before the first option row.
	for i, raw := range payload.Base {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := sink.base(ctx, raw); err != nil {
			res.SkippedProducts++
			log.Warn("skipping product row", "index", i, "err", err)
			continue
		}
		res.Products++
	}

	for i, raw := range payload.Options {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := sink.option(ctx, raw); err != nil {
			res.SkippedOptions++
			if errors.Is(err, apperr.ErrOrphanOption) {
				log.Info("skipping orphan option", "index", i, "err", err)
			} else {
				log.Warn("skipping option row", "index", i, "err", err)
			}
			continue
		}
		res.Options++
	}

	if r.cache != nil {
		r.cache.Invalidate(ctx)
	}

	res.Elapsed = time.Since(start)
	log.Info("feed synced",
		"products", res.Products,
		"options", res.Options,
		"skipped_products", res.SkippedProducts,
		"skipped_options", res.SkippedOptions,
		"elapsed", res.Elapsed,
	)
	return res, nil
}
