package catalog

import (
	"context"
	"log/slog"

	"finagent-go/internal/models"
)

// Catalog serves read traffic through the listing cache and falls back to
// the store whenever the cache misses or fails.
type Catalog struct {
	*Store
	cache  Cache
	logger *slog.Logger
}

func New(store *Store, cache Cache, logger *slog.Logger) *Catalog {
	if cache == nil {
		cache = NopCache{}
	}
	return &Catalog{Store: store, cache: cache, logger: logger.With("component", "catalog")}
}

func (c *Catalog) ListSavings(ctx context.Context, f Filter) ([]models.SavingsProduct, error) {
	key := "savings:all"
	if f.Type != "" {
		key = "savings:" + string(f.Type)
	}
	return cached(ctx, c, key, func(ctx context.Context) ([]models.SavingsProduct, error) {
		return c.Store.ListSavings(ctx, f)
	})
}

func (c *Catalog) ListLoans(ctx context.Context) ([]models.LoanProduct, error) {
	return cached(ctx, c, "loans:all", c.Store.ListLoans)
}

// cached reads key from the current cache generation, loading and storing it
// on a miss. The generation is read before the store so a concurrent
// invalidation leaves the loaded value under a generation nobody reads.
func cached[T any](ctx context.Context, c *Catalog, key string, load func(context.Context) (T, error)) (T, error) {
	gen, err := c.cache.Generation(ctx)
	if err != nil {
		c.logger.Warn("cache read failed", "key", key, "err", err)
		return load(ctx)
	}

	var v T
	if ok, err := c.cache.Get(ctx, gen, key, &v); err != nil {
		c.logger.Warn("cache read failed", "key", key, "err", err)
	} else if ok {
		return v, nil
	}

	v, err = load(ctx)
	if err != nil {
		return v, err
	}
	if err := c.cache.Set(ctx, gen, key, v); err != nil {
		c.logger.Warn("cache write failed", "key", key, "err", err)
	}
	return v, nil
}

func (c *Catalog) DeleteSavingsProduct(ctx context.Context, code string) error {
	if err := c.Store.DeleteSavingsProduct(ctx, code); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

func (c *Catalog) DeleteLoanProduct(ctx context.Context, code string) error {
	if err := c.Store.DeleteLoanProduct(ctx, code); err != nil {
		return err
	}
	c.Invalidate(ctx)
	return nil
}

// Invalidate is called after a catalog write; failures are logged only since
// entries also expire on their TTL.
func (c *Catalog) Invalidate(ctx context.Context) {
	if err := c.cache.Invalidate(ctx); err != nil {
		c.logger.Warn("cache invalidation failed", "err", err)
	}
}
