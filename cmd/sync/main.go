// Command sync pulls the provider feeds into the catalog once and exits.
//
//	sync -kind deposit
//	sync -kind all
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"finagent-go/internal/catalog"
	"finagent-go/internal/config"
	"finagent-go/internal/database"
	"finagent-go/internal/feed"
	"finagent-go/internal/logging"
	"finagent-go/internal/netx"
)

func main() {
	kind := flag.String("kind", "all", "feed to sync: deposit, saving, loan or all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Prefix: "sync"})

	if err := run(cfg, logger, *kind); err != nil {
		logger.Error("sync failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, kind string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	store := catalog.NewStore(db)

	// listings cached by running servers must see the new rows
	var cache catalog.Cache
	if cfg.RedisURL != "" {
		rc, err := catalog.NewRedisCacheFromURL(ctx, cfg.RedisURL, cfg.CatalogCacheTTL, logger)
		if err != nil {
			logger.Warn("cache not reachable, skipping invalidation", "err", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	client := netx.NewHTTPClient(netx.ClientOptions{Timeout: cfg.FeedTimeout, PreferIPv4: cfg.PreferIPv4})
	rec := feed.NewReconciler(
		feed.NewClient(client, cfg.FinlifeBaseURL, cfg.FinlifeKey, cfg.FinlifeGroups),
		store,
		catalog.New(store, cache, logger),
		logger,
	)

	if kind == "all" {
		_, err := rec.SyncAll(ctx)
		return err
	}
	k, err := feed.ParseKind(kind)
	if err != nil {
		return err
	}
	_, err = rec.Sync(ctx, k)
	return err
}
