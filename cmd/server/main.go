package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finagent-go/internal/ai"
	"finagent-go/internal/auth"
	"finagent-go/internal/board"
	"finagent-go/internal/catalog"
	"finagent-go/internal/config"
	"finagent-go/internal/database"
	"finagent-go/internal/feed"
	httpserver "finagent-go/internal/http"
	"finagent-go/internal/ledger"
	"finagent-go/internal/logging"
	"finagent-go/internal/netx"
	"finagent-go/internal/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	logger := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Prefix: "finagent"})
	logger.Info("starting", "config", cfg)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
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
	var cache catalog.Cache
	if cfg.RedisURL != "" {
		rc, err := catalog.NewRedisCacheFromURL(ctx, cfg.RedisURL, cfg.CatalogCacheTTL, logger)
		if err != nil {
			logger.Warn("catalog cache disabled", "err", err)
		} else {
			defer rc.Close()
			cache = rc
		}
	}
	cat := catalog.New(store, cache, logger)

	feedHTTP := netx.NewHTTPClient(netx.ClientOptions{Timeout: cfg.FeedTimeout, PreferIPv4: cfg.PreferIPv4})
	llmHTTP := netx.NewHTTPClient(netx.ClientOptions{Timeout: cfg.RequestTimeout(), PreferIPv4: cfg.PreferIPv4})

	fetcher := feed.NewClient(feedHTTP, cfg.FinlifeBaseURL, cfg.FinlifeKey, cfg.FinlifeGroups)
	completer := ai.NewOpenAIClient(llmHTTP, cfg.OpenAIBaseURL, cfg.OpenAIKey, cfg.OpenAILlmModel)
	recommender, err := ai.NewRecommender(completer, cat, logger)
	if err != nil {
		return err
	}

	r := httpserver.NewServer(cfg, httpserver.Deps{
		Catalog:     cat,
		Reconciler:  feed.NewReconciler(fetcher, store, cat, logger),
		Ledger:      ledger.NewService(db, store, logger),
		Recommender: recommender,
		Auth:        auth.NewService(db, auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiry)),
		Users:       users.NewService(db),
		Board:       board.NewStore(db),
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
