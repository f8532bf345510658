package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sakupos/backend/internal/config"
	"sakupos/backend/internal/httpapi"
	"sakupos/backend/internal/printer"
	"sakupos/backend/internal/realtime"
	"sakupos/backend/internal/router"
	"sakupos/backend/internal/service"
	"sakupos/backend/internal/session"
	"sakupos/backend/internal/store"
	"sakupos/backend/internal/store/memory"
	pgstore "sakupos/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	// The subscription goroutine is owned by this context and released in
	// the shutdown sequence, same as the printer manager's poll.
	feedCtx, feedCancel := context.WithCancel(context.Background())
	defer feedCancel()

	var feed realtime.Publisher = realtime.NoopPublisher{}
	if cfg.RedisAddr != "" {
		redisFeed := realtime.NewRedisFeed(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err := redisFeed.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, change feed disabled")
		} else {
			feed = redisFeed
			closers = append(closers, redisFeed.Close)
			logger.Info().Str("addr", cfg.RedisAddr).Msg("change feed: redis")

			events, err := redisFeed.Subscribe(feedCtx)
			if err != nil {
				logger.Warn().Err(err).Msg("change feed subscribe failed")
			} else {
				go watchRemoteChanges(events, logger)
			}
		}
	}

	local := memory.NewSeeded()
	var remote store.Store
	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL, feed, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres unavailable and DATABASE_URL is set, refusing to start")
		}
		remote = pg
		closers = append(closers, pg.Close)
		logger.Info().Msg("remote store: postgres")
	} else {
		logger.Info().Msg("remote store: none, local only")
	}

	sessions := session.NewManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute)
	seedOperators(sessions, cfg, logger)

	dataSource := router.New(local, remote, sessions, logger)

	transport := printer.NewNetTransport(cfg.PrinterAddr, 3*time.Second)
	manager := printer.NewManager(transport, time.Duration(cfg.PrinterPollSeconds)*time.Second, logger)
	defer manager.Close()

	formatter := printer.NewFormatter(printer.StoreInfo{
		Name:        cfg.StoreName,
		AddressLine: cfg.StoreAddress,
		Footer:      cfg.ReceiptFooter,
	})

	svc := service.New(dataSource, manager, formatter, logger)
	api := httpapi.New(svc, sessions, cfg.AllowedOrigin, logger)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.Address()).Msg("POS backend listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
	}

	feedCancel()
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error().Err(err).Msg("close error")
		}
	}

	logger.Info().Msg("server stopped")
}

// watchRemoteChanges logs remote change events until the feed's channel is
// closed by subscription cancellation.
func watchRemoteChanges(events <-chan realtime.Event, logger zerolog.Logger) {
	for event := range events {
		logger.Info().
			Str("entity", event.Entity).
			Str("action", event.Action).
			Str("id", event.ID).
			Msg("remote change")
	}
}

// seedOperators registers the device accounts from the environment. Accounts
// without a configured password are skipped so no weak default sneaks in.
func seedOperators(sessions *session.Manager, cfg config.Config, logger zerolog.Logger) {
	seed := []struct {
		username string
		password string
		role     string
	}{
		{"kasir", cfg.CashierPassword, "cashier"},
		{"owner", cfg.OwnerPassword, "owner"},
	}
	for _, account := range seed {
		if account.password == "" {
			continue
		}
		if err := sessions.Register(account.username, account.password, account.role); err != nil {
			logger.Warn().Err(err).Str("username", account.username).Msg("seed account failed")
		}
	}
}
