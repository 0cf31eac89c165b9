package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"piggybank/internal/auth"
	"piggybank/internal/config"
	"piggybank/internal/db"
	"piggybank/internal/handlers"
	"piggybank/internal/log"
	"piggybank/internal/services"
	"piggybank/internal/store"
	"piggybank/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "piggybank: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentApp,
		JSON:      cfg.IsProduction(),
	})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	migrator := db.NewMigrator(cfg.DatabaseURL)
	if err := migrator.Up(); err != nil {
		return err
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	userStore := store.NewUserStore(database)
	banks := store.NewBankStore(database)
	deposits := store.NewDepositStore(database)
	expenses := store.NewExpenseStore(database)
	allowances := store.NewAllowanceStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()

	ledger := services.NewLedgerService(txRunner, banks, deposits, expenses, allowances, userStore, hub, logger)
	users := services.NewUserService(txRunner, userStore, logger)
	authn := auth.NewAuthenticator(userStore, logger)
	sessions := auth.NewCookieStore(cfg.SessionSecret, cfg.SessionCookieName, cfg.SessionTTL, cfg.SecureCookie)
	bootstrap := services.NewBootstrapper(migrator, users, ledger, cfg.AdminPassword, logger)

	handler := handlers.New(cfg, ledger, users, sessions, authn, bootstrap, hub, logger)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("piggybank API listening", log.FieldOperation, log.OpStartup, "addr", server.Addr, "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.RunScheduler {
		scheduler := services.NewAllowanceScheduler(allowances, ledger, logger)
		group.Go(func() error {
			return runScheduler(groupCtx, scheduler, cfg.AllowanceInterval, logger)
		})
	}

	return group.Wait()
}

// runScheduler pays allowances in-process. With no interval it wakes at
// every UTC midnight; otherwise it ticks at the given interval.
func runScheduler(ctx context.Context, scheduler *services.AllowanceScheduler, interval time.Duration, logger *log.Logger) error {
	logger = logger.WithComponent(log.ComponentScheduler)
	logger.Info("in-process allowance scheduler started", "interval", interval.String())

	payout := func(now time.Time) {
		result, err := scheduler.PayAllowances(ctx, now)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("allowance run failed", log.FieldError, err)
			}
			return
		}
		logger.Info("allowance run finished", "checked", result.Checked, "paid", result.Paid, "failed", result.Failed)
	}

	payout(time.Now().UTC())

	for {
		wait := interval
		if wait <= 0 {
			wait = time.Until(services.NextRun(time.Now()))
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
			payout(time.Now().UTC())
		}
	}
}
