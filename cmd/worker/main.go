package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"piggybank/internal/amqp"
	"piggybank/internal/config"
	"piggybank/internal/db"
	"piggybank/internal/log"
	"piggybank/internal/services"
	"piggybank/internal/store"
	"piggybank/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "piggybank-worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
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
		Component: log.ComponentWorker,
		JSON:      cfg.IsProduction(),
	})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close()

	userStore := store.NewUserStore(database)
	allowances := store.NewAllowanceStore(database)
	ledger := services.NewLedgerService(
		db.NewTxRunner(database),
		store.NewBankStore(database),
		store.NewDepositStore(database),
		store.NewExpenseStore(database),
		allowances,
		userStore,
		// The worker has no websocket clients; updates are dropped.
		websocket.NewHub(),
		logger,
	)
	scheduler := services.NewAllowanceScheduler(allowances, ledger, logger)

	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled, paying allowances on a local timer", "interval", cfg.AllowanceInterval.String())
		runLocal(ctx, scheduler, cfg.AllowanceInterval, logger)
		return nil
	}

	handler := func(ctx context.Context, msg *amqp.AllowanceRunMessage) error {
		result, err := scheduler.PayAllowances(ctx, msg.ScheduledFor)
		if err != nil {
			return err
		}
		logger.Info("allowance run finished",
			"scheduled_for", msg.ScheduledFor.Format(time.DateOnly),
			"checked", result.Checked, "paid", result.Paid, "failed", result.Failed)
		return nil
	}

	consume(ctx, cfg, handler, logger)
	logger.Info("worker stopped", log.FieldOperation, log.OpShutdown)
	return nil
}

// consume keeps a consumer attached to the broker until ctx ends,
// reconnecting with exponential backoff when the connection drops.
func consume(ctx context.Context, cfg config.Config, handler amqp.RunHandler, logger *log.Logger) {
	attempt := 0
	for ctx.Err() == nil {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err == nil {
			attempt = 0
			logger.Info("consuming allowance runs", "queue", cfg.AMQPQueue)
			err = client.ConsumeAllowanceRuns(ctx, handler)
			_ = client.Close()
		}
		if ctx.Err() != nil {
			return
		}
		if err != nil && !amqp.IsConnectionError(err) {
			logger.Error("consumer stopped", log.FieldError, err)
		}

		attempt++
		wait := amqp.ExponentialBackoff(attempt)
		logger.Warn("reconnecting to broker", log.FieldError, err, "attempt", attempt, "wait", wait.String())
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runLocal pays allowances once on start and then every interval, or at
// each UTC midnight when no interval is configured.
func runLocal(ctx context.Context, scheduler *services.AllowanceScheduler, interval time.Duration, logger *log.Logger) {
	payout := func() {
		result, err := scheduler.PayAllowances(ctx, time.Now().UTC())
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Error("allowance run failed", log.FieldError, err)
			}
			return
		}
		logger.Info("allowance run finished", "checked", result.Checked, "paid", result.Paid, "failed", result.Failed)
	}

	payout()
	for {
		wait := interval
		if wait <= 0 {
			wait = time.Until(services.NextRun(time.Now()))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			payout()
		}
	}
}
