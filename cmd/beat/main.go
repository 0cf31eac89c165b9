package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"piggybank/internal/amqp"
	"piggybank/internal/config"
	"piggybank/internal/log"
	"piggybank/internal/services"
)

func main() {
	once := flag.Bool("now", false, "publish a run for today and exit")
	flag.Parse()

	if err := run(*once); err != nil {
		fmt.Fprintf(os.Stderr, "piggybank-beat: %v\n", err)
		os.Exit(1)
	}
}

func run(once bool) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.AMQPURL == "" {
		return errors.New("AMQP_URL is required")
	}

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: log.ComponentScheduler,
		JSON:      cfg.IsProduction(),
	})
	log.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if once {
		return publish(ctx, cfg, time.Now().UTC(), logger)
	}

	for {
		next := services.NextRun(time.Now())
		logger.Info("next allowance run scheduled", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("beat stopped", log.FieldOperation, log.OpShutdown)
			return nil
		case <-timer.C:
		}

		if err := publishWithRetry(ctx, cfg, next, logger); err != nil {
			logger.Error("allowance run not published", log.FieldError, err, "scheduled_for", next.Format(time.DateOnly))
		}
	}
}

// publish opens a short-lived connection for a single message.
func publish(ctx context.Context, cfg config.Config, scheduledFor time.Time, logger *log.Logger) error {
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.PublishAllowanceRun(ctx, scheduledFor)
}

const maxPublishAttempts = 5

func publishWithRetry(ctx context.Context, cfg config.Config, scheduledFor time.Time, logger *log.Logger) error {
	var err error
	for attempt := 1; attempt <= maxPublishAttempts; attempt++ {
		if err = publish(ctx, cfg, scheduledFor, logger); err == nil {
			return nil
		}
		if !amqp.IsConnectionError(err) {
			return err
		}
		wait := amqp.ExponentialBackoff(attempt)
		logger.Warn("publish failed, retrying", log.FieldError, err, "attempt", attempt, "wait", wait.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return err
}
