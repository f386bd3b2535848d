// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stayflow-messaging/internal/common/config"
	"stayflow-messaging/internal/common/database"
	"stayflow-messaging/internal/common/logger"
	"stayflow-messaging/internal/dispatch"
	"stayflow-messaging/internal/mailer"
	"stayflow-messaging/internal/server"
	"stayflow-messaging/internal/store"
	"stayflow-messaging/internal/trigger"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting messaging server...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild the logger with the configured level and format.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log = logger.NewZapAdapter(zapLog)

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Redis with retry (optional, sweep lock only) ---
	var redis *database.RedisClient
	if cfg.Database.Redis.Enabled {
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			// The sweep lock is best effort; the idempotency ledger already
			// prevents duplicate sends.
			zapLog.Warn("redis unavailable, sweeps run without the advisory lock", zap.Error(err))
			redis = nil
		} else {
			defer redis.Close()
			zapLog.Info("Redis connected successfully")
		}
	}

	// --- Init SES mailer ---
	sesMailer, err := mailer.NewSESMailer(ctx, cfg.Email)
	if err != nil {
		zapLog.Fatal("ses mailer failed", zap.Error(err))
	}
	zapLog.Info("SES mailer initialized")

	// --- Wire stores and services ---
	bookings := store.NewBookingStore(pg.DB)
	templates := store.NewTemplateStore(pg.DB)
	triggers := store.NewTriggerStore(pg.DB)
	messages := store.NewSentMessageStore(pg.DB)
	ledger := store.NewIdempotencyStore(pg.DB)

	dispatcher := dispatch.NewDispatcher(bookings, templates, messages, ledger, sesMailer, log)
	evaluator := trigger.NewEvaluator(triggers, bookings, dispatcher, log)

	var locker trigger.Locker
	if redis != nil {
		locker = trigger.NewRedisSweepLock(redis, time.Duration(cfg.Messaging.SweepLockTTLMins)*time.Minute, log)
	}
	sweeper := trigger.NewSweeper(
		triggers, bookings, ledger, dispatcher, locker,
		trigger.SweeperConfig{
			LookbackDays:  cfg.Messaging.SweepLookbackDays,
			LookaheadDays: cfg.Messaging.SweepLookaheadDays,
			Tolerance:     time.Duration(cfg.Messaging.SweepToleranceMins) * time.Minute,
		},
		log,
	)

	srv := server.New(sweeper, evaluator, dispatcher, pg, cfg.Server.CronSecret, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // sweeps can take a while
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Messaging server stopped gracefully")
}
