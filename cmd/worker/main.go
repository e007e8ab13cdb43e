package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"gallery/internal/config"
	"gallery/internal/db"
	apperrors "gallery/internal/errors"
	"gallery/internal/logger"
	"gallery/internal/queue"
	"gallery/internal/repository"
	"gallery/internal/service"
)

// The worker recomputes collector stats for every request the user
// lifecycle enqueues.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := logger.NewSlog(logger.SlogConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	if cfg.RabbitMQ.URL == "" {
		return errors.New("RABBITMQ_URL is required by the stats worker")
	}

	gormDB, err := db.Open(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	client, err := queue.NewClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName, log)
	if err != nil {
		return err
	}
	defer client.Close()

	stats := service.NewStatsService(
		repository.NewUserRepository(gormDB),
		repository.NewStatsRepository(gormDB),
		log,
	)

	err = client.ConsumeStatsRequests(ctx, func(ctx context.Context, req queue.StatsRequest) error {
		_, err := stats.Compute(ctx, req)
		if permanent(err) {
			// Redelivery cannot succeed; acking drops the request.
			log.WarnContext(ctx, "dropping stats request",
				"user_id", req.UserID,
				"ethereum_address", req.EthereumAddress,
				"error", err,
			)
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	log.Info("stats worker consuming", "queue", cfg.RabbitMQ.QueueName)
	<-ctx.Done()
	return nil
}

func permanent(err error) bool {
	return apperrors.Is(err, apperrors.ErrUserNotFound) ||
		apperrors.Is(err, apperrors.ErrInvalidStatsRequest)
}
