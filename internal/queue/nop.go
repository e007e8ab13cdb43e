package queue

import (
	"context"
	"log/slog"
)

// LogPublisher stands in for RabbitMQ when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher builds a publisher that only logs.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// PublishStatsRequest logs req and drops it.
func (p *LogPublisher) PublishStatsRequest(ctx context.Context, req StatsRequest) error {
	p.logger.WarnContext(ctx, "no stats broker configured, dropping request",
		"user_id", req.UserID,
		"ethereum_address", req.EthereumAddress,
	)
	return nil
}
