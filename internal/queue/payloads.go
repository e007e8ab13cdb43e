package queue

import "context"

// StatsRequest asks the worker to recompute a collector's stats.
type StatsRequest struct {
	UserID          string `json:"user_id"`
	EthereumAddress string `json:"ethereum_address"`
}

// StatsPublisher enqueues stats computations. Used by the user lifecycle hooks.
type StatsPublisher interface {
	PublishStatsRequest(ctx context.Context, req StatsRequest) error
}

// StatsConsumer delivers stats requests to handler until ctx is done.
type StatsConsumer interface {
	ConsumeStatsRequests(ctx context.Context, handler func(context.Context, StatsRequest) error) error
}
