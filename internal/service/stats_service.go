package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gallery/internal/errors"
	"gallery/internal/model"
	"gallery/internal/queue"
	"gallery/internal/repository"
)

// StatsService rebuilds collector statistics from artworks and orders.
type StatsService interface {
	Compute(ctx context.Context, req queue.StatsRequest) (*model.CollectorStats, error)
}

type statsService struct {
	users  repository.UserRepository
	stats  repository.StatsRepository
	logger *slog.Logger
}

// NewStatsService creates a new stats service.
func NewStatsService(users repository.UserRepository, stats repository.StatsRepository, logger *slog.Logger) StatsService {
	return &statsService{users: users, stats: stats, logger: logger}
}

// Compute resolves the collector named by req and stores fresh stats for it.
// The id wins over the address when both are set.
func (s *statsService) Compute(ctx context.Context, req queue.StatsRequest) (*model.CollectorStats, error) {
	user, err := s.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	owned, err := s.stats.CountOwnedArtworks(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count owned artworks: %w", err)
	}
	orders, err := s.stats.ListPlacedOrders(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list placed orders: %w", err)
	}
	fulfilled, err := s.stats.CountFulfilledOrders(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count fulfilled orders: %w", err)
	}

	spent := decimal.Zero
	for _, o := range orders {
		if o.Status == model.OrderStatusFulfilled {
			spent = spent.Add(o.Price)
		}
	}

	stats := &model.CollectorStats{
		UserID:          user.ID,
		EthereumAddress: user.EthereumAddress,
		OwnedArtworks:   owned,
		PlacedOrders:    int64(len(orders)),
		FulfilledOrders: fulfilled,
		TotalSpent:      spent,
		ComputedAt:      time.Now().UTC(),
	}
	if err := s.stats.Upsert(ctx, stats); err != nil {
		return nil, fmt.Errorf("store collector stats: %w", err)
	}

	s.logger.InfoContext(ctx, "collector stats computed",
		"user_id", user.ID,
		"owned_artworks", owned,
		"placed_orders", stats.PlacedOrders,
		"total_spent", spent.String(),
	)
	return stats, nil
}

func (s *statsService) resolve(ctx context.Context, req queue.StatsRequest) (*model.User, error) {
	if req.UserID != "" {
		id, err := uuid.Parse(req.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: user id %q: %v", errors.ErrInvalidStatsRequest, req.UserID, err)
		}
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return nil, notFound(err)
		}
		return user, nil
	}
	if req.EthereumAddress != "" {
		user, err := s.users.FindByEthereumAddress(ctx, req.EthereumAddress)
		if err != nil {
			return nil, notFound(err)
		}
		return user, nil
	}
	return nil, fmt.Errorf("%w: no user id or ethereum address", errors.ErrInvalidStatsRequest)
}
