package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gallery/internal/model"
)

// StatsRepository reads collector activity and stores the derived stats.
type StatsRepository interface {
	CountOwnedArtworks(ctx context.Context, userID uuid.UUID) (int64, error)
	ListPlacedOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error)
	CountFulfilledOrders(ctx context.Context, userID uuid.UUID) (int64, error)
	Upsert(ctx context.Context, stats *model.CollectorStats) error
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates a new stats repository.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) CountOwnedArtworks(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Artwork{}).Where("owner_id = ?", userID).Count(&n).Error
	return n, err
}

// ListPlacedOrders returns the non-cancelled orders bought by the user.
func (r *statsRepository) ListPlacedOrders(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND status <> ?", userID, model.OrderStatusCancelled).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *statsRepository) CountFulfilledOrders(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("buyer_id = ? AND status = ?", userID, model.OrderStatusFulfilled).
		Count(&n).Error
	return n, err
}

// Upsert inserts the stats row or overwrites the one keyed by user_id.
func (r *statsRepository) Upsert(ctx context.Context, stats *model.CollectorStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"ethereum_address", "owned_artworks", "placed_orders",
			"fulfilled_orders", "total_spent", "computed_at",
		}),
	}).Create(stats).Error
}
