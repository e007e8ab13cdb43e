package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CollectorStats is the derived activity summary of a collector, rebuilt by the stats worker.
type CollectorStats struct {
	ID              uint            `json:"id" gorm:"primaryKey"`
	UserID          uuid.UUID       `json:"user_id" gorm:"type:char(36);uniqueIndex;not null"`
	EthereumAddress string          `json:"ethereumAddress" gorm:"column:ethereum_address;size:42"`
	OwnedArtworks   int64           `json:"owned_artworks"`
	PlacedOrders    int64           `json:"placed_orders"`
	FulfilledOrders int64           `json:"fulfilled_orders"`
	TotalSpent      decimal.Decimal `json:"total_spent" gorm:"type:decimal(30,8)"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// TableName overrides the default pluralized name.
func (CollectorStats) TableName() string {
	return "collector_stats"
}

// All lists every persisted model, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Link{},
		&Artwork{},
		&Order{},
		&CollectorStats{},
		&Memoir{},
		&Interview{},
	}
}
