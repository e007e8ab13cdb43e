package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order statuses.
const (
	OrderStatusPending   = "pending"
	OrderStatusFulfilled = "fulfilled"
	OrderStatusCancelled = "cancelled"
)

// Artwork is a minted piece. MinterID is the artist, OwnerID the current holder.
type Artwork struct {
	ID        uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Title     string          `json:"title" gorm:"size:255;not null"`
	TokenID   string          `json:"token_id" gorm:"size:78;index"`
	MinterID  uuid.UUID       `json:"minter_id" gorm:"type:char(36);index;not null"`
	OwnerID   *uuid.UUID      `json:"owner_id,omitempty" gorm:"type:char(36);index"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(30,8)"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (a *Artwork) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// Order records a sale of an artwork from a seller to a buyer.
type Order struct {
	ID        uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	ArtworkID uuid.UUID       `json:"artwork_id" gorm:"type:char(36);index;not null"`
	BuyerID   uuid.UUID       `json:"buyer_id" gorm:"type:char(36);index;not null"`
	SellerID  uuid.UUID       `json:"seller_id" gorm:"type:char(36);index;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(30,8);not null"`
	Status    string          `json:"status" gorm:"size:20;default:pending;index"`
	TxHash    string          `json:"tx_hash,omitempty" gorm:"size:66"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
