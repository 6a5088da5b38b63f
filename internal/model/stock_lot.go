package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockLot is a received batch with its own remaining quantity and landed
// unit cost. Lots are never deleted (audit trail), only decremented:
// 0 <= remaining_qty <= received_qty. FIFO consumption takes the oldest lot
// with remaining_qty > 0 first; LIFO the newest.
type StockLot struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_lots_product_received,priority:1"`
	ReceivedQty     int             `gorm:"not null"`
	RemainingQty    int             `gorm:"not null"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	ReceivedAt      time.Time       `gorm:"not null;index:idx_lots_product_received,priority:2"`
	SourceReference string          `gorm:"not null"` // e.g. "GRN:<id>", "RETURN:<invoice_id>", "ADJUSTMENT:<id>"
	CreatedAt       time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (StockLot) TableName() string { return "stock_lots" }
