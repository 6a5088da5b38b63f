package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Reference types for ledger entries. Every entry points at the business
// document that caused it.
const (
	RefGRN        = "GRN"
	RefSale       = "SALE"
	RefReturn     = "RETURN"
	RefAdjustment = "ADJUSTMENT"
)

// StockLedgerEntry is one immutable row of the append-only stock journal.
// Corrections are compensating entries, never edits or deletes. For any
// product, the sum of DeltaQty over all entries up to time T is the true
// on-hand quantity at T.
type StockLedgerEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index:idx_ledger_product_time,priority:1"`
	// DeltaQty is signed: positive = received, negative = issued.
	DeltaQty      int       `gorm:"not null"`
	ReferenceType string    `gorm:"type:varchar(20);not null;index"` // GRN | SALE | RETURN | ADJUSTMENT
	ReferenceID   uuid.UUID `gorm:"type:uuid;not null"`
	// UnitCostAtTime is the realized unit cost of the movement, when known.
	UnitCostAtTime *decimal.Decimal `gorm:"type:decimal(12,4)"`
	// Note carries the operator-supplied reason on manual adjustments.
	Note      *string
	CreatedAt time.Time `gorm:"index:idx_ledger_product_time,priority:2"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (StockLedgerEntry) TableName() string { return "stock_ledger_entries" }
