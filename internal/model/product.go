package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the catalog entry every inventory movement hangs off.
// QtyOnHand and AvgUnitCost are denormalized running state: QtyOnHand must
// always equal the sum of ledger deltas for the product, and AvgUnitCost is
// the weighted average maintained incrementally on every receipt.
type Product struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Barcode  string    `gorm:"uniqueIndex;not null"`
	Name     string    `gorm:"index;not null"`
	Category string    `gorm:"not null;default:'general'"`

	SalePrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	QtyOnHand   int             `gorm:"not null;default:0"`
	AvgUnitCost decimal.Decimal `gorm:"type:decimal(12,4);not null;default:0"`

	SupplierID *uuid.UUID `gorm:"type:uuid;index"`
	Active     bool       `gorm:"not null;default:true"`
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Supplier *Supplier `gorm:"foreignKey:SupplierID"`
}
