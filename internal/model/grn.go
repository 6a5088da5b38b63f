package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GRN states. A draft GRN holds no stock; finalization creates lots and
// ledger entries and is allowed exactly once.
const (
	GRNDraft     = "DRAFT"
	GRNFinalized = "FINALIZED"
)

// Landed-cost allocation modes.
const (
	AllocByQty   = "qty"
	AllocByValue = "value"
)

// GRN is a goods received note: header plus lines, DRAFT → FINALIZED.
type GRN struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SupplierID uuid.UUID `gorm:"type:uuid;not null;index"`
	Status     string    `gorm:"type:varchar(12);not null;default:'DRAFT'"`
	// IdempotencyKey makes repeated submission of the same GRN safe: the
	// duplicate returns the original instead of creating a new draft.
	IdempotencyKey *string `gorm:"uniqueIndex"`

	// Set at finalization.
	FreightCost decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	DutyCost    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	MiscCost    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	AllocMode   *string         `gorm:"type:varchar(8)"` // qty | value
	FinalizedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Supplier *Supplier `gorm:"foreignKey:SupplierID"`
	Lines    []GRNLine `gorm:"foreignKey:GRNID"`
}

func (GRN) TableName() string { return "grns" }

// GRNLine is one received product line. AllocatedExtra and LandedUnitCost are
// filled at finalization; LandedUnitCost = UnitCost + AllocatedExtra/Qty.
type GRNLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GRNID     uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"type:uuid;not null"`
	Qty       int       `gorm:"not null"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(12,4);not null"`

	AllocatedExtra decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	LandedUnitCost *decimal.Decimal `gorm:"type:decimal(12,4)"`
	LotID          *uuid.UUID       `gorm:"type:uuid"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

func (GRNLine) TableName() string { return "grn_lines" }
