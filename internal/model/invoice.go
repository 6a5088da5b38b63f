package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice states.
const (
	InvoiceCompleted = "completed"
	InvoiceVoided    = "voided"
)

// Invoice origin. An explicit enum instead of tagging sale types inside a
// serialized meta blob.
const (
	OriginStandard  = "standard"
	OriginQuickSale = "quick_sale"
)

// Invoice is a completed sale. Money invariant: Net = Gross - DiscountTotal
// + Tax, and the payments must sum exactly to Net before commit.
type Invoice struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// ReceiptNo is S{terminal}-{YYYYMMDD}-{seq}: unique and increasing within
	// a terminal-day, gaps tolerated.
	ReceiptNo string `gorm:"uniqueIndex;not null"`
	Terminal  string `gorm:"type:varchar(16);not null;index"`

	Gross         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Tax           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Net           decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Status string `gorm:"type:varchar(12);not null;default:'completed'"`
	Origin string `gorm:"type:varchar(12);not null;default:'standard'"` // standard | quick_sale

	VoidReason *string
	VoidedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Lines    []InvoiceLine `gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID"`
}

// InvoiceLine carries the realized unit cost charged by the lot tracker (or
// the running average) at sale time — the authoritative COGS record.
type InvoiceLine struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index"`
	Qty       int       `gorm:"not null"`

	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	UnitCostAtTime decimal.Decimal `gorm:"type:decimal(12,4);not null"`

	Product *Product `gorm:"foreignKey:ProductID"`
}

// Payment is one tender against an invoice.
type Payment struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Method    string          `gorm:"type:varchar(16);not null"` // cash | card | transfer
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
}
