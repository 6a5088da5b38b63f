package model

import (
	"time"

	"github.com/google/uuid"
)

// IdempotencyRecord guarantees at most one invoice per client-supplied key.
// The primary-key uniqueness is the arbiter of concurrent duplicates: the
// record is written in the same transaction as the invoice, so the losing
// writer's commit fails and it re-fetches the winner's result.
type IdempotencyRecord struct {
	Key       string    `gorm:"primaryKey"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null"`
	ReceiptNo string    `gorm:"not null"`
	CreatedAt time.Time
}

func (IdempotencyRecord) TableName() string { return "idempotency_records" }
