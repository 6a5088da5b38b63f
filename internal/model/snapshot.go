package model

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is a materialized on-hand quantity and value for one product on
// one date: one row per (date, product), upserted so that re-running a
// snapshot overwrites rather than duplicates. Reporting-only — the
// transactional path never reads it.
type Snapshot struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Date       string     `gorm:"type:date;not null;uniqueIndex:idx_snapshot_day,priority:1"` // YYYY-MM-DD
	ProductID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_snapshot_day,priority:2"`
	QtyOnHand  int        `gorm:"not null"`
	ValueCents int64      `gorm:"not null"`
	Method     CostMethod `gorm:"type:varchar(10);not null"`
	// UnknownCost flags products whose lot data could not price the full
	// on-hand quantity (degraded, not an error).
	UnknownCost bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (Snapshot) TableName() string { return "stock_snapshots" }
