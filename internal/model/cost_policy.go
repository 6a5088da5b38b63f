package model

import (
	"time"

	"github.com/google/uuid"
)

// CostMethod selects how issued stock is costed.
type CostMethod string

const (
	MethodFIFO    CostMethod = "FIFO"
	MethodLIFO    CostMethod = "LIFO"
	MethodAverage CostMethod = "AVERAGE"
)

func (m CostMethod) IsValid() bool {
	switch m {
	case MethodFIFO, MethodLIFO, MethodAverage:
		return true
	}
	return false
}

// UsesLots reports whether the method charges costs from individual lots.
func (m CostMethod) UsesLots() bool { return m == MethodFIFO || m == MethodLIFO }

// CostPolicy pins a product to a valuation method. Products without a row use
// the configured default. A policy change never re-values historical ledger
// entries, only future movements.
type CostPolicy struct {
	ProductID uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Method    CostMethod `gorm:"type:varchar(10);not null"`
	UpdatedAt time.Time
}

func (CostPolicy) TableName() string { return "cost_policies" }
