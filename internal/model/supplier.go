package model

import (
	"time"

	"github.com/google/uuid"
)

// Supplier is a goods source referenced by GRNs and products.
type Supplier struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"not null"`
	TaxID     *string   `gorm:"uniqueIndex"`
	Phone     *string
	Email     *string
	Active    bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
