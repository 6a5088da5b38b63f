package dto

import "github.com/shopspring/decimal"

type GRNLineRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Qty       int             `json:"qty"        validate:"required,min=1"`
	UnitCost  decimal.Decimal `json:"unit_cost"  validate:"min=0"`
}

type CreateGRNRequest struct {
	SupplierID string           `json:"supplier_id" validate:"required,uuid"`
	Lines      []GRNLineRequest `json:"lines"       validate:"required,min=1,dive"`
	// IdempotencyKey: optional — a duplicate submission returns the original
	// draft instead of creating a second one.
	IdempotencyKey *string `json:"idempotency_key" validate:"omitempty,min=8,max=128"`
}

// ExtraCosts are landed costs allocated across lines at finalization.
type ExtraCosts struct {
	Freight decimal.Decimal `json:"freight" validate:"min=0"`
	Duty    decimal.Decimal `json:"duty"    validate:"min=0"`
	Misc    decimal.Decimal `json:"misc"    validate:"min=0"`
}

type FinalizeGRNRequest struct {
	ExtraCosts ExtraCosts `json:"extra_costs"`
	Mode       string     `json:"mode" validate:"required,oneof=qty value"`
}

type GRNLineResponse struct {
	ID             string           `json:"id"`
	ProductID      string           `json:"product_id"`
	Product        string           `json:"product,omitempty"`
	Qty            int              `json:"qty"`
	UnitCost       decimal.Decimal  `json:"unit_cost"`
	AllocatedExtra decimal.Decimal  `json:"allocated_extra"`
	LandedUnitCost *decimal.Decimal `json:"landed_unit_cost,omitempty"`
}

type GRNResponse struct {
	ID          string            `json:"id"`
	SupplierID  string            `json:"supplier_id"`
	Status      string            `json:"status"`
	Lines       []GRNLineResponse `json:"lines"`
	TotalExtra  decimal.Decimal   `json:"total_extra"`
	Mode        string            `json:"mode,omitempty"`
	FinalizedAt string            `json:"finalized_at,omitempty"`
	CreatedAt   string            `json:"created_at"`
}

type FinalizeGRNResponse struct {
	TotalExtra decimal.Decimal `json:"totalExtra"`
	Mode       string          `json:"mode"`
}
