package dto

import "github.com/shopspring/decimal"

// LedgerFilter is bound from the query string of GET /v1/inventory/ledger.
type LedgerFilter struct {
	ProductID     string `form:"product_id"     validate:"omitempty,uuid"`
	ReferenceType string `form:"reference_type" validate:"omitempty,oneof=GRN SALE RETURN ADJUSTMENT"`
	Page          int    `form:"page,default=1"    validate:"min=1"`
	Limit         int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type LedgerEntryResponse struct {
	ID             string           `json:"id"`
	ProductID      string           `json:"product_id"`
	Product        string           `json:"product,omitempty"`
	DeltaQty       int              `json:"delta_qty"`
	ReferenceType  string           `json:"reference_type"`
	ReferenceID    string           `json:"reference_id"`
	UnitCostAtTime *decimal.Decimal `json:"unit_cost_at_time,omitempty"`
	Note           *string          `json:"note,omitempty"`
	CreatedAt      string           `json:"created_at"`
}

type LedgerListResponse struct {
	Data  []LedgerEntryResponse `json:"data"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// AdjustStockRequest records a manual correction as a compensating ledger
// entry (never an edit).
type AdjustStockRequest struct {
	DeltaQty int    `json:"delta_qty" validate:"required"`
	Reason   string `json:"reason"    validate:"required,min=5"`
}

type StockOnHandResponse struct {
	ProductID string `json:"product_id"`
	Product   string `json:"product"`
	QtyOnHand int    `json:"qty_on_hand"`
	// LedgerQty is the authoritative sum of ledger deltas; it should always
	// equal QtyOnHand and is surfaced for reconciliation.
	LedgerQty int  `json:"ledger_qty"`
	Cached    bool `json:"cached"`
}

type ValuationResponse struct {
	ProductID      string          `json:"product_id"`
	Qty            int             `json:"qty"`
	Method         string          `json:"method"`
	Value          decimal.Decimal `json:"value"`
	ValueCents     int64           `json:"value_cents"`
	HasUnknownCost bool            `json:"has_unknown_cost"`
}

type LotResponse struct {
	ID              string          `json:"id"`
	ProductID       string          `json:"product_id"`
	ReceivedQty     int             `json:"received_qty"`
	RemainingQty    int             `json:"remaining_qty"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	ReceivedAt      string          `json:"received_at"`
	SourceReference string          `json:"source_reference"`
}

// SetCostPolicyRequest pins a product's valuation method.
type SetCostPolicyRequest struct {
	Method string `json:"method" validate:"required,oneof=FIFO LIFO AVERAGE"`
}

type CostPolicyResponse struct {
	ProductID string `json:"product_id"`
	Method    string `json:"method"`
	// Defaulted is true when no explicit policy row exists.
	Defaulted bool `json:"defaulted"`
}
