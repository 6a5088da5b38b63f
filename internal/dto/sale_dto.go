package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type SaleItemRequest struct {
	ProductID string          `json:"product_id" validate:"required,uuid"`
	Qty       int             `json:"qty"        validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"required"`
	Discount  decimal.Decimal `json:"discount"   validate:"min=0"`
}

type PaymentRequest struct {
	Method string          `json:"method" validate:"required,oneof=cash card transfer"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

// CreateSaleRequest is the body of POST /v1/sales. IdempotencyKey is required:
// a retried request with the same key returns the original invoice unchanged.
type CreateSaleRequest struct {
	IdempotencyKey string            `json:"idempotency_key" validate:"required,min=8,max=128"`
	Items          []SaleItemRequest `json:"items"           validate:"required,min=1,dive"`
	Payments       []PaymentRequest  `json:"payments"        validate:"required,min=1,dive"`
	Tax            decimal.Decimal   `json:"tax"             validate:"min=0"`
	// QuickSale marks invoices originated by the quick-sale flow.
	QuickSale bool `json:"quick_sale"`
}

type VoidSaleRequest struct {
	Reason string `json:"reason" validate:"required,min=5"`
}

// SaleFilter is bound from the query string of GET /v1/sales.
type SaleFilter struct {
	Date     string `form:"date"`     // YYYY-MM-DD; empty = today
	Terminal string `form:"terminal"` // empty = all
	Status   string `form:"status,default=completed"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleTotals struct {
	Gross    decimal.Decimal `json:"gross"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Net      decimal.Decimal `json:"net"`
}

type SaleLineResponse struct {
	ProductID      string          `json:"product_id"`
	Product        string          `json:"product"`
	Qty            int             `json:"qty"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Discount       decimal.Decimal `json:"discount"`
	LineTotal      decimal.Decimal `json:"line_total"`
	UnitCostAtTime decimal.Decimal `json:"unit_cost_at_time"`
}

type SaleResponse struct {
	InvoiceID string             `json:"invoice_id"`
	ReceiptNo string             `json:"receipt_no"`
	Terminal  string             `json:"terminal"`
	Totals    SaleTotals         `json:"totals"`
	Lines     []SaleLineResponse `json:"lines"`
	Payments  []PaymentRequest   `json:"payments"`
	Status    string             `json:"status"`
	Origin    string             `json:"origin"`
	CreatedAt string             `json:"created_at"`
}

type SaleListResponse struct {
	Data  []SaleResponse `json:"data"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}
