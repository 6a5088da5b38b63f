package dto

import "github.com/shopspring/decimal"

type CreateProductRequest struct {
	Barcode    string          `json:"barcode"     validate:"required,min=3,max=64"`
	Name       string          `json:"name"        validate:"required,min=2,max=200"`
	Category   string          `json:"category"`
	SalePrice  decimal.Decimal `json:"sale_price"  validate:"required"`
	SupplierID *string         `json:"supplier_id" validate:"omitempty,uuid"`
}

type UpdateProductRequest struct {
	Name       *string          `json:"name"        validate:"omitempty,min=2,max=200"`
	Category   *string          `json:"category"`
	SalePrice  *decimal.Decimal `json:"sale_price"`
	SupplierID *string          `json:"supplier_id" validate:"omitempty,uuid"`
}

type ProductFilter struct {
	Barcode  string `form:"barcode"`
	Name     string `form:"name"`
	Category string `form:"category"`
	Active   string `form:"active"` // "false" = inactive, "all" = everything, default = active only
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type ProductResponse struct {
	ID          string          `json:"id"`
	Barcode     string          `json:"barcode"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	SalePrice   decimal.Decimal `json:"sale_price"`
	QtyOnHand   int             `json:"qty_on_hand"`
	AvgUnitCost decimal.Decimal `json:"avg_unit_cost"`
	SupplierID  *string         `json:"supplier_id,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   string          `json:"created_at"`
}

type ProductListResponse struct {
	Data  []ProductResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
