package dto

// CreateSnapshotRequest triggers a snapshot run for a date (default: today).
type CreateSnapshotRequest struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

type SnapshotRowResponse struct {
	Date        string `json:"date"`
	ProductID   string `json:"product_id"`
	QtyOnHand   int    `json:"qty_on_hand"`
	ValueCents  int64  `json:"value_cents"`
	Method      string `json:"method"`
	UnknownCost bool   `json:"unknown_cost"`
}

type SnapshotRunResponse struct {
	Date     string `json:"date"`
	Products int    `json:"products"`
}

// SnapshotTrendFilter is bound from the query string of the trend endpoint.
type SnapshotTrendFilter struct {
	ProductID string `form:"product_id" validate:"required,uuid"`
	From      string `form:"from" validate:"required,datetime=2006-01-02"`
	To        string `form:"to"   validate:"required,datetime=2006-01-02"`
}
