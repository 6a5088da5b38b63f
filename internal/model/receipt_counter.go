package model

// ReceiptCounter backs per-terminal-per-day receipt sequences. The row is
// upserted with an atomic increment inside the sale transaction, so numbers
// are unique and increasing within a terminal-day.
type ReceiptCounter struct {
	Terminal string `gorm:"primaryKey;type:varchar(16)"`
	Date     string `gorm:"primaryKey;type:varchar(8)"` // YYYYMMDD
	LastSeq  int    `gorm:"not null;default:0"`
}

func (ReceiptCounter) TableName() string { return "receipt_counters" }
