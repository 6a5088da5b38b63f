package repository

import (
	"context"

	"posgrocery/internal/dto"
	"posgrocery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	CreateTx(tx *gorm.DB, inv *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// FindForUpdateTx locks the invoice header so concurrent voids serialize.
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Invoice, error)
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error
	MarkVoidedTx(tx *gorm.DB, id uuid.UUID, reason string) error
	List(ctx context.Context, filter dto.SaleFilter) ([]model.Invoice, int64, error)

	// NextReceiptSeqTx atomically bumps the per-terminal-per-day counter and
	// returns the new sequence. Must run inside the sale transaction.
	NextReceiptSeqTx(tx *gorm.DB, terminal, yyyymmdd string) (int, error)

	// Idempotency records live here because they commit atomically with the
	// invoice they protect.
	FindIdempotency(ctx context.Context, key string) (*model.IdempotencyRecord, error)
	CreateIdempotencyTx(tx *gorm.DB, rec *model.IdempotencyRecord) error

	DB() *gorm.DB
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) DB() *gorm.DB { return r.db }

func (r *invoiceRepo) CreateTx(tx *gorm.DB, inv *model.Invoice) error {
	return tx.Create(inv).Error
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).Preload("Lines.Product").Preload("Payments").First(&inv, id).Error
	return &inv, err
}

func (r *invoiceRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, id).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("invoice_id = ?", id).Order("id").Find(&inv.Lines).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepo) MarkVoidedTx(tx *gorm.DB, id uuid.UUID, reason string) error {
	return tx.Model(&model.Invoice{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      model.InvoiceVoided,
		"void_reason": reason,
		"voided_at":   gorm.Expr("NOW()"),
	}).Error
}

func (r *invoiceRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error {
	return tx.Model(&model.Invoice{}).Where("id = ?", id).Update("status", status).Error
}

func (r *invoiceRepo) List(ctx context.Context, filter dto.SaleFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.Invoice{})

	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Terminal != "" {
		q = q.Where("terminal = ?", filter.Terminal)
	}
	if filter.Date != "" {
		q = q.Where("DATE(created_at) = ?", filter.Date)
	} else {
		// Default: today
		q = q.Where("DATE(created_at) = CURRENT_DATE")
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Preload("Lines.Product").Preload("Payments").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&invoices).Error
	return invoices, total, err
}

func (r *invoiceRepo) NextReceiptSeqTx(tx *gorm.DB, terminal, yyyymmdd string) (int, error) {
	var seq int
	err := tx.Raw(`
		INSERT INTO receipt_counters (terminal, date, last_seq)
		VALUES (?, ?, 1)
		ON CONFLICT (terminal, date)
		DO UPDATE SET last_seq = receipt_counters.last_seq + 1
		RETURNING last_seq`, terminal, yyyymmdd).Scan(&seq).Error
	return seq, err
}

func (r *invoiceRepo) FindIdempotency(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&rec).Error
	return &rec, err
}

func (r *invoiceRepo) CreateIdempotencyTx(tx *gorm.DB, rec *model.IdempotencyRecord) error {
	return tx.Create(rec).Error
}
