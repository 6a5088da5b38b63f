package repository

import (
	"context"
	"time"

	"posgrocery/internal/dto"
	"posgrocery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockLedgerRepository is the append-only journal of quantity movements.
// The interface deliberately exposes no update or delete: corrections are
// compensating entries.
type StockLedgerRepository interface {
	AppendTx(tx *gorm.DB, e *model.StockLedgerEntry) error
	// BalanceOf sums deltas up to asOf (nil = now). Ground truth for on-hand
	// quantity; Snapshot and the lot tracker are reconciled against it.
	BalanceOf(ctx context.Context, productID uuid.UUID, asOf *time.Time) (int, error)
	BalanceOfTx(tx *gorm.DB, productID uuid.UUID) (int, error)
	List(ctx context.Context, filter dto.LedgerFilter) ([]model.StockLedgerEntry, int64, error)
	DB() *gorm.DB
}

type stockLedgerRepo struct{ db *gorm.DB }

func NewStockLedgerRepository(db *gorm.DB) StockLedgerRepository {
	return &stockLedgerRepo{db: db}
}

func (r *stockLedgerRepo) DB() *gorm.DB { return r.db }

func (r *stockLedgerRepo) AppendTx(tx *gorm.DB, e *model.StockLedgerEntry) error {
	return tx.Create(e).Error
}

func (r *stockLedgerRepo) BalanceOf(ctx context.Context, productID uuid.UUID, asOf *time.Time) (int, error) {
	var balance int
	q := r.db.WithContext(ctx).Model(&model.StockLedgerEntry{}).
		Where("product_id = ?", productID)
	if asOf != nil {
		q = q.Where("created_at <= ?", *asOf)
	}
	err := q.Select("COALESCE(SUM(delta_qty), 0)").Scan(&balance).Error
	return balance, err
}

func (r *stockLedgerRepo) BalanceOfTx(tx *gorm.DB, productID uuid.UUID) (int, error) {
	var balance int
	err := tx.Model(&model.StockLedgerEntry{}).
		Where("product_id = ?", productID).
		Select("COALESCE(SUM(delta_qty), 0)").Scan(&balance).Error
	return balance, err
}

func (r *stockLedgerRepo) List(ctx context.Context, filter dto.LedgerFilter) ([]model.StockLedgerEntry, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.StockLedgerEntry{}).Preload("Product")
	if filter.ProductID != "" {
		q = q.Where("product_id = ?", filter.ProductID)
	}
	if filter.ReferenceType != "" {
		q = q.Where("reference_type = ?", filter.ReferenceType)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := filter.Page
	limit := filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	offset := (page - 1) * limit

	var entries []model.StockLedgerEntry
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}
