package repository

import (
	"context"

	"posgrocery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LotOrder controls the direction lots are walked during consumption.
type LotOrder string

const (
	OldestFirst LotOrder = "ASC"  // FIFO
	NewestFirst LotOrder = "DESC" // LIFO
)

// StockLotRepository tracks received batches. Lots are insert-and-decrement
// only; none are ever deleted.
type StockLotRepository interface {
	CreateTx(tx *gorm.DB, lot *model.StockLot) error
	// OpenLotsForUpdateTx loads lots with remaining quantity under FOR UPDATE
	// in consumption order. Callers must hold the product row lock first, so
	// lock acquisition order stays consistent across writers.
	OpenLotsForUpdateTx(tx *gorm.DB, productID uuid.UUID, order LotOrder) ([]model.StockLot, error)
	// OpenLots is the lock-free variant used by read-only valuation.
	OpenLots(ctx context.Context, productID uuid.UUID, order LotOrder) ([]model.StockLot, error)
	DecrementTx(tx *gorm.DB, lotID uuid.UUID, qty int) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockLot, error)
}

type stockLotRepo struct{ db *gorm.DB }

func NewStockLotRepository(db *gorm.DB) StockLotRepository { return &stockLotRepo{db: db} }

func (r *stockLotRepo) CreateTx(tx *gorm.DB, lot *model.StockLot) error {
	return tx.Create(lot).Error
}

func (r *stockLotRepo) OpenLotsForUpdateTx(tx *gorm.DB, productID uuid.UUID, order LotOrder) ([]model.StockLot, error) {
	var lots []model.StockLot
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ? AND remaining_qty > 0", productID).
		Order("received_at " + string(order)).Order("id " + string(order)).
		Find(&lots).Error
	return lots, err
}

func (r *stockLotRepo) OpenLots(ctx context.Context, productID uuid.UUID, order LotOrder) ([]model.StockLot, error) {
	var lots []model.StockLot
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND remaining_qty > 0", productID).
		Order("received_at " + string(order)).Order("id " + string(order)).
		Find(&lots).Error
	return lots, err
}

func (r *stockLotRepo) DecrementTx(tx *gorm.DB, lotID uuid.UUID, qty int) error {
	return tx.Model(&model.StockLot{}).
		Where("id = ? AND remaining_qty >= ?", lotID, qty).
		Update("remaining_qty", gorm.Expr("remaining_qty - ?", qty)).Error
}

func (r *stockLotRepo) ListByProduct(ctx context.Context, productID uuid.UUID) ([]model.StockLot, error) {
	var lots []model.StockLot
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("received_at ASC").
		Find(&lots).Error
	return lots, err
}
