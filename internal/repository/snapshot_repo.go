package repository

import (
	"context"

	"posgrocery/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SnapshotRepository interface {
	// Upsert overwrites the (date, product) row so snapshot runs are idempotent.
	Upsert(ctx context.Context, s *model.Snapshot) error
	ListByDate(ctx context.Context, date string) ([]model.Snapshot, error)
	// Trend returns the rows for one product across a date range, oldest first.
	Trend(ctx context.Context, productID, from, to string) ([]model.Snapshot, error)
}

type snapshotRepo struct{ db *gorm.DB }

func NewSnapshotRepository(db *gorm.DB) SnapshotRepository { return &snapshotRepo{db: db} }

func (r *snapshotRepo) Upsert(ctx context.Context, s *model.Snapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"qty_on_hand", "value_cents", "method", "unknown_cost", "updated_at"}),
	}).Create(s).Error
}

func (r *snapshotRepo) ListByDate(ctx context.Context, date string) ([]model.Snapshot, error) {
	var rows []model.Snapshot
	err := r.db.WithContext(ctx).Where("date = ?", date).Order("product_id").Find(&rows).Error
	return rows, err
}

func (r *snapshotRepo) Trend(ctx context.Context, productID, from, to string) ([]model.Snapshot, error) {
	var rows []model.Snapshot
	err := r.db.WithContext(ctx).
		Where("product_id = ? AND date >= ? AND date <= ?", productID, from, to).
		Order("date ASC").Find(&rows).Error
	return rows, err
}
