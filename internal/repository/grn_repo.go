package repository

import (
	"context"

	"posgrocery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GRNRepository interface {
	Create(ctx context.Context, g *model.GRN) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.GRN, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*model.GRN, error)
	// FindForUpdateTx locks the GRN header row so concurrent finalize calls
	// serialize; the loser observes status FINALIZED.
	FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.GRN, error)
	SaveTx(tx *gorm.DB, g *model.GRN) error
	UpdateLineTx(tx *gorm.DB, line *model.GRNLine) error
	List(ctx context.Context, page, limit int) ([]model.GRN, int64, error)
	DB() *gorm.DB
}

type grnRepo struct{ db *gorm.DB }

func NewGRNRepository(db *gorm.DB) GRNRepository { return &grnRepo{db: db} }

func (r *grnRepo) DB() *gorm.DB { return r.db }

func (r *grnRepo) Create(ctx context.Context, g *model.GRN) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *grnRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.GRN, error) {
	var g model.GRN
	err := r.db.WithContext(ctx).Preload("Lines.Product").First(&g, id).Error
	return &g, err
}

func (r *grnRepo) FindByIdempotencyKey(ctx context.Context, key string) (*model.GRN, error) {
	var g model.GRN
	err := r.db.WithContext(ctx).Preload("Lines").Where("idempotency_key = ?", key).First(&g).Error
	return &g, err
}

func (r *grnRepo) FindForUpdateTx(tx *gorm.DB, id uuid.UUID) (*model.GRN, error) {
	var g model.GRN
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&g, id).Error; err != nil {
		return nil, err
	}
	// Lines loaded separately — FOR UPDATE cannot ride along with a join/preload.
	if err := tx.Where("grn_id = ?", id).Order("id").Find(&g.Lines).Error; err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *grnRepo) SaveTx(tx *gorm.DB, g *model.GRN) error {
	return tx.Omit("Lines").Save(g).Error
}

func (r *grnRepo) UpdateLineTx(tx *gorm.DB, line *model.GRNLine) error {
	return tx.Save(line).Error
}

func (r *grnRepo) List(ctx context.Context, page, limit int) ([]model.GRN, int64, error) {
	var grns []model.GRN
	var total int64

	q := r.db.WithContext(ctx).Model(&model.GRN{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	err := q.Preload("Lines").Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).Find(&grns).Error
	return grns, total, err
}
