package repository

import (
	"context"

	"posgrocery/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CostPolicyRepository interface {
	// Find returns gorm.ErrRecordNotFound for products without an explicit
	// policy; callers fall back to the configured default.
	Find(ctx context.Context, productID uuid.UUID) (*model.CostPolicy, error)
	Upsert(ctx context.Context, p *model.CostPolicy) error
}

type costPolicyRepo struct{ db *gorm.DB }

func NewCostPolicyRepository(db *gorm.DB) CostPolicyRepository { return &costPolicyRepo{db: db} }

func (r *costPolicyRepo) Find(ctx context.Context, productID uuid.UUID) (*model.CostPolicy, error) {
	var p model.CostPolicy
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&p).Error
	return &p, err
}

func (r *costPolicyRepo) Upsert(ctx context.Context, p *model.CostPolicy) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"method", "updated_at"}),
	}).Create(p).Error
}
