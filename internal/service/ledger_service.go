package service

import (
	"context"
	"errors"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// LedgerService owns writes to the append-only stock journal. Every stock
// mutation in the system funnels through Append, so the zero-delta guard and
// immutability hold everywhere.
type LedgerService interface {
	// Append inserts one immutable entry inside the caller's transaction.
	Append(tx *gorm.DB, e *model.StockLedgerEntry) error
	// BalanceOf sums deltas up to asOf (nil = now) — the ground truth on-hand
	// quantity at that instant.
	BalanceOf(ctx context.Context, productID uuid.UUID, asOf *time.Time) (int, error)
	List(ctx context.Context, filter dto.LedgerFilter) (*dto.LedgerListResponse, error)
}

type ledgerService struct {
	repo repository.StockLedgerRepository
}

func NewLedgerService(repo repository.StockLedgerRepository) LedgerService {
	return &ledgerService{repo: repo}
}

func (s *ledgerService) Append(tx *gorm.DB, e *model.StockLedgerEntry) error {
	if e.DeltaQty == 0 {
		return apierror.Validation("ledger entry delta_qty must not be zero")
	}
	if e.ReferenceID == uuid.Nil {
		return apierror.Validation("ledger entry requires a reference")
	}
	switch e.ReferenceType {
	case model.RefGRN, model.RefSale, model.RefReturn, model.RefAdjustment:
	default:
		return apierror.Validation("unknown ledger reference type: " + e.ReferenceType)
	}
	return s.repo.AppendTx(tx, e)
}

func (s *ledgerService) BalanceOf(ctx context.Context, productID uuid.UUID, asOf *time.Time) (int, error) {
	return s.repo.BalanceOf(ctx, productID, asOf)
}

func (s *ledgerService) List(ctx context.Context, filter dto.LedgerFilter) (*dto.LedgerListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 100
	}
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("no ledger entries found")
		}
		return nil, apierror.Internal(err)
	}

	items := make([]dto.LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		name := ""
		if e.Product != nil {
			name = e.Product.Name
		}
		items = append(items, dto.LedgerEntryResponse{
			ID:             e.ID.String(),
			ProductID:      e.ProductID.String(),
			Product:        name,
			DeltaQty:       e.DeltaQty,
			ReferenceType:  e.ReferenceType,
			ReferenceID:    e.ReferenceID.String(),
			UnitCostAtTime: e.UnitCostAtTime,
			CreatedAt:      e.CreatedAt.Format(time.RFC3339),
		})
	}
	return &dto.LedgerListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}
