package service

import (
	"context"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SnapshotService materializes per-product quantity and value rows for a
// date. A failed run leaves whatever partial rows it wrote; re-running the
// same date upserts, so retries converge instead of duplicating.
type SnapshotService interface {
	Run(ctx context.Context, date string) (*dto.SnapshotRunResponse, error)
	ByDate(ctx context.Context, date string) ([]dto.SnapshotRowResponse, error)
	Trend(ctx context.Context, filter dto.SnapshotTrendFilter) ([]dto.SnapshotRowResponse, error)
}

type snapshotService struct {
	snapshots repository.SnapshotRepository
	products  repository.ProductRepository
	ledger    repository.StockLedgerRepository
	policies  CostPolicyService
	valuation ValuationService
}

func NewSnapshotService(
	snapshots repository.SnapshotRepository,
	products repository.ProductRepository,
	ledger repository.StockLedgerRepository,
	policies CostPolicyService,
	valuation ValuationService,
) SnapshotService {
	return &snapshotService{
		snapshots: snapshots,
		products:  products,
		ledger:    ledger,
		policies:  policies,
		valuation: valuation,
	}
}

// Run walks every active product, reads its ledger balance and values it
// under the product's cost method. A product that fails to price gets its
// row marked unknown_cost rather than aborting the whole run.
func (s *snapshotService) Run(ctx context.Context, date string) (*dto.SnapshotRunResponse, error) {
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apierror.Validation("date must be YYYY-MM-DD")
	}

	ids, err := s.products.ActiveIDs(ctx)
	if err != nil {
		return nil, apierror.Internal(err)
	}

	count := 0
	for _, pid := range ids {
		row, err := s.snapshotProduct(ctx, date, pid)
		if err != nil {
			log.Error().Err(err).Str("product_id", pid.String()).Str("date", date).Msg("snapshot row failed")
			continue
		}
		if err := s.snapshots.Upsert(ctx, row); err != nil {
			return nil, apierror.Internal(err)
		}
		count++
	}

	log.Info().Str("date", date).Int("products", count).Msg("snapshot run complete")
	return &dto.SnapshotRunResponse{Date: date, Products: count}, nil
}

func (s *snapshotService) snapshotProduct(ctx context.Context, date string, productID uuid.UUID) (*model.Snapshot, error) {
	qty, err := s.ledger.BalanceOf(ctx, productID, nil)
	if err != nil {
		return nil, err
	}
	method, err := s.policies.Resolve(ctx, productID)
	if err != nil {
		return nil, err
	}
	val, err := s.valuation.ComputeValuation(ctx, productID, qty, method)
	if err != nil {
		return nil, err
	}
	return &model.Snapshot{
		Date:        date,
		ProductID:   productID,
		QtyOnHand:   qty,
		ValueCents:  val.ValueCents,
		Method:      method,
		UnknownCost: val.HasUnknownCost,
	}, nil
}

func (s *snapshotService) ByDate(ctx context.Context, date string) ([]dto.SnapshotRowResponse, error) {
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, apierror.Validation("date must be YYYY-MM-DD")
	}
	rows, err := s.snapshots.ListByDate(ctx, date)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return snapshotRows(rows), nil
}

func (s *snapshotService) Trend(ctx context.Context, filter dto.SnapshotTrendFilter) ([]dto.SnapshotRowResponse, error) {
	if filter.From > filter.To {
		return nil, apierror.Validation("from must not be after to")
	}
	rows, err := s.snapshots.Trend(ctx, filter.ProductID, filter.From, filter.To)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	return snapshotRows(rows), nil
}

func snapshotRows(rows []model.Snapshot) []dto.SnapshotRowResponse {
	out := make([]dto.SnapshotRowResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, dto.SnapshotRowResponse{
			Date:        r.Date,
			ProductID:   r.ProductID.String(),
			QtyOnHand:   r.QtyOnHand,
			ValueCents:  r.ValueCents,
			Method:      string(r.Method),
			UnknownCost: r.UnknownCost,
		})
	}
	return out
}
