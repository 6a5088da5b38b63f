package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/infra"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// InventoryService serves the read side of stock (ledger browsing, on-hand,
// lots, valuation) plus manual adjustments.
type InventoryService interface {
	Ledger(ctx context.Context, filter dto.LedgerFilter) (*dto.LedgerListResponse, error)
	StockOnHand(ctx context.Context, productID uuid.UUID) (*dto.StockOnHandResponse, error)
	Lots(ctx context.Context, productID uuid.UUID) ([]dto.LotResponse, error)
	Valuation(ctx context.Context, productID uuid.UUID) (*dto.ValuationResponse, error)
	AdjustStock(ctx context.Context, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.StockOnHandResponse, error)
}

type inventoryService struct {
	ledger        repository.StockLedgerRepository
	journal       LedgerService
	lots          repository.StockLotRepository
	products      repository.ProductRepository
	tracker       LotTracker
	policies      CostPolicyService
	valuation     ValuationService
	cache         *infra.StockCache
	allowNegative bool
	lockTimeoutMS int
}

func NewInventoryService(
	ledger repository.StockLedgerRepository,
	journal LedgerService,
	lots repository.StockLotRepository,
	products repository.ProductRepository,
	tracker LotTracker,
	policies CostPolicyService,
	valuation ValuationService,
	cache *infra.StockCache,
	allowNegative bool,
	lockTimeoutMS int,
) InventoryService {
	return &inventoryService{
		ledger:        ledger,
		journal:       journal,
		lots:          lots,
		products:      products,
		tracker:       tracker,
		policies:      policies,
		valuation:     valuation,
		cache:         cache,
		allowNegative: allowNegative,
		lockTimeoutMS: lockTimeoutMS,
	}
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *inventoryService) Ledger(ctx context.Context, filter dto.LedgerFilter) (*dto.LedgerListResponse, error) {
	entries, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	resp := &dto.LedgerListResponse{
		Data:  make([]dto.LedgerEntryResponse, 0, len(entries)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range entries {
		resp.Data = append(resp.Data, ledgerEntryToResponse(&entries[i]))
	}
	return resp, nil
}

// StockOnHand answers from the Redis cache when it can; a miss recomputes the
// ledger balance and primes the cache. QtyOnHand and LedgerQty should always
// agree — both are returned so drift is visible instead of hidden.
func (s *inventoryService) StockOnHand(ctx context.Context, productID uuid.UUID) (*dto.StockOnHandResponse, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found")
		}
		return nil, apierror.Internal(err)
	}

	ledgerQty, cached := s.cache.GetQty(ctx, productID)
	if !cached {
		ledgerQty, err = s.ledger.BalanceOf(ctx, productID, nil)
		if err != nil {
			return nil, apierror.Internal(err)
		}
		s.cache.SetQty(ctx, productID, ledgerQty)
	}

	if ledgerQty != p.QtyOnHand {
		log.Warn().
			Str("product_id", productID.String()).
			Int("ledger_qty", ledgerQty).
			Int("qty_on_hand", p.QtyOnHand).
			Msg("on-hand quantity drifted from ledger")
	}

	return &dto.StockOnHandResponse{
		ProductID: p.ID.String(),
		Product:   p.Name,
		QtyOnHand: p.QtyOnHand,
		LedgerQty: ledgerQty,
		Cached:    cached,
	}, nil
}

func (s *inventoryService) Lots(ctx context.Context, productID uuid.UUID) ([]dto.LotResponse, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found")
		}
		return nil, apierror.Internal(err)
	}
	lots, err := s.lots.ListByProduct(ctx, productID)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	out := make([]dto.LotResponse, 0, len(lots))
	for _, lot := range lots {
		out = append(out, dto.LotResponse{
			ID:              lot.ID.String(),
			ProductID:       lot.ProductID.String(),
			ReceivedQty:     lot.ReceivedQty,
			RemainingQty:    lot.RemainingQty,
			UnitCost:        lot.UnitCost,
			ReceivedAt:      lot.ReceivedAt.Format(time.RFC3339),
			SourceReference: lot.SourceReference,
		})
	}
	return out, nil
}

func (s *inventoryService) Valuation(ctx context.Context, productID uuid.UUID) (*dto.ValuationResponse, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found")
		}
		return nil, apierror.Internal(err)
	}
	method, err := s.policies.Resolve(ctx, productID)
	if err != nil {
		return nil, apierror.From(err)
	}
	val, err := s.valuation.ComputeValuation(ctx, productID, p.QtyOnHand, method)
	if err != nil {
		return nil, apierror.From(err)
	}
	return &dto.ValuationResponse{
		ProductID:      p.ID.String(),
		Qty:            p.QtyOnHand,
		Method:         string(method),
		Value:          val.Value,
		ValueCents:     val.ValueCents,
		HasUnknownCost: val.HasUnknownCost,
	}, nil
}

// ── AdjustStock ──────────────────────────────────────────────────────────────
// Manual corrections go through the same machinery as trade documents: a
// positive delta becomes a lot at the current average cost, a negative delta
// consumes lots under the product's policy. The ledger entry carries the
// operator's reason.

func (s *inventoryService) AdjustStock(ctx context.Context, productID uuid.UUID, req dto.AdjustStockRequest) (*dto.StockOnHandResponse, error) {
	if req.DeltaQty == 0 {
		return nil, apierror.Validation("delta_qty must not be zero")
	}

	method, err := s.policies.Resolve(ctx, productID)
	if err != nil {
		return nil, apierror.From(err)
	}

	adjustmentID := uuid.New()
	txErr := runTx(ctx, s.ledger.DB(), s.lockTimeoutMS, func(tx *gorm.DB) error {
		p, err := s.products.FindForUpdateTx(tx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("product not found")
			}
			return err
		}

		unitCost := p.AvgUnitCost
		if req.DeltaQty > 0 {
			if _, err := s.tracker.ReceiveLotTx(tx, productID, req.DeltaQty, p.AvgUnitCost, "ADJUSTMENT:"+adjustmentID.String(), time.Now()); err != nil {
				return err
			}
		} else {
			qty := -req.DeltaQty
			if method.UsesLots() {
				slices, err := s.tracker.ConsumeTx(tx, productID, qty, method, p.AvgUnitCost)
				if err != nil {
					return err
				}
				unitCost = WeightedUnitCost(slices)
			} else if p.QtyOnHand < qty && !s.allowNegative {
				return apierror.Conflict(apierror.CodeInsufficientStock,
					fmt.Sprintf("insufficient stock for %s: have %d, need %d", p.Name, p.QtyOnHand, qty))
			}
		}

		reason := req.Reason
		cost := unitCost
		if err := s.journal.Append(tx, &model.StockLedgerEntry{
			ProductID:      productID,
			DeltaQty:       req.DeltaQty,
			ReferenceType:  model.RefAdjustment,
			ReferenceID:    adjustmentID,
			UnitCostAtTime: &cost,
			Note:           &reason,
		}); err != nil {
			return err
		}

		// Receiving at the running average leaves the average unchanged, so
		// neither direction moves it.
		return s.products.ApplyStockTx(tx, productID, req.DeltaQty, nil)
	})
	if txErr != nil {
		return nil, apierror.From(txErr)
	}

	s.cache.Invalidate(ctx, productID)
	log.Info().
		Str("product_id", productID.String()).
		Int("delta_qty", req.DeltaQty).
		Str("reason", req.Reason).
		Msg("stock adjusted")
	return s.StockOnHand(ctx, productID)
}

func ledgerEntryToResponse(e *model.StockLedgerEntry) dto.LedgerEntryResponse {
	name := ""
	if e.Product != nil {
		name = e.Product.Name
	}
	return dto.LedgerEntryResponse{
		ID:             e.ID.String(),
		ProductID:      e.ProductID.String(),
		Product:        name,
		DeltaQty:       e.DeltaQty,
		ReferenceType:  e.ReferenceType,
		ReferenceID:    e.ReferenceID.String(),
		UnitCostAtTime: e.UnitCostAtTime,
		Note:           e.Note,
		CreatedAt:      e.CreatedAt.Format(time.RFC3339),
	}
}
