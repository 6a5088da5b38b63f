package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/infra"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReceivingService drives the GRN pipeline: DRAFT drafts hold no stock;
// finalization allocates landed costs, creates lots and ledger entries, and
// updates the running average — all in one transaction, exactly once.
type ReceivingService interface {
	CreateGRN(ctx context.Context, req dto.CreateGRNRequest) (*dto.GRNResponse, error)
	FinalizeGRN(ctx context.Context, grnID uuid.UUID, req dto.FinalizeGRNRequest) (*dto.FinalizeGRNResponse, error)
	GetGRN(ctx context.Context, grnID uuid.UUID) (*dto.GRNResponse, error)
	ListGRNs(ctx context.Context, page, limit int) ([]dto.GRNResponse, int64, error)
}

type receivingService struct {
	grns          repository.GRNRepository
	products      repository.ProductRepository
	suppliers     repository.SupplierRepository
	ledger        LedgerService
	lots          LotTracker
	cache         *infra.StockCache
	lockTimeoutMS int
}

func NewReceivingService(
	grns repository.GRNRepository,
	products repository.ProductRepository,
	suppliers repository.SupplierRepository,
	ledger LedgerService,
	lots LotTracker,
	cache *infra.StockCache,
	lockTimeoutMS int,
) ReceivingService {
	return &receivingService{
		grns:          grns,
		products:      products,
		suppliers:     suppliers,
		ledger:        ledger,
		lots:          lots,
		cache:         cache,
		lockTimeoutMS: lockTimeoutMS,
	}
}

// ── CreateGRN ────────────────────────────────────────────────────────────────

func (s *receivingService) CreateGRN(ctx context.Context, req dto.CreateGRNRequest) (*dto.GRNResponse, error) {
	// Idempotent resubmission returns the original draft unchanged.
	if req.IdempotencyKey != nil {
		if existing, err := s.grns.FindByIdempotencyKey(ctx, *req.IdempotencyKey); err == nil {
			return grnToResponse(existing), nil
		}
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return nil, apierror.Validation("invalid supplier_id")
	}
	if _, err := s.suppliers.FindByID(ctx, supplierID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("supplier not found")
		}
		return nil, apierror.Internal(err)
	}

	grn := &model.GRN{
		SupplierID:     supplierID,
		Status:         model.GRNDraft,
		IdempotencyKey: req.IdempotencyKey,
	}
	for _, line := range req.Lines {
		pid, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, apierror.Validation("invalid product_id: " + line.ProductID)
		}
		p, err := s.products.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFound("product not found: " + line.ProductID)
			}
			return nil, apierror.Internal(err)
		}
		if !p.Active {
			return nil, apierror.Validation("product is inactive: " + p.Name)
		}
		if line.Qty <= 0 {
			return nil, apierror.Validation("line qty must be positive")
		}
		if line.UnitCost.IsNegative() {
			return nil, apierror.Validation("line unit_cost must not be negative")
		}
		grn.Lines = append(grn.Lines, model.GRNLine{
			ProductID: pid,
			Qty:       line.Qty,
			UnitCost:  line.UnitCost,
		})
	}

	if err := s.grns.Create(ctx, grn); err != nil {
		// Two concurrent submissions with the same key: the loser fetches
		// and returns the winner's draft.
		if isDuplicateKey(err) && req.IdempotencyKey != nil {
			if existing, ferr := s.grns.FindByIdempotencyKey(ctx, *req.IdempotencyKey); ferr == nil {
				return grnToResponse(existing), nil
			}
		}
		return nil, apierror.Internal(err)
	}
	return grnToResponse(grn), nil
}

// ── FinalizeGRN ──────────────────────────────────────────────────────────────
// Single serializable transaction:
//  1. Lock the GRN header; reject if already finalized.
//  2. Allocate extra costs across lines, exact to the cent.
//  3. Per line: lock product, create lot, append ledger entry, update the
//     product's on-hand quantity and running average.
//  4. Mark the GRN finalized.

func (s *receivingService) FinalizeGRN(ctx context.Context, grnID uuid.UUID, req dto.FinalizeGRNRequest) (*dto.FinalizeGRNResponse, error) {
	if req.Mode != model.AllocByQty && req.Mode != model.AllocByValue {
		return nil, apierror.Validation("mode must be 'qty' or 'value'")
	}
	extra := req.ExtraCosts
	if extra.Freight.IsNegative() || extra.Duty.IsNegative() || extra.Misc.IsNegative() {
		return nil, apierror.Validation("extra costs must not be negative")
	}
	totalExtra := extra.Freight.Add(extra.Duty).Add(extra.Misc).Round(2)

	txErr := runTx(ctx, s.grns.DB(), s.lockTimeoutMS, func(tx *gorm.DB) error {
		grn, err := s.grns.FindForUpdateTx(tx, grnID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("GRN not found")
			}
			return err
		}
		if grn.Status == model.GRNFinalized {
			return apierror.Conflict(apierror.CodeAlreadyFinalized, "GRN is already finalized")
		}
		if len(grn.Lines) == 0 {
			return apierror.Validation("GRN has no lines")
		}

		allocations := allocateExtra(grn.Lines, totalExtra, req.Mode)
		now := time.Now()

		// Lock products in a stable order so concurrent finalize/sale
		// transactions cannot deadlock on each other.
		for _, idx := range lineOrderByProduct(grn.Lines) {
			line := &grn.Lines[idx]

			p, err := s.products.FindForUpdateTx(tx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apierror.NotFound("product not found")
				}
				return err
			}

			qtyDec := decimal.NewFromInt(int64(line.Qty))
			landed := line.UnitCost.Add(allocations[idx].Div(qtyDec)).Round(4)

			lot, err := s.lots.ReceiveLotTx(tx, line.ProductID, line.Qty, landed, "GRN:"+grn.ID.String(), now)
			if err != nil {
				return err
			}

			cost := landed
			if err := s.ledger.Append(tx, &model.StockLedgerEntry{
				ProductID:      line.ProductID,
				DeltaQty:       line.Qty,
				ReferenceType:  model.RefGRN,
				ReferenceID:    grn.ID,
				UnitCostAtTime: &cost,
			}); err != nil {
				return err
			}

			newAvg := nextAverage(p.QtyOnHand, p.AvgUnitCost, line.Qty, landed)
			if err := s.products.ApplyStockTx(tx, line.ProductID, line.Qty, &newAvg); err != nil {
				return err
			}

			line.AllocatedExtra = allocations[idx]
			landedCopy := landed
			line.LandedUnitCost = &landedCopy
			lotID := lot.ID
			line.LotID = &lotID
			if err := s.grns.UpdateLineTx(tx, line); err != nil {
				return err
			}
		}

		grn.Status = model.GRNFinalized
		grn.FreightCost = extra.Freight
		grn.DutyCost = extra.Duty
		grn.MiscCost = extra.Misc
		mode := req.Mode
		grn.AllocMode = &mode
		grn.FinalizedAt = &now
		return s.grns.SaveTx(tx, grn)
	})
	if txErr != nil {
		return nil, apierror.From(txErr)
	}

	if grn, err := s.grns.FindByID(ctx, grnID); err == nil {
		ids := make([]uuid.UUID, 0, len(grn.Lines))
		for _, l := range grn.Lines {
			ids = append(ids, l.ProductID)
		}
		s.cache.Invalidate(ctx, ids...)
	}

	return &dto.FinalizeGRNResponse{TotalExtra: totalExtra, Mode: req.Mode}, nil
}

// allocateExtra splits totalExtra across lines proportionally by quantity or
// by value. The rounding remainder lands on the last line, so the allocated
// amounts always sum to totalExtra exactly.
func allocateExtra(lines []model.GRNLine, totalExtra decimal.Decimal, mode string) []decimal.Decimal {
	allocations := make([]decimal.Decimal, len(lines))
	if totalExtra.IsZero() {
		return allocations
	}

	weights := make([]decimal.Decimal, len(lines))
	totalWeight := decimal.Zero
	for i, line := range lines {
		w := decimal.NewFromInt(int64(line.Qty))
		if mode == model.AllocByValue {
			w = line.UnitCost.Mul(decimal.NewFromInt(int64(line.Qty)))
		}
		weights[i] = w
		totalWeight = totalWeight.Add(w)
	}
	// All-zero value weights (free goods): fall back to quantity weights.
	if totalWeight.IsZero() {
		for i, line := range lines {
			weights[i] = decimal.NewFromInt(int64(line.Qty))
			totalWeight = totalWeight.Add(weights[i])
		}
	}

	assigned := decimal.Zero
	for i := range lines {
		if i == len(lines)-1 {
			allocations[i] = totalExtra.Sub(assigned)
			break
		}
		share := totalExtra.Mul(weights[i]).Div(totalWeight).Round(2)
		allocations[i] = share
		assigned = assigned.Add(share)
	}
	return allocations
}

// lineOrderByProduct returns line indices sorted by product id — the shared
// lock acquisition order for every multi-product transaction.
func lineOrderByProduct(lines []model.GRNLine) []int {
	order := make([]int, len(lines))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		pa, pb := lines[order[a]].ProductID.String(), lines[order[b]].ProductID.String()
		if pa == pb {
			return order[a] < order[b]
		}
		return pa < pb
	})
	return order
}

// nextAverage applies the incremental weighted-average recurrence. When the
// prior quantity is zero or negative the new receipt alone defines the
// average.
func nextAverage(oldQty int, oldAvg decimal.Decimal, recvQty int, recvCost decimal.Decimal) decimal.Decimal {
	if oldQty <= 0 {
		return recvCost.Round(4)
	}
	oldQtyDec := decimal.NewFromInt(int64(oldQty))
	recvQtyDec := decimal.NewFromInt(int64(recvQty))
	numerator := oldQtyDec.Mul(oldAvg).Add(recvQtyDec.Mul(recvCost))
	return numerator.Div(oldQtyDec.Add(recvQtyDec)).Round(4)
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *receivingService) GetGRN(ctx context.Context, grnID uuid.UUID) (*dto.GRNResponse, error) {
	grn, err := s.grns.FindByID(ctx, grnID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("GRN not found")
		}
		return nil, apierror.Internal(err)
	}
	return grnToResponse(grn), nil
}

func (s *receivingService) ListGRNs(ctx context.Context, page, limit int) ([]dto.GRNResponse, int64, error) {
	grns, total, err := s.grns.List(ctx, page, limit)
	if err != nil {
		return nil, 0, apierror.Internal(err)
	}
	out := make([]dto.GRNResponse, 0, len(grns))
	for i := range grns {
		out = append(out, *grnToResponse(&grns[i]))
	}
	return out, total, nil
}

func grnToResponse(g *model.GRN) *dto.GRNResponse {
	lines := make([]dto.GRNLineResponse, 0, len(g.Lines))
	for _, l := range g.Lines {
		name := ""
		if l.Product != nil {
			name = l.Product.Name
		}
		lines = append(lines, dto.GRNLineResponse{
			ID:             l.ID.String(),
			ProductID:      l.ProductID.String(),
			Product:        name,
			Qty:            l.Qty,
			UnitCost:       l.UnitCost,
			AllocatedExtra: l.AllocatedExtra,
			LandedUnitCost: l.LandedUnitCost,
		})
	}
	resp := &dto.GRNResponse{
		ID:         g.ID.String(),
		SupplierID: g.SupplierID.String(),
		Status:     g.Status,
		Lines:      lines,
		TotalExtra: g.FreightCost.Add(g.DutyCost).Add(g.MiscCost),
		CreatedAt:  g.CreatedAt.Format(time.RFC3339),
	}
	if g.AllocMode != nil {
		resp.Mode = *g.AllocMode
	}
	if g.FinalizedAt != nil {
		resp.FinalizedAt = g.FinalizedAt.Format(time.RFC3339)
	}
	return resp
}
