package service

import (
	"context"
	"errors"

	"posgrocery/internal/apierror"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Valuation is the cost of an on-hand quantity under a policy.
// HasUnknownCost is set when lot data cannot price the full quantity (no
// receipts recorded yet, or more on hand than lots cover); callers treat it
// as degraded-but-usable, never as an error.
type Valuation struct {
	Value          decimal.Decimal
	ValueCents     int64
	HasUnknownCost bool
}

// ValuationService prices on-hand quantities. It is stateless: every
// dependency is injected and no call mutates lots or ledger — FIFO/LIFO
// valuations are read-only simulations of what consumption would take.
type ValuationService interface {
	ComputeValuation(ctx context.Context, productID uuid.UUID, qty int, method model.CostMethod) (*Valuation, error)
}

type valuationService struct {
	lots     repository.StockLotRepository
	products repository.ProductRepository
}

func NewValuationService(lots repository.StockLotRepository, products repository.ProductRepository) ValuationService {
	return &valuationService{lots: lots, products: products}
}

func (s *valuationService) ComputeValuation(ctx context.Context, productID uuid.UUID, qty int, method model.CostMethod) (*Valuation, error) {
	if qty <= 0 {
		return &Valuation{Value: decimal.Zero}, nil
	}

	if method.UsesLots() {
		return s.simulateLots(ctx, productID, qty, method)
	}
	return s.averageValue(ctx, productID, qty)
}

// simulateLots walks open lots in consumption order without touching them.
func (s *valuationService) simulateLots(ctx context.Context, productID uuid.UUID, qty int, method model.CostMethod) (*Valuation, error) {
	order := repository.OldestFirst
	if method == model.MethodLIFO {
		order = repository.NewestFirst
	}
	lots, err := s.lots.OpenLots(ctx, productID, order)
	if err != nil {
		return nil, apierror.Internal(err)
	}

	value := decimal.Zero
	remaining := qty
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		take := lot.RemainingQty
		if take > remaining {
			take = remaining
		}
		value = value.Add(lot.UnitCost.Mul(decimal.NewFromInt(int64(take))))
		remaining -= take
	}

	return finishValuation(value, remaining > 0), nil
}

func (s *valuationService) averageValue(ctx context.Context, productID uuid.UUID, qty int) (*Valuation, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product not found")
		}
		return nil, apierror.Internal(err)
	}
	value := p.AvgUnitCost.Mul(decimal.NewFromInt(int64(qty)))
	// A zero average with stock on hand means no receipt ever priced it.
	unknown := p.AvgUnitCost.IsZero()
	return finishValuation(value, unknown), nil
}

func finishValuation(value decimal.Decimal, unknown bool) *Valuation {
	rounded := value.Round(2)
	return &Valuation{
		Value:          rounded,
		ValueCents:     rounded.Mul(decimal.NewFromInt(100)).IntPart(),
		HasUnknownCost: unknown,
	}
}
