package service

import (
	"fmt"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LotConsumption is one slice taken out of a lot — the authoritative cost
// breakdown for a sale or issue. A Nil LotID marks an uncovered shortfall
// recorded under the negative-stock override.
type LotConsumption struct {
	LotID    uuid.UUID
	QtyTaken int
	UnitCost decimal.Decimal
}

// TotalCost returns the summed cost of the consumed slices.
func TotalCost(cs []LotConsumption) decimal.Decimal {
	total := decimal.Zero
	for _, c := range cs {
		total = total.Add(c.UnitCost.Mul(decimal.NewFromInt(int64(c.QtyTaken))))
	}
	return total
}

// WeightedUnitCost collapses the slices into a single per-unit cost, rounded
// to 4 decimal places.
func WeightedUnitCost(cs []LotConsumption) decimal.Decimal {
	qty := 0
	for _, c := range cs {
		qty += c.QtyTaken
	}
	if qty == 0 {
		return decimal.Zero
	}
	return TotalCost(cs).Div(decimal.NewFromInt(int64(qty))).Round(4)
}

// LotTracker manages the FIFO/LIFO queue of received batches. All methods
// run inside the caller's transaction and expect the product row lock to be
// held already, so availability is always decided under the lock.
type LotTracker interface {
	ReceiveLotTx(tx *gorm.DB, productID uuid.UUID, qty int, unitCost decimal.Decimal, sourceRef string, receivedAt time.Time) (*model.StockLot, error)
	// ConsumeTx walks lots in policy order (oldest-first for FIFO,
	// newest-first for LIFO), splitting across lots as needed. When available
	// stock is short it fails with INSUFFICIENT_STOCK, unless the
	// negative-stock override is on — then the shortfall is recorded as a
	// final slice at fallbackCost with a Nil lot id.
	ConsumeTx(tx *gorm.DB, productID uuid.UUID, qty int, method model.CostMethod, fallbackCost decimal.Decimal) ([]LotConsumption, error)
}

type lotTracker struct {
	lots          repository.StockLotRepository
	allowNegative bool
}

func NewLotTracker(lots repository.StockLotRepository, allowNegative bool) LotTracker {
	return &lotTracker{lots: lots, allowNegative: allowNegative}
}

func (t *lotTracker) ReceiveLotTx(tx *gorm.DB, productID uuid.UUID, qty int, unitCost decimal.Decimal, sourceRef string, receivedAt time.Time) (*model.StockLot, error) {
	if qty <= 0 {
		return nil, apierror.Validation("lot quantity must be positive")
	}
	if unitCost.IsNegative() {
		return nil, apierror.Validation("lot unit cost must not be negative")
	}
	lot := &model.StockLot{
		ProductID:       productID,
		ReceivedQty:     qty,
		RemainingQty:    qty,
		UnitCost:        unitCost,
		ReceivedAt:      receivedAt,
		SourceReference: sourceRef,
	}
	if err := t.lots.CreateTx(tx, lot); err != nil {
		return nil, err
	}
	return lot, nil
}

func (t *lotTracker) ConsumeTx(tx *gorm.DB, productID uuid.UUID, qty int, method model.CostMethod, fallbackCost decimal.Decimal) ([]LotConsumption, error) {
	if qty <= 0 {
		return nil, apierror.Validation("consume quantity must be positive")
	}

	order := repository.OldestFirst
	if method == model.MethodLIFO {
		order = repository.NewestFirst
	}

	lots, err := t.lots.OpenLotsForUpdateTx(tx, productID, order)
	if err != nil {
		return nil, err
	}

	available := 0
	for _, l := range lots {
		available += l.RemainingQty
	}
	if available < qty && !t.allowNegative {
		return nil, apierror.Conflict(apierror.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock: requested %d, available %d", qty, available))
	}

	var used []LotConsumption
	remaining := qty
	for _, lot := range lots {
		if remaining == 0 {
			break
		}
		take := lot.RemainingQty
		if take > remaining {
			take = remaining
		}
		if err := t.lots.DecrementTx(tx, lot.ID, take); err != nil {
			return nil, err
		}
		used = append(used, LotConsumption{LotID: lot.ID, QtyTaken: take, UnitCost: lot.UnitCost})
		remaining -= take
	}

	if remaining > 0 {
		// Negative-stock override: the uncovered remainder carries the last
		// consumed lot cost, or the caller-supplied fallback when no lots
		// existed at all (typically the running average).
		cost := fallbackCost
		if len(used) > 0 {
			cost = used[len(used)-1].UnitCost
		}
		used = append(used, LotConsumption{LotID: uuid.Nil, QtyTaken: remaining, UnitCost: cost})
	}
	return used, nil
}
