package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/infra"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleService is the sale coordinator. A sale commits atomically: stock
// checks, lot consumption, ledger entries, receipt numbering, the invoice and
// its idempotency record all succeed or all roll back.
type SaleService interface {
	CreateSale(ctx context.Context, terminal string, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, invoiceID uuid.UUID) (*dto.SaleResponse, error)
	VoidSale(ctx context.Context, invoiceID uuid.UUID, req dto.VoidSaleRequest) (*dto.SaleResponse, error)
	ListSales(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
}

type saleService struct {
	invoices      repository.InvoiceRepository
	products      repository.ProductRepository
	ledger        LedgerService
	lots          LotTracker
	policies      CostPolicyService
	cache         *infra.StockCache
	allowNegative bool
	lockTimeoutMS int
}

func NewSaleService(
	invoices repository.InvoiceRepository,
	products repository.ProductRepository,
	ledger LedgerService,
	lots LotTracker,
	policies CostPolicyService,
	cache *infra.StockCache,
	allowNegative bool,
	lockTimeoutMS int,
) SaleService {
	return &saleService{
		invoices:      invoices,
		products:      products,
		ledger:        ledger,
		lots:          lots,
		policies:      policies,
		cache:         cache,
		allowNegative: allowNegative,
		lockTimeoutMS: lockTimeoutMS,
	}
}

// ── CreateSale ───────────────────────────────────────────────────────────────

func (s *saleService) CreateSale(ctx context.Context, terminal string, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	if terminal == "" {
		return nil, apierror.Validation("terminal is required")
	}

	// Fast path: a replayed key returns the stored result without touching
	// stock. Misses fall through to the transactional path, where the unique
	// key is the real arbiter.
	if rec, err := s.invoices.FindIdempotency(ctx, req.IdempotencyKey); err == nil {
		return s.GetSale(ctx, rec.InvoiceID)
	}

	totals, err := computeTotals(req)
	if err != nil {
		return nil, err
	}

	items, err := parseSaleItems(req.Items)
	if err != nil {
		return nil, err
	}

	// Cost methods are stable configuration; resolving them outside the
	// transaction keeps the serializable window short.
	methods := make(map[uuid.UUID]model.CostMethod, len(items))
	for _, it := range items {
		if _, ok := methods[it.productID]; ok {
			continue
		}
		m, err := s.policies.Resolve(ctx, it.productID)
		if err != nil {
			return nil, apierror.From(err)
		}
		methods[it.productID] = m
	}

	var invoiceID uuid.UUID
	txErr := runTx(ctx, s.invoices.DB(), s.lockTimeoutMS, func(tx *gorm.DB) error {
		now := time.Now()

		// Lock all product rows up front, in sorted id order. Every writer
		// that touches multiple products follows the same order, so two
		// concurrent sales (or a sale and a GRN finalize) cannot deadlock.
		locked := make(map[uuid.UUID]*model.Product, len(methods))
		for _, pid := range sortedProductIDs(methods) {
			p, err := s.products.FindForUpdateTx(tx, pid)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apierror.NotFound("product not found: " + pid.String())
				}
				return err
			}
			if !p.Active {
				return apierror.Validation("product is inactive: " + p.Name)
			}
			locked[pid] = p
		}

		lines := make([]model.InvoiceLine, 0, len(items))
		consumed := make(map[uuid.UUID]int, len(locked))
		for _, it := range items {
			p := locked[it.productID]
			var unitCost decimal.Decimal

			if methods[it.productID].UsesLots() {
				slices, err := s.lots.ConsumeTx(tx, it.productID, it.qty, methods[it.productID], p.AvgUnitCost)
				if err != nil {
					return err
				}
				unitCost = WeightedUnitCost(slices)
			} else {
				available := p.QtyOnHand - consumed[it.productID]
				if available < it.qty && !s.allowNegative {
					return apierror.Conflict(apierror.CodeInsufficientStock,
						fmt.Sprintf("insufficient stock for %s: have %d, need %d", p.Name, available, it.qty))
				}
				unitCost = p.AvgUnitCost
			}
			consumed[it.productID] += it.qty

			lines = append(lines, model.InvoiceLine{
				ProductID:      it.productID,
				Qty:            it.qty,
				UnitPrice:      it.unitPrice,
				Discount:       it.discount,
				LineTotal:      it.unitPrice.Mul(decimal.NewFromInt(int64(it.qty))).Sub(it.discount).Round(2),
				UnitCostAtTime: unitCost,
			})
		}

		seq, err := s.invoices.NextReceiptSeqTx(tx, terminal, now.Format("20060102"))
		if err != nil {
			return err
		}

		origin := model.OriginStandard
		if req.QuickSale {
			origin = model.OriginQuickSale
		}
		inv := &model.Invoice{
			ReceiptNo:     fmt.Sprintf("S%s-%s-%04d", terminal, now.Format("20060102"), seq),
			Terminal:      terminal,
			Gross:         totals.Gross,
			DiscountTotal: totals.Discount,
			Tax:           totals.Tax,
			Net:           totals.Net,
			Status:        model.InvoiceCompleted,
			Origin:        origin,
			Lines:         lines,
		}
		for _, pay := range req.Payments {
			inv.Payments = append(inv.Payments, model.Payment{Method: pay.Method, Amount: pay.Amount})
		}
		if err := s.invoices.CreateTx(tx, inv); err != nil {
			return err
		}

		for i := range inv.Lines {
			cost := inv.Lines[i].UnitCostAtTime
			if err := s.ledger.Append(tx, &model.StockLedgerEntry{
				ProductID:      inv.Lines[i].ProductID,
				DeltaQty:       -inv.Lines[i].Qty,
				ReferenceType:  model.RefSale,
				ReferenceID:    inv.ID,
				UnitCostAtTime: &cost,
			}); err != nil {
				return err
			}
		}

		// Selling never moves the average; only the quantity drops.
		for pid, qty := range consumed {
			if err := s.products.ApplyStockTx(tx, pid, -qty, nil); err != nil {
				return err
			}
		}

		if err := s.invoices.CreateIdempotencyTx(tx, &model.IdempotencyRecord{
			Key:       req.IdempotencyKey,
			InvoiceID: inv.ID,
			ReceiptNo: inv.ReceiptNo,
		}); err != nil {
			return err
		}

		invoiceID = inv.ID
		return nil
	})
	if txErr != nil {
		// Lost the idempotency race: the winner's invoice is the result.
		if isDuplicateKey(txErr) {
			if rec, err := s.invoices.FindIdempotency(ctx, req.IdempotencyKey); err == nil {
				return s.GetSale(ctx, rec.InvoiceID)
			}
		}
		return nil, apierror.From(txErr)
	}

	s.cache.Invalidate(ctx, sortedProductIDs(methods)...)
	log.Info().Str("invoice_id", invoiceID.String()).Str("terminal", terminal).Msg("sale committed")
	return s.GetSale(ctx, invoiceID)
}

// computeTotals derives the money totals and enforces that payments cover the
// net exactly.
func computeTotals(req dto.CreateSaleRequest) (*dto.SaleTotals, error) {
	gross := decimal.Zero
	discount := decimal.Zero
	for _, it := range req.Items {
		if it.Qty <= 0 {
			return nil, apierror.Validation("item qty must be positive")
		}
		if it.UnitPrice.IsNegative() || it.Discount.IsNegative() {
			return nil, apierror.Validation("item price and discount must not be negative")
		}
		gross = gross.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Qty))))
		discount = discount.Add(it.Discount)
	}
	if req.Tax.IsNegative() {
		return nil, apierror.Validation("tax must not be negative")
	}

	gross = gross.Round(2)
	discount = discount.Round(2)
	net := gross.Sub(discount).Add(req.Tax).Round(2)
	if net.IsNegative() {
		return nil, apierror.Validation("net total must not be negative")
	}

	paid := decimal.Zero
	for _, p := range req.Payments {
		if !p.Amount.IsPositive() {
			return nil, apierror.Validation("payment amount must be positive")
		}
		paid = paid.Add(p.Amount)
	}
	if !paid.Round(2).Equal(net) {
		return nil, apierror.ValidationCode(apierror.CodePaymentMismatch,
			fmt.Sprintf("payments total %s does not match net %s", paid.Round(2), net))
	}

	return &dto.SaleTotals{Gross: gross, Discount: discount, Tax: req.Tax.Round(2), Net: net}, nil
}

type saleItem struct {
	productID uuid.UUID
	qty       int
	unitPrice decimal.Decimal
	discount  decimal.Decimal
}

func parseSaleItems(items []dto.SaleItemRequest) ([]saleItem, error) {
	out := make([]saleItem, 0, len(items))
	for _, it := range items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			return nil, apierror.Validation("invalid product_id: " + it.ProductID)
		}
		out = append(out, saleItem{productID: pid, qty: it.Qty, unitPrice: it.UnitPrice, discount: it.Discount})
	}
	return out, nil
}

func sortedProductIDs[V any](m map[uuid.UUID]V) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a].String() < ids[b].String() })
	return ids
}

// ── VoidSale ─────────────────────────────────────────────────────────────────
// Voiding never rewrites history: each sold line gets a compensating RETURN
// entry and a restitution lot priced at the cost realized when the line sold.

func (s *saleService) VoidSale(ctx context.Context, invoiceID uuid.UUID, req dto.VoidSaleRequest) (*dto.SaleResponse, error) {
	txErr := runTx(ctx, s.invoices.DB(), s.lockTimeoutMS, func(tx *gorm.DB) error {
		inv, err := s.invoices.FindForUpdateTx(tx, invoiceID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apierror.NotFound("invoice not found")
			}
			return err
		}
		if inv.Status == model.InvoiceVoided {
			return apierror.Conflict(apierror.CodeAlreadyFinalized, "invoice is already voided")
		}

		now := time.Now()
		for _, idx := range invoiceLineOrderByProduct(inv.Lines) {
			line := inv.Lines[idx]

			p, err := s.products.FindForUpdateTx(tx, line.ProductID)
			if err != nil {
				return err
			}

			if _, err := s.lots.ReceiveLotTx(tx, line.ProductID, line.Qty, line.UnitCostAtTime, "RETURN:"+inv.ID.String(), now); err != nil {
				return err
			}

			cost := line.UnitCostAtTime
			if err := s.ledger.Append(tx, &model.StockLedgerEntry{
				ProductID:      line.ProductID,
				DeltaQty:       line.Qty,
				ReferenceType:  model.RefReturn,
				ReferenceID:    inv.ID,
				UnitCostAtTime: &cost,
			}); err != nil {
				return err
			}

			newAvg := nextAverage(p.QtyOnHand, p.AvgUnitCost, line.Qty, line.UnitCostAtTime)
			if err := s.products.ApplyStockTx(tx, line.ProductID, line.Qty, &newAvg); err != nil {
				return err
			}
		}

		return s.invoices.MarkVoidedTx(tx, inv.ID, req.Reason)
	})
	if txErr != nil {
		return nil, apierror.From(txErr)
	}

	resp, err := s.GetSale(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(resp.Lines))
	for _, l := range resp.Lines {
		if pid, perr := uuid.Parse(l.ProductID); perr == nil {
			ids = append(ids, pid)
		}
	}
	s.cache.Invalidate(ctx, ids...)
	log.Info().Str("invoice_id", invoiceID.String()).Msg("sale voided")
	return resp, nil
}

func invoiceLineOrderByProduct(lines []model.InvoiceLine) []int {
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

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, invoiceID uuid.UUID) (*dto.SaleResponse, error) {
	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("invoice not found")
		}
		return nil, apierror.Internal(err)
	}
	return saleToResponse(inv), nil
}

func (s *saleService) ListSales(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	invoices, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, apierror.Internal(err)
	}
	resp := &dto.SaleListResponse{
		Data:  make([]dto.SaleResponse, 0, len(invoices)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range invoices {
		resp.Data = append(resp.Data, *saleToResponse(&invoices[i]))
	}
	return resp, nil
}

func saleToResponse(inv *model.Invoice) *dto.SaleResponse {
	lines := make([]dto.SaleLineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		name := ""
		if l.Product != nil {
			name = l.Product.Name
		}
		lines = append(lines, dto.SaleLineResponse{
			ProductID:      l.ProductID.String(),
			Product:        name,
			Qty:            l.Qty,
			UnitPrice:      l.UnitPrice,
			Discount:       l.Discount,
			LineTotal:      l.LineTotal,
			UnitCostAtTime: l.UnitCostAtTime,
		})
	}
	payments := make([]dto.PaymentRequest, 0, len(inv.Payments))
	for _, p := range inv.Payments {
		payments = append(payments, dto.PaymentRequest{Method: p.Method, Amount: p.Amount})
	}
	return &dto.SaleResponse{
		InvoiceID: inv.ID.String(),
		ReceiptNo: inv.ReceiptNo,
		Terminal:  inv.Terminal,
		Totals: dto.SaleTotals{
			Gross:    inv.Gross,
			Discount: inv.DiscountTotal,
			Tax:      inv.Tax,
			Net:      inv.Net,
		},
		Lines:     lines,
		Payments:  payments,
		Status:    inv.Status,
		Origin:    inv.Origin,
		CreatedAt: inv.CreatedAt.Format(time.RFC3339),
	}
}
