package service

import (
	"context"
	"sort"
	"time"

	"posgrocery/internal/dto"
	"posgrocery/internal/model"
	"posgrocery/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Map-backed repository stubs. Every stub returns a nil *gorm.DB so the
// services run their transaction bodies directly via runTx(nil).

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// ── products ─────────────────────────────────────────────────────────────────

type stubProductRepo struct {
	products map[uuid.UUID]*model.Product
}

var _ repository.ProductRepository = (*stubProductRepo)(nil)

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) FindByBarcode(_ context.Context, barcode string) (*model.Product, error) {
	for _, p := range r.products {
		if p.Barcode == barcode && p.Active {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) List(_ context.Context, _ dto.ProductFilter) ([]model.Product, int64, error) {
	out := make([]model.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if p, ok := r.products[id]; ok {
		p.Active = false
	}
	return nil
}

func (r *stubProductRepo) Reactivate(_ context.Context, id uuid.UUID) error {
	if p, ok := r.products[id]; ok {
		p.Active = true
	}
	return nil
}

func (r *stubProductRepo) ActiveIDs(_ context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, p := range r.products {
		if p.Active {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(a, b int) bool { return ids[a].String() < ids[b].String() })
	return ids, nil
}

func (r *stubProductRepo) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) ApplyStockTx(_ *gorm.DB, id uuid.UUID, deltaQty int, newAvg *decimal.Decimal) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.QtyOnHand += deltaQty
	if newAvg != nil {
		p.AvgUnitCost = *newAvg
	}
	return nil
}

// ── suppliers ────────────────────────────────────────────────────────────────

type stubSupplierRepo struct {
	suppliers map[uuid.UUID]*model.Supplier
}

var _ repository.SupplierRepository = (*stubSupplierRepo)(nil)

func newStubSupplierRepo() *stubSupplierRepo {
	return &stubSupplierRepo{suppliers: make(map[uuid.UUID]*model.Supplier)}
}

func (r *stubSupplierRepo) Create(_ context.Context, s *model.Supplier) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.suppliers[s.ID] = s
	return nil
}

func (r *stubSupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	s, ok := r.suppliers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return s, nil
}

func (r *stubSupplierRepo) List(_ context.Context) ([]model.Supplier, error) {
	out := make([]model.Supplier, 0, len(r.suppliers))
	for _, s := range r.suppliers {
		if s.Active {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out, nil
}

func (r *stubSupplierRepo) Update(_ context.Context, s *model.Supplier) error {
	r.suppliers[s.ID] = s
	return nil
}

func (r *stubSupplierRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if s, ok := r.suppliers[id]; ok {
		s.Active = false
	}
	return nil
}

// ── stock lots ───────────────────────────────────────────────────────────────

type stubLotRepo struct {
	lots []*model.StockLot
}

var _ repository.StockLotRepository = (*stubLotRepo)(nil)

func newStubLotRepo() *stubLotRepo { return &stubLotRepo{} }

func (r *stubLotRepo) CreateTx(_ *gorm.DB, lot *model.StockLot) error {
	if lot.ID == uuid.Nil {
		lot.ID = uuid.New()
	}
	r.lots = append(r.lots, lot)
	return nil
}

func (r *stubLotRepo) open(productID uuid.UUID, order repository.LotOrder) []model.StockLot {
	var out []model.StockLot
	for _, l := range r.lots {
		if l.ProductID == productID && l.RemainingQty > 0 {
			out = append(out, *l)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if order == repository.NewestFirst {
			return out[a].ReceivedAt.After(out[b].ReceivedAt)
		}
		return out[a].ReceivedAt.Before(out[b].ReceivedAt)
	})
	return out
}

func (r *stubLotRepo) OpenLotsForUpdateTx(_ *gorm.DB, productID uuid.UUID, order repository.LotOrder) ([]model.StockLot, error) {
	return r.open(productID, order), nil
}

func (r *stubLotRepo) OpenLots(_ context.Context, productID uuid.UUID, order repository.LotOrder) ([]model.StockLot, error) {
	return r.open(productID, order), nil
}

func (r *stubLotRepo) DecrementTx(_ *gorm.DB, lotID uuid.UUID, qty int) error {
	for _, l := range r.lots {
		if l.ID == lotID && l.RemainingQty >= qty {
			l.RemainingQty -= qty
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubLotRepo) ListByProduct(_ context.Context, productID uuid.UUID) ([]model.StockLot, error) {
	var out []model.StockLot
	for _, l := range r.lots {
		if l.ProductID == productID {
			out = append(out, *l)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].ReceivedAt.Before(out[b].ReceivedAt) })
	return out, nil
}

// ── stock ledger ─────────────────────────────────────────────────────────────

type stubLedgerRepo struct {
	entries []model.StockLedgerEntry
}

var _ repository.StockLedgerRepository = (*stubLedgerRepo)(nil)

func newStubLedgerRepo() *stubLedgerRepo { return &stubLedgerRepo{} }

func (r *stubLedgerRepo) DB() *gorm.DB { return nil }

func (r *stubLedgerRepo) AppendTx(_ *gorm.DB, e *model.StockLedgerEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *stubLedgerRepo) balance(productID uuid.UUID, asOf *time.Time) int {
	sum := 0
	for _, e := range r.entries {
		if e.ProductID != productID {
			continue
		}
		if asOf != nil && e.CreatedAt.After(*asOf) {
			continue
		}
		sum += e.DeltaQty
	}
	return sum
}

func (r *stubLedgerRepo) BalanceOf(_ context.Context, productID uuid.UUID, asOf *time.Time) (int, error) {
	return r.balance(productID, asOf), nil
}

func (r *stubLedgerRepo) BalanceOfTx(_ *gorm.DB, productID uuid.UUID) (int, error) {
	return r.balance(productID, nil), nil
}

func (r *stubLedgerRepo) List(_ context.Context, filter dto.LedgerFilter) ([]model.StockLedgerEntry, int64, error) {
	var out []model.StockLedgerEntry
	for _, e := range r.entries {
		if filter.ProductID != "" && e.ProductID.String() != filter.ProductID {
			continue
		}
		if filter.ReferenceType != "" && e.ReferenceType != filter.ReferenceType {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

// byRef returns the entries recorded against one reference type for a product.
func (r *stubLedgerRepo) byRef(productID uuid.UUID, refType string) []model.StockLedgerEntry {
	var out []model.StockLedgerEntry
	for _, e := range r.entries {
		if e.ProductID == productID && e.ReferenceType == refType {
			out = append(out, e)
		}
	}
	return out
}

// ── invoices + idempotency + receipt counters ────────────────────────────────

type stubInvoiceRepo struct {
	invoices    map[uuid.UUID]*model.Invoice
	idempotency map[string]*model.IdempotencyRecord
	counters    map[string]int
	// idemMisses simulates a race: that many FindIdempotency calls report a
	// miss even when the record exists, forcing callers onto the
	// duplicate-key path.
	idemMisses int
}

var _ repository.InvoiceRepository = (*stubInvoiceRepo)(nil)

func newStubInvoiceRepo() *stubInvoiceRepo {
	return &stubInvoiceRepo{
		invoices:    make(map[uuid.UUID]*model.Invoice),
		idempotency: make(map[string]*model.IdempotencyRecord),
		counters:    make(map[string]int),
	}
}

func (r *stubInvoiceRepo) DB() *gorm.DB { return nil }

func (r *stubInvoiceRepo) CreateTx(_ *gorm.DB, inv *model.Invoice) error {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now()
	}
	for i := range inv.Lines {
		if inv.Lines[i].ID == uuid.Nil {
			inv.Lines[i].ID = uuid.New()
		}
		inv.Lines[i].InvoiceID = inv.ID
	}
	for i := range inv.Payments {
		if inv.Payments[i].ID == uuid.Nil {
			inv.Payments[i].ID = uuid.New()
		}
		inv.Payments[i].InvoiceID = inv.ID
	}
	r.invoices[inv.ID] = inv
	return nil
}

func (r *stubInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return inv, nil
}

func (r *stubInvoiceRepo) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return inv, nil
}

func (r *stubInvoiceRepo) UpdateStatusTx(_ *gorm.DB, id uuid.UUID, status string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.Status = status
	return nil
}

func (r *stubInvoiceRepo) MarkVoidedTx(_ *gorm.DB, id uuid.UUID, reason string) error {
	inv, ok := r.invoices[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	now := time.Now()
	inv.Status = model.InvoiceVoided
	inv.VoidReason = &reason
	inv.VoidedAt = &now
	return nil
}

func (r *stubInvoiceRepo) List(_ context.Context, filter dto.SaleFilter) ([]model.Invoice, int64, error) {
	var out []model.Invoice
	for _, inv := range r.invoices {
		if filter.Status != "" && filter.Status != "all" && inv.Status != filter.Status {
			continue
		}
		if filter.Terminal != "" && inv.Terminal != filter.Terminal {
			continue
		}
		out = append(out, *inv)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *stubInvoiceRepo) NextReceiptSeqTx(_ *gorm.DB, terminal, yyyymmdd string) (int, error) {
	key := terminal + "|" + yyyymmdd
	r.counters[key]++
	return r.counters[key], nil
}

func (r *stubInvoiceRepo) FindIdempotency(_ context.Context, key string) (*model.IdempotencyRecord, error) {
	if r.idemMisses > 0 {
		r.idemMisses--
		return nil, gorm.ErrRecordNotFound
	}
	rec, ok := r.idempotency[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return rec, nil
}

func (r *stubInvoiceRepo) CreateIdempotencyTx(_ *gorm.DB, rec *model.IdempotencyRecord) error {
	if _, ok := r.idempotency[rec.Key]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.idempotency[rec.Key] = rec
	return nil
}

// ── GRNs ─────────────────────────────────────────────────────────────────────

type stubGRNRepo struct {
	grns  map[uuid.UUID]*model.GRN
	byKey map[string]uuid.UUID
}

var _ repository.GRNRepository = (*stubGRNRepo)(nil)

func newStubGRNRepo() *stubGRNRepo {
	return &stubGRNRepo{grns: make(map[uuid.UUID]*model.GRN), byKey: make(map[string]uuid.UUID)}
}

func (r *stubGRNRepo) DB() *gorm.DB { return nil }

func (r *stubGRNRepo) Create(_ context.Context, g *model.GRN) error {
	if g.IdempotencyKey != nil {
		if _, ok := r.byKey[*g.IdempotencyKey]; ok {
			return gorm.ErrDuplicatedKey
		}
	}
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}
	for i := range g.Lines {
		if g.Lines[i].ID == uuid.Nil {
			g.Lines[i].ID = uuid.New()
		}
		g.Lines[i].GRNID = g.ID
	}
	r.grns[g.ID] = g
	if g.IdempotencyKey != nil {
		r.byKey[*g.IdempotencyKey] = g.ID
	}
	return nil
}

func (r *stubGRNRepo) FindByID(_ context.Context, id uuid.UUID) (*model.GRN, error) {
	g, ok := r.grns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (r *stubGRNRepo) FindByIdempotencyKey(_ context.Context, key string) (*model.GRN, error) {
	id, ok := r.byKey[key]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return r.grns[id], nil
}

func (r *stubGRNRepo) FindForUpdateTx(_ *gorm.DB, id uuid.UUID) (*model.GRN, error) {
	g, ok := r.grns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return g, nil
}

func (r *stubGRNRepo) SaveTx(_ *gorm.DB, g *model.GRN) error {
	r.grns[g.ID] = g
	return nil
}

func (r *stubGRNRepo) UpdateLineTx(_ *gorm.DB, _ *model.GRNLine) error { return nil }

func (r *stubGRNRepo) List(_ context.Context, _, _ int) ([]model.GRN, int64, error) {
	out := make([]model.GRN, 0, len(r.grns))
	for _, g := range r.grns {
		out = append(out, *g)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, int64(len(out)), nil
}

// ── cost policies ────────────────────────────────────────────────────────────

type stubPolicyRepo struct {
	policies map[uuid.UUID]model.CostPolicy
}

var _ repository.CostPolicyRepository = (*stubPolicyRepo)(nil)

func newStubPolicyRepo() *stubPolicyRepo {
	return &stubPolicyRepo{policies: make(map[uuid.UUID]model.CostPolicy)}
}

func (r *stubPolicyRepo) Find(_ context.Context, productID uuid.UUID) (*model.CostPolicy, error) {
	p, ok := r.policies[productID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *stubPolicyRepo) Upsert(_ context.Context, p *model.CostPolicy) error {
	r.policies[p.ProductID] = *p
	return nil
}

// ── snapshots ────────────────────────────────────────────────────────────────

type stubSnapshotRepo struct {
	rows map[string]*model.Snapshot
}

var _ repository.SnapshotRepository = (*stubSnapshotRepo)(nil)

func newStubSnapshotRepo() *stubSnapshotRepo {
	return &stubSnapshotRepo{rows: make(map[string]*model.Snapshot)}
}

func (r *stubSnapshotRepo) Upsert(_ context.Context, s *model.Snapshot) error {
	r.rows[s.Date+"|"+s.ProductID.String()] = s
	return nil
}

func (r *stubSnapshotRepo) ListByDate(_ context.Context, date string) ([]model.Snapshot, error) {
	var out []model.Snapshot
	for _, s := range r.rows {
		if s.Date == date {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ProductID.String() < out[b].ProductID.String() })
	return out, nil
}

func (r *stubSnapshotRepo) Trend(_ context.Context, productID, from, to string) ([]model.Snapshot, error) {
	var out []model.Snapshot
	for _, s := range r.rows {
		if s.ProductID.String() == productID && s.Date >= from && s.Date <= to {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Date < out[b].Date })
	return out, nil
}

// ── fixture ──────────────────────────────────────────────────────────────────

// fixture wires real services over the stub repositories. The nil cache is a
// no-op, and with nil DBs every transaction body runs directly.
type fixture struct {
	products  *stubProductRepo
	suppliers *stubSupplierRepo
	lots      *stubLotRepo
	ledger    *stubLedgerRepo
	invoices  *stubInvoiceRepo
	grns      *stubGRNRepo
	policies  *stubPolicyRepo
	snapshots *stubSnapshotRepo

	ledgerSvc LedgerService
	tracker   LotTracker
	policySvc CostPolicyService
	valuation ValuationService
	sales     SaleService
	receiving ReceivingService
	inventory InventoryService
	snapshot  SnapshotService
}

func newFixture(allowNegative bool, defaultMethod model.CostMethod) *fixture {
	f := &fixture{
		products:  newStubProductRepo(),
		suppliers: newStubSupplierRepo(),
		lots:      newStubLotRepo(),
		ledger:    newStubLedgerRepo(),
		invoices:  newStubInvoiceRepo(),
		grns:      newStubGRNRepo(),
		policies:  newStubPolicyRepo(),
		snapshots: newStubSnapshotRepo(),
	}
	f.ledgerSvc = NewLedgerService(f.ledger)
	f.tracker = NewLotTracker(f.lots, allowNegative)
	f.policySvc = NewCostPolicyService(f.policies, f.products, defaultMethod)
	f.valuation = NewValuationService(f.lots, f.products)
	f.sales = NewSaleService(f.invoices, f.products, f.ledgerSvc, f.tracker, f.policySvc, nil, allowNegative, 0)
	f.receiving = NewReceivingService(f.grns, f.products, f.suppliers, f.ledgerSvc, f.tracker, nil, 0)
	f.inventory = NewInventoryService(f.ledger, f.ledgerSvc, f.lots, f.products, f.tracker, f.policySvc, f.valuation, nil, allowNegative, 0)
	f.snapshot = NewSnapshotService(f.snapshots, f.products, f.ledger, f.policySvc, f.valuation)
	return f
}

func (f *fixture) seedSupplier(name string) *model.Supplier {
	s := &model.Supplier{ID: uuid.New(), Name: name, Active: true}
	f.suppliers.suppliers[s.ID] = s
	return s
}

func (f *fixture) seedProduct(name string, qtyOnHand int, avgUnitCost string) *model.Product {
	p := &model.Product{
		ID:          uuid.New(),
		Barcode:     uuid.NewString(),
		Name:        name,
		SalePrice:   dec("10.00"),
		QtyOnHand:   qtyOnHand,
		AvgUnitCost: dec(avgUnitCost),
		Active:      true,
	}
	f.products.products[p.ID] = p
	return p
}

// seedLot records a received batch and bumps the product's on-hand quantity to
// keep the denormalized state consistent.
func (f *fixture) seedLot(p *model.Product, qty int, unitCost string, receivedAt time.Time) *model.StockLot {
	lot := &model.StockLot{
		ID:           uuid.New(),
		ProductID:    p.ID,
		ReceivedQty:  qty,
		RemainingQty: qty,
		UnitCost:     dec(unitCost),
		ReceivedAt:   receivedAt,
	}
	f.lots.lots = append(f.lots.lots, lot)
	p.QtyOnHand += qty
	return lot
}

func (f *fixture) setPolicy(p *model.Product, method model.CostMethod) {
	f.policies.policies[p.ID] = model.CostPolicy{ProductID: p.ID, Method: method}
}
