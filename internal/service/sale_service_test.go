package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleReq(key string, p *model.Product, qty int, price, paid string) dto.CreateSaleRequest {
	return dto.CreateSaleRequest{
		IdempotencyKey: key,
		Items: []dto.SaleItemRequest{
			{ProductID: p.ID.String(), Qty: qty, UnitPrice: dec(price)},
		},
		Payments: []dto.PaymentRequest{{Method: "cash", Amount: dec(paid)}},
	}
}

func TestCreateSale_FIFOCostsFromLots(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Rice 1kg", 0, "8.10")
	lot := f.seedLot(p, 100, "8.10", time.Now().Add(-time.Hour))
	f.setPolicy(p, model.MethodFIFO)

	resp, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0001", p, 30, "12.00", "360.00"))
	require.NoError(t, err)

	want := fmt.Sprintf("ST1-%s-0001", time.Now().Format("20060102"))
	assert.Equal(t, want, resp.ReceiptNo)
	assert.Equal(t, model.InvoiceCompleted, resp.Status)
	assert.True(t, resp.Totals.Net.Equal(dec("360.00")))

	// Realized cost comes from the lot, 30 * 8.10 = 243.00 of COGS.
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].UnitCostAtTime.Equal(dec("8.10")))
	assert.Equal(t, 70, lot.RemainingQty)
	assert.Equal(t, 70, p.QtyOnHand)

	entries := f.ledger.byRef(p.ID, model.RefSale)
	require.Len(t, entries, 1)
	assert.Equal(t, -30, entries[0].DeltaQty)
	assert.True(t, entries[0].UnitCostAtTime.Equal(dec("8.10")))
}

func TestCreateSale_AverageDoesNotMoveAverage(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 50, "4.25")

	resp, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0002", p, 10, "6.00", "60.00"))
	require.NoError(t, err)

	assert.True(t, resp.Lines[0].UnitCostAtTime.Equal(dec("4.25")))
	assert.Equal(t, 40, p.QtyOnHand)
	assert.True(t, p.AvgUnitCost.Equal(dec("4.25")))
}

func TestCreateSale_ReceiptSequenceIncrements(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 50, "4.25")
	date := time.Now().Format("20060102")

	first, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0003", p, 1, "6.00", "6.00"))
	require.NoError(t, err)
	second, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0004", p, 1, "6.00", "6.00"))
	require.NoError(t, err)
	other, err := f.sales.CreateSale(context.Background(), "T2", saleReq("sale-key-0005", p, 1, "6.00", "6.00"))
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("ST1-%s-0001", date), first.ReceiptNo)
	assert.Equal(t, fmt.Sprintf("ST1-%s-0002", date), second.ReceiptNo)
	// Terminals number independently.
	assert.Equal(t, fmt.Sprintf("ST2-%s-0001", date), other.ReceiptNo)
}

func TestCreateSale_PaymentMismatch(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 50, "4.25")

	_, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0006", p, 10, "6.00", "59.99"))
	require.Error(t, err)
	assert.True(t, apierror.HasCode(err, apierror.CodePaymentMismatch))
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	// Rejected before any stock moved.
	assert.Equal(t, 50, p.QtyOnHand)
	assert.Empty(t, f.ledger.entries)
}

func TestCreateSale_InsufficientStock(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 5, "4.25")

	_, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0007", p, 6, "6.00", "36.00"))
	require.Error(t, err)
	assert.True(t, apierror.HasCode(err, apierror.CodeInsufficientStock))
	assert.Equal(t, 5, p.QtyOnHand)
}

func TestCreateSale_TerminalRequired(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 50, "4.25")

	_, err := f.sales.CreateSale(context.Background(), "", saleReq("sale-key-0008", p, 1, "6.00", "6.00"))
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestCreateSale_InactiveProduct(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 50, "4.25")
	p.Active = false

	_, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0009", p, 1, "6.00", "6.00"))
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestCreateSale_IdempotentReplay(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 50, "4.25")
	req := saleReq("sale-key-0010", p, 10, "6.00", "60.00")

	first, err := f.sales.CreateSale(context.Background(), "T1", req)
	require.NoError(t, err)
	second, err := f.sales.CreateSale(context.Background(), "T1", req)
	require.NoError(t, err)

	assert.Equal(t, first.InvoiceID, second.InvoiceID)
	assert.Equal(t, first.ReceiptNo, second.ReceiptNo)
	// Stock moved once.
	assert.Equal(t, 40, p.QtyOnHand)
	assert.Len(t, f.ledger.byRef(p.ID, model.RefSale), 1)
}

func TestCreateSale_IdempotencyRaceLoserReturnsWinner(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 50, "4.25")
	req := saleReq("sale-key-0011", p, 10, "6.00", "60.00")

	winner, err := f.sales.CreateSale(context.Background(), "T1", req)
	require.NoError(t, err)

	// The next lookup misses even though the record exists, so the call runs
	// the transactional path and hits the unique key.
	f.invoices.idemMisses = 1
	loser, err := f.sales.CreateSale(context.Background(), "T1", req)
	require.NoError(t, err)
	assert.Equal(t, winner.InvoiceID, loser.InvoiceID)
}

func TestVoidSale_RestoresStockAtRealizedCost(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Rice 1kg", 0, "8.10")
	f.seedLot(p, 100, "8.10", time.Now().Add(-time.Hour))
	f.setPolicy(p, model.MethodFIFO)

	sale, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0012", p, 30, "12.00", "360.00"))
	require.NoError(t, err)
	invoiceID := uuid.MustParse(sale.InvoiceID)

	voided, err := f.sales.VoidSale(context.Background(), invoiceID, dto.VoidSaleRequest{Reason: "customer returned goods"})
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceVoided, voided.Status)

	// The sale rows are untouched; restitution is a compensating RETURN entry
	// plus a new lot at the cost realized when the line sold.
	assert.Len(t, f.ledger.byRef(p.ID, model.RefSale), 1)
	returns := f.ledger.byRef(p.ID, model.RefReturn)
	require.Len(t, returns, 1)
	assert.Equal(t, 30, returns[0].DeltaQty)
	assert.True(t, returns[0].UnitCostAtTime.Equal(dec("8.10")))

	require.Len(t, f.lots.lots, 2)
	restitution := f.lots.lots[1]
	assert.Equal(t, "RETURN:"+sale.InvoiceID, restitution.SourceReference)
	assert.Equal(t, 30, restitution.RemainingQty)
	assert.True(t, restitution.UnitCost.Equal(dec("8.10")))

	assert.Equal(t, 100, p.QtyOnHand)
	assert.True(t, p.AvgUnitCost.Equal(dec("8.10")))
}

func TestVoidSale_SecondVoidRejected(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 50, "4.25")

	sale, err := f.sales.CreateSale(context.Background(), "T1", saleReq("sale-key-0013", p, 10, "6.00", "60.00"))
	require.NoError(t, err)
	invoiceID := uuid.MustParse(sale.InvoiceID)

	_, err = f.sales.VoidSale(context.Background(), invoiceID, dto.VoidSaleRequest{Reason: "operator error"})
	require.NoError(t, err)

	_, err = f.sales.VoidSale(context.Background(), invoiceID, dto.VoidSaleRequest{Reason: "operator error"})
	require.Error(t, err)
	assert.True(t, apierror.HasCode(err, apierror.CodeAlreadyFinalized))

	// Restored once, not twice.
	assert.Equal(t, 50, p.QtyOnHand)
	assert.Len(t, f.ledger.byRef(p.ID, model.RefReturn), 1)
}

func TestVoidSale_UnknownInvoice(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	_, err := f.sales.VoidSale(context.Background(), uuid.New(), dto.VoidSaleRequest{Reason: "whatever reason"})
	assert.True(t, apierror.IsKind(err, apierror.KindNotFound))
}

func TestComputeTotals(t *testing.T) {
	req := dto.CreateSaleRequest{
		Items: []dto.SaleItemRequest{
			{ProductID: uuid.NewString(), Qty: 2, UnitPrice: dec("10.00"), Discount: dec("1.00")},
			{ProductID: uuid.NewString(), Qty: 1, UnitPrice: dec("5.50")},
		},
		Tax:      dec("2.00"),
		Payments: []dto.PaymentRequest{{Method: "cash", Amount: dec("26.50")}},
	}
	totals, err := computeTotals(req)
	require.NoError(t, err)
	assert.True(t, totals.Gross.Equal(dec("25.50")))
	assert.True(t, totals.Discount.Equal(dec("1.00")))
	assert.True(t, totals.Net.Equal(dec("26.50")))

	req.Items[0].Qty = 0
	_, err = computeTotals(req)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}
