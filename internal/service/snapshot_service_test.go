package service

import (
	"context"
	"testing"
	"time"

	"posgrocery/internal/apierror"
	"posgrocery/internal/dto"
	"posgrocery/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedLedgerReceipt(t *testing.T, f *fixture, p *model.Product, qty int) {
	t.Helper()
	require.NoError(t, f.ledgerSvc.Append(nil, &model.StockLedgerEntry{
		ProductID: p.ID, DeltaQty: qty, ReferenceType: model.RefGRN, ReferenceID: uuid.New(),
	}))
}

func TestSnapshotRun_WritesRowPerActiveProduct(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	rice := f.seedProduct("Rice 1kg", 0, "0")
	f.seedLot(rice, 100, "8.10", time.Now().Add(-time.Hour))
	f.setPolicy(rice, model.MethodFIFO)
	seedLedgerReceipt(t, f, rice, 100)

	sugar := f.seedProduct("Sugar 1kg", 40, "4.25")
	seedLedgerReceipt(t, f, sugar, 40)

	inactive := f.seedProduct("Discontinued", 5, "1.00")
	inactive.Active = false

	resp, err := f.snapshot.Run(context.Background(), "2026-08-30")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-30", resp.Date)
	assert.Equal(t, 2, resp.Products)

	rows, err := f.snapshot.ByDate(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	byProduct := map[string]dto.SnapshotRowResponse{}
	for _, r := range rows {
		byProduct[r.ProductID] = r
	}

	riceRow := byProduct[rice.ID.String()]
	assert.Equal(t, 100, riceRow.QtyOnHand)
	assert.Equal(t, int64(81000), riceRow.ValueCents) // 100 * 8.10
	assert.Equal(t, "FIFO", riceRow.Method)
	assert.False(t, riceRow.UnknownCost)

	sugarRow := byProduct[sugar.ID.String()]
	assert.Equal(t, 40, sugarRow.QtyOnHand)
	assert.Equal(t, int64(17000), sugarRow.ValueCents) // 40 * 4.25
	assert.Equal(t, "AVERAGE", sugarRow.Method)
}

func TestSnapshotRun_RerunUpserts(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 40, "4.25")
	seedLedgerReceipt(t, f, p, 40)

	_, err := f.snapshot.Run(context.Background(), "2026-08-30")
	require.NoError(t, err)

	// Stock moves, the day is re-run: one row per (date, product), updated.
	require.NoError(t, f.ledgerSvc.Append(nil, &model.StockLedgerEntry{
		ProductID: p.ID, DeltaQty: -10, ReferenceType: model.RefSale, ReferenceID: uuid.New(),
	}))
	_, err = f.snapshot.Run(context.Background(), "2026-08-30")
	require.NoError(t, err)

	rows, err := f.snapshot.ByDate(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 30, rows[0].QtyOnHand)
	assert.Equal(t, int64(12750), rows[0].ValueCents)
}

func TestSnapshotRun_MarksUnknownCost(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Mystery item", 0, "0")
	seedLedgerReceipt(t, f, p, 7) // stock in the ledger but no priced receipt

	_, err := f.snapshot.Run(context.Background(), "2026-08-30")
	require.NoError(t, err)

	rows, err := f.snapshot.ByDate(context.Background(), "2026-08-30")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].UnknownCost)
	assert.Equal(t, int64(0), rows[0].ValueCents)
}

func TestSnapshotRun_DateValidation(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	_, err := f.snapshot.Run(context.Background(), "30/08/2026")
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))

	// Empty date defaults to today.
	resp, err := f.snapshot.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, time.Now().Format("2006-01-02"), resp.Date)
}

func TestSnapshotTrend(t *testing.T) {
	f := newFixture(false, model.MethodAverage)
	p := f.seedProduct("Sugar 1kg", 40, "4.25")
	seedLedgerReceipt(t, f, p, 40)

	_, err := f.snapshot.Run(context.Background(), "2026-08-29")
	require.NoError(t, err)
	_, err = f.snapshot.Run(context.Background(), "2026-08-30")
	require.NoError(t, err)

	rows, err := f.snapshot.Trend(context.Background(), dto.SnapshotTrendFilter{
		ProductID: p.ID.String(), From: "2026-08-29", To: "2026-08-30",
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2026-08-29", rows[0].Date)
	assert.Equal(t, "2026-08-30", rows[1].Date)

	_, err = f.snapshot.Trend(context.Background(), dto.SnapshotTrendFilter{
		ProductID: p.ID.String(), From: "2026-08-30", To: "2026-08-29",
	})
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}
