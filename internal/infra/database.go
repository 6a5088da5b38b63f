package infra

import (
	"fmt"

	"posgrocery/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// for all models, then applies the idempotent SQL patches GORM cannot express
// (check constraints, pgcrypto for gen_random_uuid on older clusters).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Surfaces gorm.ErrDuplicatedKey instead of raw SQLSTATE errors, which
		// the idempotency arbiters rely on.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations is shared by startup and integration tests.
func RunMigrations(db *gorm.DB) error {
	// gen_random_uuid() needs pgcrypto before Postgres 13.
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}

	if err := db.AutoMigrate(
		&model.Supplier{},
		&model.Product{},
		&model.StockLedgerEntry{},
		&model.StockLot{},
		&model.CostPolicy{},
		&model.GRN{},
		&model.GRNLine{},
		&model.Invoice{},
		&model.InvoiceLine{},
		&model.Payment{},
		&model.IdempotencyRecord{},
		&model.ReceiptCounter{},
		&model.Snapshot{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}

	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// Each statement is guarded so re-running on a patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// Lot quantities are bounded at the database level too, on top of
		// the lot tracker's guarded UPDATE.
		{"stock_lots remaining bounds check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_stock_lots_remaining') THEN
    ALTER TABLE stock_lots
      ADD CONSTRAINT chk_stock_lots_remaining
      CHECK (remaining_qty >= 0 AND remaining_qty <= received_qty);
  END IF;
END $$`},
		// Ledger entries never carry a zero delta.
		{"stock_ledger_entries nonzero delta check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_ledger_delta_nonzero') THEN
    ALTER TABLE stock_ledger_entries
      ADD CONSTRAINT chk_ledger_delta_nonzero
      CHECK (delta_qty <> 0);
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
