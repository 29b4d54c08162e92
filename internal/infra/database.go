package infra

import (
	"fmt"

	"rentalcash/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the configured driver ("postgres" or "sqlite"), runs
// AutoMigrate, then applies the DDL GORM cannot express (partial indexes).
// TranslateError maps driver duplicate-key errors to gorm.ErrDuplicatedKey.
func NewDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// one writer; SQLite has no row locks
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates / updates every table and applies the schema patches.
// Integration tests call it directly on a container database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.CashSession{},
		&model.CashMovement{},
		&model.CashClosure{},
		&model.Item{},
		&model.Rental{},
		&model.RentalItem{},
		&model.AuditLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL. Both dialects accept
// CREATE ... IF NOT EXISTS with a WHERE clause.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// at most one open session per store
		{"one open session per store", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_cash_sessions_one_open
    ON cash_sessions (store_id) WHERE status = 'open'`},
		{"movements by reference", `
CREATE INDEX IF NOT EXISTS idx_cash_movements_store_reference
    ON cash_movements (store_id, reference_id) WHERE reference_id IS NOT NULL`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
