// Package catalog provides the local indexed device/company catalog behind
// the Device Resolver (spec §4.3): a brand/company/description full-text
// index, looked up ahead of an openFDA round-trip so routine lookups don't
// need an API call to discover a product code.
package catalog

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// DB wraps the catalog's SQLite connection.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the catalog database at path. Pass
// ":memory:" for an ephemeral catalog, as tests do.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog db: %w", err)
	}
	// The pure-Go driver serializes writes; a single connection avoids
	// SQLITE_BUSY from concurrent writers without needing WAL tuning here.
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id INTEGER PRIMARY KEY,
			product_code TEXT NOT NULL,
			brand_name TEXT NOT NULL,
			company_name TEXT NOT NULL,
			description TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_brand ON devices(brand_name)`,
		`CREATE INDEX IF NOT EXISTS idx_devices_product_code ON devices(product_code)`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS devices_fts USING fts5(
			brand_name, company_name, description,
			content='devices', content_rowid='id'
		)`,
		`CREATE TRIGGER IF NOT EXISTS devices_ai AFTER INSERT ON devices BEGIN
			INSERT INTO devices_fts(rowid, brand_name, company_name, description)
			VALUES (new.id, new.brand_name, new.company_name, new.description);
		END`,
		`CREATE TRIGGER IF NOT EXISTS devices_ad AFTER DELETE ON devices BEGIN
			INSERT INTO devices_fts(devices_fts, rowid, brand_name, company_name, description)
			VALUES ('delete', old.id, old.brand_name, old.company_name, old.description);
		END`,
		`CREATE TABLE IF NOT EXISTS firms (
			id INTEGER PRIMARY KEY,
			firm_name TEXT NOT NULL,
			country TEXT NOT NULL,
			state TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_firms_name ON firms(firm_name)`,
	}
	for _, s := range stmts {
		if _, err := db.conn.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate catalog db: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection.
func (db *DB) Close() error { return db.conn.Close() }

// DeviceRecord is one entry in the local device catalog.
type DeviceRecord struct {
	ProductCode string
	BrandName   string
	CompanyName string
	Description string
}

// Seed bulk-inserts device records, used both by real catalog population
// (from a periodic openFDA classification export) and by tests.
func (db *DB) Seed(ctx context.Context, records []DeviceRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO devices (product_code, brand_name, company_name, description) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare seed statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.ProductCode, r.BrandName, r.CompanyName, r.Description); err != nil {
			return fmt.Errorf("seed device record %q: %w", r.BrandName, err)
		}
	}
	return tx.Commit()
}
