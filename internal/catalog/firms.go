package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// FirmRecord is one entry in the local manufacturer catalog: a firm name
// already known to resolve cleanly, with the country/state an exact match
// can short-circuit a registration-listing round trip for.
type FirmRecord struct {
	FirmName string
	Country  string
	State    string
}

// FirmResolver answers exact firm-name lookups against the local catalog,
// so a manufacturer term already seen in a prior registration-listing
// fetch doesn't need another openFDA round trip (spec §4.4's manufacturer
// resolution, accelerated the same way DeviceResolver's exact-brand stage
// short-circuits a product lookup).
type FirmResolver struct {
	db *DB
}

func NewFirmResolver(db *DB) *FirmResolver {
	return &FirmResolver{db: db}
}

// Lookup returns the catalog's exact (case-insensitive) match for term, or
// nil if the firm isn't cached locally yet.
func (r *FirmResolver) Lookup(ctx context.Context, term string) (*FirmRecord, error) {
	trimmed := strings.TrimSpace(term)
	if trimmed == "" {
		return nil, nil
	}
	row := r.db.conn.QueryRowContext(ctx,
		`SELECT firm_name, country, state FROM firms WHERE lower(firm_name) = lower(?) LIMIT 1`, trimmed)
	var rec FirmRecord
	if err := row.Scan(&rec.FirmName, &rec.Country, &rec.State); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalog firm lookup: %w", err)
	}
	return &rec, nil
}

// SeedFirms bulk-inserts firm records, mirroring DB.Seed for devices. Used both
// by real catalog population (from a periodic registration-listing export)
// and by tests.
func (db *DB) SeedFirms(ctx context.Context, records []FirmRecord) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed-firms transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO firms (firm_name, country, state) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare seed-firms statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, r.FirmName, r.Country, r.State); err != nil {
			return fmt.Errorf("seed firm record %q: %w", r.FirmName, err)
		}
	}
	return tx.Commit()
}
