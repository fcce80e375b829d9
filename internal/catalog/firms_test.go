package catalog

import (
	"context"
	"testing"
)

func newTestFirmDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	err = db.SeedFirms(context.Background(), []FirmRecord{
		{FirmName: "Acme Medical Inc", Country: "US", State: "CA"},
		{FirmName: "Nimbus Health", Country: "CN"},
	})
	if err != nil {
		t.Fatalf("SeedFirms() error: %v", err)
	}
	return db
}

func TestFirmResolver_Lookup_ExactCaseInsensitiveMatch(t *testing.T) {
	r := NewFirmResolver(newTestFirmDB(t))
	got, err := r.Lookup(context.Background(), "acme medical inc")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if got == nil || got.FirmName != "Acme Medical Inc" || got.Country != "US" {
		t.Errorf("Lookup() = %+v, want the seeded Acme record", got)
	}
}

func TestFirmResolver_Lookup_NoMatch(t *testing.T) {
	r := NewFirmResolver(newTestFirmDB(t))
	got, err := r.Lookup(context.Background(), "Unknown Devices LLC")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if got != nil {
		t.Errorf("Lookup() = %+v, want nil for an uncached firm", got)
	}
}

func TestFirmResolver_Lookup_EmptyTerm(t *testing.T) {
	r := NewFirmResolver(newTestFirmDB(t))
	got, err := r.Lookup(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if got != nil {
		t.Errorf("Lookup() = %+v, want nil for an empty term", got)
	}
}
