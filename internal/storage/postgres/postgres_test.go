package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/spigell/listing-advisor/internal/listing"
)

func TestTableName(t *testing.T) {
	t.Parallel()

	if got := tableName(""); got != "listings" {
		t.Fatalf("unexpected default table: %s", got)
	}
	if got := tableName("market"); got != `"market"."listings"` {
		t.Fatalf("unexpected schema table: %s", got)
	}
}

func TestOpenRejectsBadDSN(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "postgres://user@localhost:notaport/db", Config{}); err == nil {
		t.Fatalf("expected error for malformed dsn")
	}
}

// Runs only when a database is available, e.g.
// LISTING_ADVISOR_TEST_PG_DSN=postgres://postgres@localhost:5432/postgres
func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("LISTING_ADVISOR_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("LISTING_ADVISOR_TEST_PG_DSN is not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, dsn, Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	items := []listing.Listing{
		{ID: "pg-test-1", City: "Austin", State: "TX", Price: 450000, Bedrooms: listing.Ptr(3)},
		{ID: "pg-test-2", City: "Austin", State: "TX", Price: 950000, Bedrooms: listing.Ptr(5)},
	}
	if _, err := s.UpsertMany(ctx, items); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.pool.Exec(ctx, `DELETE FROM `+s.table+` WHERE id LIKE 'pg-test-%'`)
	})

	got, err := s.Search(ctx, listing.SearchCriteria{BudgetMax: listing.Ptr(500000.0), Areas: []string{"Austin"}})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, l := range got {
		if l.ID == "pg-test-2" {
			t.Fatalf("listing over budget returned: %+v", l)
		}
	}
}
