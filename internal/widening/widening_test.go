package widening

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/listing-advisor/internal/listing"
)

type call struct {
	found int
	err   error
	panic bool
}

type scriptedSearcher struct {
	script []call
	seen   []listing.SearchCriteria
}

func (s *scriptedSearcher) Search(_ context.Context, c listing.SearchCriteria) ([]listing.Listing, error) {
	s.seen = append(s.seen, c)
	i := len(s.seen) - 1
	if i >= len(s.script) {
		return nil, errors.New("unexpected search call")
	}

	step := s.script[i]
	if step.panic {
		panic("inventory exploded")
	}
	if step.err != nil {
		return nil, step.err
	}

	out := make([]listing.Listing, 0, step.found)
	for n := 0; n < step.found; n++ {
		out = append(out, listing.Listing{ID: fmt.Sprintf("call%d-%d", i, n)})
	}
	return out, nil
}

func buyer() *listing.BuyerProfile {
	return &listing.BuyerProfile{
		BudgetMin:      listing.Ptr(400000.0),
		BudgetMax:      listing.Ptr(500000.0),
		Bedrooms:       listing.Ptr(3),
		Bathrooms:      listing.Ptr(2.0),
		HomeType:       "single family",
		PreferredAreas: []string{"Austin"},
	}
}

func newService(t *testing.T, s Searcher, logger *zap.Logger) *Service {
	t.Helper()
	svc, err := New(s, Config{}, logger)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSearchStopsAtFirstSufficientLevel(t *testing.T) {
	t.Parallel()

	s := &scriptedSearcher{script: []call{{found: 3}, {found: 6}}}
	p := buyer()

	got := newService(t, s, nil).Search(context.Background(), p)

	if got.Level != LevelFlexibleBeds {
		t.Fatalf("expected level %s, got %s", LevelFlexibleBeds, got.Level)
	}
	if got.Total != 6 || len(got.Listings) != 6 {
		t.Fatalf("expected 6 listings, got %d", got.Total)
	}
	if len(s.seen) != 2 {
		t.Fatalf("expected 2 searches, got %d", len(s.seen))
	}
	if len(got.Adjustments) != 1 {
		t.Fatalf("expected one adjustment, got %+v", got.Adjustments)
	}

	adj := got.Adjustments[0]
	if adj.Field != "bedrooms_bathrooms" || adj.From != "3+ bd / 2+ ba" || adj.To != "2+ bd / 1+ ba" {
		t.Fatalf("unexpected adjustment: %+v", adj)
	}
	if *s.seen[1].MinBedrooms != 2 || *s.seen[1].MinBathrooms != 1 || *s.seen[1].BudgetMax != 500000 {
		t.Fatalf("unexpected relaxed criteria: %+v", s.seen[1])
	}
	if *p.Bedrooms != 3 || *p.Bathrooms != 2 {
		t.Fatalf("profile was modified: %+v", p)
	}
}

func TestSearchFallsBackToLocationOnly(t *testing.T) {
	t.Parallel()

	s := &scriptedSearcher{script: []call{{found: 0}, {found: 0}, {found: 0}, {found: 4}}}

	got := newService(t, s, nil).Search(context.Background(), buyer())

	if got.Level != LevelLocationOnly || got.Total != 4 {
		t.Fatalf("expected location_only with 4 listings, got %s/%d", got.Level, got.Total)
	}
	if got.Error != "" {
		t.Fatalf("did not expect an error: %s", got.Error)
	}

	last := s.seen[len(s.seen)-1]
	if last.BudgetMax != nil || last.MinBedrooms != nil || last.HomeType != "" {
		t.Fatalf("fallback must keep only areas: %+v", last)
	}
	if len(last.Areas) != 1 || last.Areas[0] != "Austin" {
		t.Fatalf("unexpected fallback areas: %v", last.Areas)
	}
}

func TestSearchAbsorbsCollaboratorFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	s := &scriptedSearcher{script: []call{{err: errors.New("timeout")}, {panic: true}, {found: 2}}}

	got := newService(t, s, zap.New(core)).Search(context.Background(), buyer())

	if got.Level != LevelFlexibleBudgetBeds || got.Total != 2 {
		t.Fatalf("expected final level results under the minimum, got %s/%d", got.Level, got.Total)
	}
	if len(got.Adjustments) != 2 || got.Adjustments[0].Field != "budget" {
		t.Fatalf("unexpected adjustments: %+v", got.Adjustments)
	}
	if got.Adjustments[0].To != "$360,000-$550,000" {
		t.Fatalf("unexpected budget adjustment: %+v", got.Adjustments[0])
	}

	failures := logs.FilterMessage("widening level search failed").All()
	if len(failures) != 2 {
		t.Fatalf("expected 2 logged failures, got %d", len(failures))
	}
	if !strings.Contains(failures[1].ContextMap()["error"].(string), "panicked") {
		t.Fatalf("expected panic to be reported, got %v", failures[1].ContextMap())
	}
}

func TestSearchFailedWhenFallbackFails(t *testing.T) {
	t.Parallel()

	boom := errors.New("inventory down")
	s := &scriptedSearcher{script: []call{{err: boom}, {err: boom}, {err: boom}, {err: boom}}}

	got := newService(t, s, nil).Search(context.Background(), buyer())

	if got.Level != LevelFailed {
		t.Fatalf("expected failed level, got %s", got.Level)
	}
	if got.Listings == nil || len(got.Listings) != 0 || got.Total != 0 {
		t.Fatalf("expected empty listings, got %+v", got.Listings)
	}
	if got.Error != "inventory down" {
		t.Fatalf("unexpected error message: %q", got.Error)
	}
	if !strings.HasPrefix(AdjustmentSummary(got), "Search failed") {
		t.Fatalf("unexpected summary: %s", AdjustmentSummary(got))
	}
}

func TestSearchSkipsUnchangedLevels(t *testing.T) {
	t.Parallel()

	s := &scriptedSearcher{script: []call{{found: 2}, {found: 3}}}
	p := &listing.BuyerProfile{Bedrooms: listing.Ptr(1), PreferredAreas: []string{"Austin"}}

	got := newService(t, s, nil).Search(context.Background(), p)

	if len(s.seen) != 2 {
		t.Fatalf("expected exact search and fallback only, got %d calls", len(s.seen))
	}
	if got.Level != LevelLocationOnly || got.Total != 3 {
		t.Fatalf("expected location_only fallback, got %s/%d", got.Level, got.Total)
	}
}

func TestSearchCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &scriptedSearcher{}
	got := newService(t, s, nil).Search(ctx, buyer())

	if got.Level != LevelFailed || len(s.seen) != 0 {
		t.Fatalf("expected failed result without searches, got %s after %d calls", got.Level, len(s.seen))
	}
}

func TestNewValidatesLevels(t *testing.T) {
	t.Parallel()

	if _, err := New(&scriptedSearcher{}, Config{Levels: []string{"exact", "nearby"}}, nil); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New(&scriptedSearcher{}, Config{Levels: []string{"exact", "exact"}}, nil); err == nil {
		t.Fatalf("expected error for duplicated level")
	}
	if _, err := New(nil, Config{}, nil); err == nil {
		t.Fatalf("expected error without searcher")
	}

	svc, err := New(&scriptedSearcher{}, Config{Levels: []string{"flexible_budget_beds"}, MinResults: 2}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(svc.levels) != 1 || svc.min != 2 {
		t.Fatalf("unexpected service config: %+v", svc)
	}
}

func TestSummaries(t *testing.T) {
	t.Parallel()

	exact := Result{Level: LevelExact, Total: 1, Adjustments: []Adjustment{}}
	if got := ClientSummary(exact); got != "Found 1 home matching all of your criteria." {
		t.Fatalf("unexpected client summary: %q", got)
	}
	if got := AdjustmentSummary(exact); got != "No adjustments: exact criteria." {
		t.Fatalf("unexpected adjustment summary: %q", got)
	}

	widened := Result{
		Level: LevelFlexibleBeds,
		Total: 6,
		Adjustments: []Adjustment{{
			Field:       "bedrooms_bathrooms",
			From:        "3+ bd / 2+ ba",
			To:          "2+ bd / 1+ ba",
			Description: "Allowed one fewer bedroom and bathroom",
		}},
	}
	if got := ClientSummary(widened); got != "Found 6 homes after we allowed one fewer bedroom and bathroom." {
		t.Fatalf("unexpected client summary: %q", got)
	}
	if got := AdjustmentSummary(widened); got != "Level flexible_beds: bedrooms_bathrooms 3+ bd / 2+ ba -> 2+ bd / 1+ ba." {
		t.Fatalf("unexpected adjustment summary: %q", got)
	}

	accented := Result{
		Level:       LevelFlexibleBeds,
		Total:       2,
		Adjustments: []Adjustment{{Field: "area", Description: "Élargi la zone de recherche"}},
	}
	if got := ClientSummary(accented); got != "Found 2 homes after we élargi la zone de recherche." || !utf8.ValidString(got) {
		t.Fatalf("unexpected multi-byte summary: %q", got)
	}

	if got := ClientSummary(Result{Level: LevelLocationOnly}); got != "No homes are available in your areas right now." {
		t.Fatalf("unexpected empty summary: %q", got)
	}
}
