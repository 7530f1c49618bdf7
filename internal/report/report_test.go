package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/market"
	"github.com/spigell/listing-advisor/internal/widening"
)

func batch(n int) []listing.Listing {
	out := make([]listing.Listing, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, listing.Listing{
			ID:           fmt.Sprintf("l-%02d", i),
			City:         "Austin",
			State:        "TX",
			Price:        float64(300000 + i*10000),
			Sqft:         listing.Ptr(2000.0),
			Bedrooms:     listing.Ptr(3),
			DaysOnMarket: 10 + i,
		})
	}
	return out
}

func profile() *listing.BuyerProfile {
	return &listing.BuyerProfile{
		BudgetMax:      listing.Ptr(400000.0),
		Bedrooms:       listing.Ptr(3),
		PreferredAreas: []string{"Austin"},
	}
}

func TestEvaluateKeepsOrder(t *testing.T) {
	t.Parallel()

	ls := batch(25)
	e := New(nil, market.Config{}, 4, nil)

	got, bench := e.Evaluate(context.Background(), profile(), ls)
	if len(got) != len(ls) {
		t.Fatalf("expected %d evaluations, got %d", len(ls), len(got))
	}
	for i := range ls {
		if got[i].Scored.Listing.ID != ls[i].ID || got[i].Market.ListingID != ls[i].ID {
			t.Fatalf("evaluation %d out of order: %s", i, got[i].Scored.Listing.ID)
		}
	}
	if bench.AvgPPSF <= 0 {
		t.Fatalf("expected a market average, got %+v", bench)
	}
}

func TestEvaluateMatchesSequentialEngines(t *testing.T) {
	t.Parallel()

	ls := batch(8)
	recs := market.New(market.Config{}, nil).ClassifyAll(ls)

	got, _ := New(nil, market.Config{}, 3, nil).Evaluate(context.Background(), profile(), ls)
	for i := range recs {
		if got[i].Market.Priority != recs[i].Priority {
			t.Fatalf("listing %s: expected %s, got %s", ls[i].ID, recs[i].Priority, got[i].Market.Priority)
		}
	}
}

func TestEvaluateCancelled(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.WarnLevel)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, _ := New(nil, market.Config{}, 2, zap.New(core)).Evaluate(ctx, profile(), batch(50))
	if len(got) != 0 {
		t.Fatalf("expected nothing evaluated after cancellation, got %d", len(got))
	}
	if logs.FilterMessage("evaluation interrupted").Len() != 1 {
		t.Fatalf("expected interruption to be logged")
	}
}

func TestEvaluateEmpty(t *testing.T) {
	t.Parallel()

	got, bench := New(nil, market.Config{}, 0, nil).Evaluate(context.Background(), nil, nil)
	if len(got) != 0 || bench != (market.Benchmark{}) {
		t.Fatalf("expected empty output, got %v %+v", got, bench)
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()

	ls := batch(12)
	search := widening.Result{
		Listings: ls,
		Level:    widening.LevelFlexibleBeds,
		Total:    len(ls),
		Adjustments: []widening.Adjustment{{
			Field:       "bedrooms_bathrooms",
			From:        "3+ bd",
			To:          "2+ bd",
			Description: "Allowed one fewer bedroom and bathroom",
		}},
	}

	r := New(nil, market.Config{}, 4, nil).Build(context.Background(), profile(), search)

	if len(r.Evaluations) != len(ls) {
		t.Fatalf("expected %d evaluations, got %d", len(ls), len(r.Evaluations))
	}
	if r.Search == nil || r.Search.Level != widening.LevelFlexibleBeds {
		t.Fatalf("expected search result to be attached, got %+v", r.Search)
	}
	if r.ClientSummary != "Found 12 homes after we allowed one fewer bedroom and bathroom." {
		t.Fatalf("unexpected client summary: %q", r.ClientSummary)
	}
	if len(r.Categories.TopPicks) > 5 || len(r.Categories.OtherMatches) > 10 {
		t.Fatalf("category caps exceeded: %d/%d", len(r.Categories.TopPicks), len(r.Categories.OtherMatches))
	}
	if len(r.Summaries) != len(r.Categories.TopPicks)+len(r.Categories.OtherMatches) {
		t.Fatalf("expected one summary per categorized listing")
	}

	if _, ok := r.Find("l-03"); !ok {
		t.Fatalf("expected to find l-03")
	}
	if _, ok := r.Find("missing"); ok {
		t.Fatalf("unexpected evaluation for unknown id")
	}

	var grouped int
	for _, evs := range r.ByPriority() {
		grouped += len(evs)
	}
	if grouped != len(r.Evaluations) {
		t.Fatalf("expected every evaluation grouped, got %d", grouped)
	}
}

func TestReportWithInvalidNumbersSerializes(t *testing.T) {
	t.Parallel()

	ls := batch(3)
	ls = append(ls,
		listing.Listing{ID: "nan", Price: math.NaN(), Sqft: listing.Ptr(2000.0), Bathrooms: listing.Ptr(math.Inf(1))},
		listing.Listing{ID: "inf", Price: 420000, Sqft: listing.Ptr(math.Inf(1)), PriceHistory: listing.PriceHistory{OriginalPrice: math.NaN()}},
	)
	p := profile()
	p.BudgetMin = listing.Ptr(math.NaN())
	p.Tags = []listing.Tag{{Category: "lifestyle", Value: "yard", Weight: math.Inf(1)}}

	search := widening.Result{
		Listings: ls,
		Level:    widening.LevelExact,
		Total:    len(ls),
		Criteria: listing.SearchCriteria{BudgetMin: listing.Ptr(math.NaN()), BudgetMax: listing.Ptr(400000.0)},
	}

	r := New(nil, market.Config{}, 2, nil).Build(context.Background(), p, search)

	valid := market.New(market.Config{}, nil).Benchmarks(batch(3))
	if r.Benchmark != valid {
		t.Fatalf("expected benchmarks of the valid listings %+v, got %+v", valid, r.Benchmark)
	}
	if ev, ok := r.Find("nan"); !ok || ev.Scored.Breakdown.Budget != 0.5 {
		t.Fatalf("expected neutral budget for nan price, got %+v", ev.Scored.Breakdown)
	}
	if !math.IsNaN(*p.BudgetMin) {
		t.Fatalf("caller profile was modified")
	}

	if _, err := json.Marshal(r); err != nil {
		t.Fatalf("report does not serialize: %v", err)
	}
}
