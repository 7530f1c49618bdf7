package market

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/spigell/listing-advisor/internal/listing"
)

// home builds a 2,000 sqft listing priced at ppsf dollars per sqft.
func home(id string, ppsf float64, dom int, h listing.PriceHistory) listing.Listing {
	return listing.Listing{
		ID:           id,
		Price:        ppsf * 2000,
		Sqft:         listing.Ptr(2000.0),
		DaysOnMarket: dom,
		PriceHistory: h,
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	e := New(Config{}, nil)

	tests := []struct {
		name      string
		listing   listing.Listing
		marketMin float64
		priority  Priority
		lines     []string
	}{
		{
			name:     "below market strikes",
			listing:  home("a", 170, 20, listing.PriceHistory{}),
			priority: StrikeNow,
			lines:    []string{"20 DOM • No drops", "15% below market → Strike now"},
		},
		{
			name:      "lowest price per sqft is top value",
			listing:   home("a", 170, 20, listing.PriceHistory{}),
			marketMin: 170,
			priority:  StrikeNow,
			lines: []string{
				"20 DOM • No drops",
				"15% below market → Strike now",
				"Lowest price per sqft in search → Top value",
			},
		},
		{
			name:     "deep discount is rare",
			listing:  home("a", 140, 10, listing.PriceHistory{PriceCuts: 1}),
			priority: StrikeNow,
			lines:    []string{"10 DOM • 1 cut", "30% below market → Strike now", "25%+ under market → Rare discount"},
		},
		{
			name:     "discount with cuts means motivated seller",
			listing:  home("a", 176, 30, listing.PriceHistory{PriceCuts: 1}),
			priority: StrikeNow,
			lines: []string{
				"30 DOM • 1 cut",
				"12% below market → Strike now",
				"Discount + seller softening → Motivated seller",
			},
		},
		{
			name:     "walk away wins over lowball",
			listing:  home("a", 250, 130, listing.PriceHistory{PriceCuts: 3, OriginalPrice: 530000, TotalReduction: 30000}),
			priority: WalkAway,
			lines:    []string{"130 DOM • 3 cuts", "25% over market, 130 days stale → Walk away"},
		},
		{
			name:     "price increase while overpriced",
			listing:  home("a", 224, 15, listing.PriceHistory{Trend: "up"}),
			priority: WalkAway,
			lines: []string{
				"15 DOM • No drops",
				"Price raised while 12% over market → Erratic seller",
				"Irrational seller → Don't chase",
			},
		},
		{
			name:     "stale and never cut",
			listing:  home("a", 250, 90, listing.PriceHistory{}),
			priority: WalkAway,
			lines: []string{
				"90 DOM • No drops",
				"25% over market, 90 days stale → Walk away",
				"Overpriced with no movement → Don't chase",
			},
		},
		{
			name:     "investor listing is skipped",
			listing:  home("a", 150, 3, listing.PriceHistory{Flags: []string{"Investor special"}}),
			priority: Skip,
			lines:    []string{"3 DOM • No drops", "Flagged: Investor special"},
		},
		{
			name:     "overpriced stale investor listing only echoes flags",
			listing:  home("a", 250, 90, listing.PriceHistory{Flags: []string{"Investor special"}}),
			priority: Skip,
			lines:    []string{"90 DOM • No drops", "Flagged: Investor special"},
		},
		{
			name:     "investor listing with many cuts only echoes flags",
			listing:  home("a", 200, 40, listing.PriceHistory{PriceCuts: 3, Flags: []string{"Sold as-is"}}),
			priority: Skip,
			lines:    []string{"40 DOM • 3 cuts", "Flagged: Sold as-is"},
		},
		{
			name: "non-finite price history is ignored",
			listing: home("a", 200, 45, listing.PriceHistory{
				PriceCuts: 1, OriginalPrice: math.Inf(1), TotalReduction: math.NaN(),
			}),
			priority: Review,
			lines:    []string{"45 DOM • 1 cut", "Typical pricing for area → Review"},
		},
		{
			name:     "fresh listing at market",
			listing:  home("a", 196, 3, listing.PriceHistory{}),
			priority: ActNow,
			lines: []string{
				"3 DOM • No drops",
				"New listing, priced at market → Act now",
				"New + priced right → Move fast",
			},
		},
		{
			name:     "overpriced and stale with cuts",
			listing:  home("a", 230, 75, listing.PriceHistory{PriceCuts: 2, OriginalPrice: 480000, TotalReduction: 20000}),
			priority: Lowball,
			lines: []string{
				"75 DOM • 2 cuts",
				"15% over market, 75 DOM → Lowball",
				"Overpriced and stale → Open low",
			},
		},
		{
			name:     "bleeding seller",
			listing:  home("a", 200, 40, listing.PriceHistory{PriceCuts: 3}),
			priority: Lowball,
			lines:    []string{"40 DOM • 3 cuts", "3 price cuts → Seller bleeding out", "Seller bleeding out → Open low"},
		},
		{
			name:     "weakening seller without lowball trigger",
			listing:  home("a", 205, 45, listing.PriceHistory{PriceCuts: 1, OriginalPrice: 440000, TotalReduction: 30000}),
			priority: Review,
			lines:    []string{"45 DOM • 1 cut", "Down 7% from original → Seller weakening"},
		},
		{
			name:     "typical pricing",
			listing:  home("a", 200, 30, listing.PriceHistory{}),
			priority: Review,
			lines:    []string{"30 DOM • No drops", "Typical pricing for area → Review"},
		},
		{
			name:     "delusional but fresh stays in review",
			listing:  home("a", 270, 10, listing.PriceHistory{}),
			priority: Review,
			lines:    []string{"10 DOM • No drops", "35% over market → Delusional pricing"},
		},
		{
			name:     "no market data",
			listing:  listing.Listing{ID: "a", Price: 300000, DaysOnMarket: 12},
			priority: Review,
			lines:    []string{"12 DOM • No drops", "Review listing"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Classify(tt.listing, 200, tt.marketMin)
			if got.Priority != tt.priority {
				t.Fatalf("expected priority %s, got %s (%v)", tt.priority, got.Priority, got.StatusLines)
			}
			if !reflect.DeepEqual(got.StatusLines, tt.lines) {
				t.Fatalf("unexpected status lines:\n got %q\nwant %q", got.StatusLines, tt.lines)
			}
		})
	}
}

func TestClassifyLineCountInvariant(t *testing.T) {
	t.Parallel()

	e := New(Config{Tolerance: 0.5}, nil)

	for _, dom := range []int{0, 5, 61, 95, 130} {
		for _, cuts := range []int{0, 1, 2, 3} {
			for _, ppsf := range []float64{120, 170, 196, 200, 230, 250, 280} {
				for _, trend := range []string{"", "up", "down"} {
					for _, flags := range [][]string{nil, {"as-is"}, {"motivated"}} {
						h := listing.PriceHistory{PriceCuts: cuts, Trend: trend, Flags: flags, OriginalPrice: 500000, TotalReduction: float64(cuts) * 10000}
						got := e.Classify(home("x", ppsf, dom, h), 200, 170)

						if n := len(got.StatusLines); n < 2 || n > 3 {
							t.Fatalf("expected 2-3 lines, got %d: %v", n, got.StatusLines)
						}
						if (got.Priority == Skip || got.Priority == Review) && len(got.StatusLines) != 2 {
							t.Fatalf("%s must not carry a third line: %v", got.Priority, got.StatusLines)
						}
						if len(flags) == 1 && flags[0] == "as-is" && got.Priority != Skip {
							t.Fatalf("expected investor listing to be skipped, got %s", got.Priority)
						}
					}
				}
			}
		}
	}
}

func TestBenchmarksAndClassifyAll(t *testing.T) {
	t.Parallel()

	e := New(Config{}, nil)
	ls := []listing.Listing{
		home("a", 200, 30, listing.PriceHistory{}),
		home("b", 170, 30, listing.PriceHistory{}),
		home("c", 150, 30, listing.PriceHistory{Flags: []string{"Sold as-is"}}),
		home("d", 220, 30, listing.PriceHistory{}),
		{ID: "e", Price: 400000},
	}

	b := e.Benchmarks(ls)
	if b.AvgPPSF != 185 {
		t.Fatalf("expected average 185, got %v", b.AvgPPSF)
	}
	if b.MinDiscountPPSF != 170 {
		t.Fatalf("expected min discount 170, got %v", b.MinDiscountPPSF)
	}

	recs := e.ClassifyAll(ls)
	if len(recs) != len(ls) {
		t.Fatalf("expected %d recommendations, got %d", len(ls), len(recs))
	}
	for i := range ls {
		if recs[i].ListingID != ls[i].ID {
			t.Fatalf("order not preserved at %d: %s", i, recs[i].ListingID)
		}
	}
	if recs[1].Priority != StrikeNow || len(recs[1].StatusLines) != 3 {
		t.Fatalf("expected top value strike for b, got %+v", recs[1])
	}
	if recs[2].Priority != Skip {
		t.Fatalf("expected investor listing to be skipped, got %s", recs[2].Priority)
	}
	if recs[4].BelowMarketPct != nil {
		t.Fatalf("expected no market position without sqft")
	}

	if got := e.Benchmarks(nil); got != (Benchmark{}) {
		t.Fatalf("expected zero benchmark for empty batch, got %+v", got)
	}
}

func TestInvalidNumbersDoNotPoisonBenchmarks(t *testing.T) {
	t.Parallel()

	e := New(Config{}, nil)
	ls := []listing.Listing{
		home("a", 200, 30, listing.PriceHistory{}),
		home("b", 170, 30, listing.PriceHistory{}),
		{ID: "nan", Price: math.NaN(), Sqft: listing.Ptr(2000.0)},
		{ID: "inf", Price: math.Inf(1), Sqft: listing.Ptr(2000.0)},
		{ID: "neg", Price: 300000, Sqft: listing.Ptr(-2000.0)},
	}

	b := e.Benchmarks(ls)
	if b.AvgPPSF != 185 || b.MinDiscountPPSF != 170 {
		t.Fatalf("expected benchmarks from valid listings only, got %+v", b)
	}

	recs := e.ClassifyAll(ls)
	if recs[1].Priority != StrikeNow {
		t.Fatalf("expected b to strike, got %s %v", recs[1].Priority, recs[1].StatusLines)
	}
	for _, rec := range recs[2:] {
		if rec.Priority != Review || rec.BelowMarketPct != nil {
			t.Fatalf("%s: expected review without market position, got %+v", rec.ListingID, rec)
		}
	}
	if _, err := json.Marshal(recs); err != nil {
		t.Fatalf("recommendations do not serialize: %v", err)
	}

	for _, avg := range []float64{math.NaN(), math.Inf(1)} {
		got := e.Classify(home("x", 170, 30, listing.PriceHistory{}), avg, math.NaN())
		if got.Priority != Review || got.BelowMarketPct != nil {
			t.Fatalf("market average %v: expected unknown market, got %+v", avg, got)
		}
	}
}
