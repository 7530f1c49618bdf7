package market

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/tables"
	"github.com/spigell/listing-advisor/internal/utils"
)

// Priority is the market-timing action suggested for a listing.
type Priority string

const (
	StrikeNow Priority = "STRIKE_NOW"
	ActNow    Priority = "ACT_NOW"
	Lowball   Priority = "LOWBALL"
	Review    Priority = "REVIEW"
	WalkAway  Priority = "WALK_AWAY"
	Skip      Priority = "SKIP"
)

const (
	DefaultTolerance = 0.01

	// epsilon absorbs float noise on percentage thresholds such as 30/200.
	epsilon = 1e-9

	meaningfulDropPct = 0.05
	freshDays         = 7
)

type Config struct {
	// Tolerance is the absolute price-per-sqft difference under which two values are equal.
	Tolerance float64 `mapstructure:"tolerance"`
}

// Recommendation is the classification of one listing. It always carries 2 or 3 status lines.
type Recommendation struct {
	ListingID      string   `json:"listing_id,omitempty" mapstructure:"listing_id"`
	Priority       Priority `json:"priority" mapstructure:"priority"`
	StatusLines    []string `json:"status_lines" mapstructure:"status_lines"`
	BelowMarketPct *float64 `json:"below_market_pct,omitempty" mapstructure:"below_market_pct"`
}

// Benchmark holds the market numbers a batch of listings is classified against.
type Benchmark struct {
	AvgPPSF         float64 `json:"avg_ppsf" mapstructure:"avg_ppsf"`
	MinDiscountPPSF float64 `json:"min_discount_ppsf" mapstructure:"min_discount_ppsf"`
}

// Engine classifies listings into market-timing priorities. It is stateless and safe for concurrent use.
type Engine struct {
	tolerance float64
	tables    *tables.Tables
}

func New(cfg Config, t *tables.Tables) *Engine {
	tol := cfg.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if t == nil {
		t = tables.Default()
	}
	return &Engine{tolerance: tol, tables: t}
}

// Classify assigns a priority and status lines to a listing.
// marketAvg and marketMin are prices per sqft; non-positive values mean unknown.
func (e *Engine) Classify(l listing.Listing, marketAvg, marketMin float64) Recommendation {
	if !utils.Finite(marketAvg) {
		marketAvg = 0
	}
	if !utils.Finite(marketMin) {
		marketMin = 0
	}
	s := e.signals(l.Sanitized(), marketAvg, marketMin)

	rec := Recommendation{
		ListingID:   l.ID,
		Priority:    Review,
		StatusLines: []string{factsLine(s), primaryLine(s)},
	}
	if s.hasBelow {
		below := s.below
		rec.BelowMarketPct = &below
	}

	for _, r := range priorityRules {
		if r.match(s) {
			rec.Priority = r.priority
			break
		}
	}

	if line, ok := combinedLine(rec.Priority, s); ok {
		rec.StatusLines = append(rec.StatusLines, line)
	}
	return rec
}

// Benchmarks computes the market average price per sqft of a batch and the lowest
// price per sqft among discount candidates (at least 5% under average, not investor).
func (e *Engine) Benchmarks(ls []listing.Listing) Benchmark {
	var sum float64
	var n int
	for i := range ls {
		if ppsf, ok := ls[i].PricePerSqft(); ok {
			sum += ppsf
			n++
		}
	}
	if n == 0 {
		return Benchmark{}
	}

	b := Benchmark{AvgPPSF: sum / float64(n)}
	ceiling := b.AvgPPSF * (1 - meaningfulDropPct)
	for i := range ls {
		ppsf, ok := ls[i].PricePerSqft()
		if !ok || ppsf > ceiling+epsilon || e.tables.IsInvestorFlag(ls[i].PriceHistory.Flags) {
			continue
		}
		if b.MinDiscountPPSF == 0 || ppsf < b.MinDiscountPPSF {
			b.MinDiscountPPSF = ppsf
		}
	}
	return b
}

// ClassifyAll classifies a batch against its own benchmarks. Order is preserved.
func (e *Engine) ClassifyAll(ls []listing.Listing) []Recommendation {
	b := e.Benchmarks(ls)
	out := make([]Recommendation, 0, len(ls))
	for i := range ls {
		out = append(out, e.Classify(ls[i], b.AvgPPSF, b.MinDiscountPPSF))
	}
	return out
}

type signals struct {
	dom           int
	cuts          int
	investor      bool
	hasBelow      bool
	below         float64
	dropPct       float64
	meaningful    bool
	priceIncrease bool
	topValue      bool
	flags         []string
}

func (e *Engine) signals(l listing.Listing, marketAvg, marketMin float64) signals {
	h := l.PriceHistory
	s := signals{
		dom:           l.DaysOnMarket,
		cuts:          h.PriceCuts,
		investor:      e.tables.IsInvestorFlag(h.Flags),
		priceIncrease: strings.EqualFold(strings.TrimSpace(h.Trend), listing.TrendUp),
		flags:         h.Flags,
	}

	if h.OriginalPrice > 0 && h.TotalReduction > 0 {
		s.dropPct = h.TotalReduction / h.OriginalPrice
		s.meaningful = s.dropPct >= meaningfulDropPct-epsilon
	}

	ppsf, ok := l.PricePerSqft()
	if ok && marketAvg > 0 {
		s.hasBelow = true
		s.below = (marketAvg - ppsf) / marketAvg
	}
	if ok && marketMin > 0 {
		s.topValue = math.Abs(ppsf-marketMin) <= e.tolerance
	}
	return s
}

func (s signals) belowAtLeast(pct float64) bool {
	return s.hasBelow && s.below >= pct-epsilon
}

func (s signals) overAtLeast(pct float64) bool {
	return s.hasBelow && -s.below >= pct-epsilon
}

func (s signals) over() float64 { return -s.below }

func (s signals) sellerMoving() bool {
	return s.cuts >= 2 || s.meaningful
}

func (s signals) freshAtMarket() bool {
	return s.dom < freshDays && s.cuts == 0 && s.hasBelow && s.below >= 0 && !s.belowAtLeast(0.05)
}

func (s signals) overpricedStale() bool {
	return s.overAtLeast(0.15) && s.dom >= 60
}

type priorityRule struct {
	priority Priority
	match    func(signals) bool
}

// priorityRules are evaluated in order; the first match wins, so later rules
// may assume every earlier rule failed.
var priorityRules = []priorityRule{
	{priority: Skip, match: func(s signals) bool { return s.investor }},
	{priority: WalkAway, match: func(s signals) bool {
		return (s.overAtLeast(0.20) && s.dom > 60) || (s.overAtLeast(0.10) && s.priceIncrease)
	}},
	{priority: StrikeNow, match: func(s signals) bool { return s.belowAtLeast(0.05) }},
	{priority: ActNow, match: signals.freshAtMarket},
	{priority: Lowball, match: func(s signals) bool {
		if s.priceIncrease || s.overAtLeast(0.20) || !s.sellerMoving() {
			return false
		}
		return s.cuts >= 3 ||
			(s.cuts >= 2 && s.dom > 90) ||
			(s.dom > 120 && s.meaningful) ||
			s.overpricedStale()
	}},
}

func factsLine(s signals) string {
	switch s.cuts {
	case 0:
		return fmt.Sprintf("%d DOM • No drops", s.dom)
	case 1:
		return fmt.Sprintf("%d DOM • 1 cut", s.dom)
	default:
		return fmt.Sprintf("%d DOM • %d cuts", s.dom, s.cuts)
	}
}

type lineRule struct {
	match  func(signals) bool
	render func(signals) string
}

// primaryRules pick the second status line for non-investor listings.
var primaryRules = []lineRule{
	{
		match: func(s signals) bool { return s.overAtLeast(0.30) },
		render: func(s signals) string {
			return fmt.Sprintf("%s over market → Delusional pricing", utils.Percent(s.over()))
		},
	},
	{
		match: func(s signals) bool { return s.overAtLeast(0.20) && s.dom > 60 },
		render: func(s signals) string {
			return fmt.Sprintf("%s over market, %d days stale → Walk away", utils.Percent(s.over()), s.dom)
		},
	},
	{
		match: func(s signals) bool { return s.priceIncrease && s.overAtLeast(0.10) },
		render: func(s signals) string {
			return fmt.Sprintf("Price raised while %s over market → Erratic seller", utils.Percent(s.over()))
		},
	},
	{
		match:  func(s signals) bool { return s.belowAtLeast(0.25) },
		render: strikeNowLine,
	},
	{
		match:  func(s signals) bool { return s.belowAtLeast(0.20) },
		render: strikeNowLine,
	},
	{
		match:  func(s signals) bool { return s.belowAtLeast(0.10) },
		render: strikeNowLine,
	},
	{
		match:  func(s signals) bool { return s.belowAtLeast(0.05) },
		render: strikeNowLine,
	},
	{
		match:  func(s signals) bool { return s.freshAtMarket() },
		render: func(signals) string { return "New listing, priced at market → Act now" },
	},
	{
		match: func(s signals) bool { return s.overpricedStale() },
		render: func(s signals) string {
			return fmt.Sprintf("%s over market, %d DOM → Lowball", utils.Percent(s.over()), s.dom)
		},
	},
	{
		match:  func(s signals) bool { return s.cuts >= 3 },
		render: func(s signals) string { return fmt.Sprintf("%d price cuts → Seller bleeding out", s.cuts) },
	},
	{
		match: func(s signals) bool { return s.sellerMoving() },
		render: func(s signals) string {
			if s.meaningful {
				return fmt.Sprintf("Down %s from original → Seller weakening", utils.Percent(s.dropPct))
			}
			return fmt.Sprintf("%d price cuts → Seller weakening", s.cuts)
		},
	},
	{
		match:  func(s signals) bool { return s.hasBelow && !s.overAtLeast(0.10) && !s.belowAtLeast(0.05) },
		render: func(signals) string { return "Typical pricing for area → Review" },
	},
	{
		match:  func(s signals) bool { return len(s.flags) > 0 },
		render: flagsLine,
	},
}

func flagsLine(s signals) string {
	return "Flagged: " + strings.Join(s.flags, ", ")
}

func strikeNowLine(s signals) string {
	return fmt.Sprintf("%s below market → Strike now", utils.Percent(s.below))
}

// primaryLine never offers an action to investor listings; they only echo their flags.
func primaryLine(s signals) string {
	if s.investor {
		return flagsLine(s)
	}
	for _, r := range primaryRules {
		if r.match(s) {
			return r.render(s)
		}
	}
	return "Review listing"
}

// combinedRules hold the optional third line per priority. Priorities without rules never get one.
var combinedRules = map[Priority][]lineRule{
	StrikeNow: {
		{
			match:  func(s signals) bool { return s.topValue },
			render: func(signals) string { return "Lowest price per sqft in search → Top value" },
		},
		{
			match:  func(s signals) bool { return s.belowAtLeast(0.25) },
			render: func(signals) string { return "25%+ under market → Rare discount" },
		},
		{
			match: func(s signals) bool {
				return s.belowAtLeast(0.10) && (s.cuts >= 1 || s.meaningful || s.dom > 60)
			},
			render: func(signals) string { return "Discount + seller softening → Motivated seller" },
		},
	},
	Lowball: {
		{
			match:  signals.overpricedStale,
			render: func(signals) string { return "Overpriced and stale → Open low" },
		},
		{
			match:  func(s signals) bool { return s.cuts >= 3 },
			render: func(signals) string { return "Seller bleeding out → Open low" },
		},
		{
			match:  func(signals) bool { return true },
			render: func(signals) string { return "Seller weakening → Room to negotiate" },
		},
	},
	WalkAway: {
		{
			match:  func(s signals) bool { return s.overAtLeast(0.30) },
			render: func(signals) string { return "Delusional pricing → Don't chase" },
		},
		{
			match:  func(s signals) bool { return s.priceIncrease },
			render: func(signals) string { return "Irrational seller → Don't chase" },
		},
		{
			match:  func(s signals) bool { return s.cuts == 0 && !s.meaningful },
			render: func(signals) string { return "Overpriced with no movement → Don't chase" },
		},
	},
	ActNow: {
		{
			match:  func(s signals) bool { return s.dom < freshDays },
			render: func(signals) string { return "New + priced right → Move fast" },
		},
	},
}

func combinedLine(p Priority, s signals) (string, bool) {
	for _, r := range combinedRules[p] {
		if r.match(s) {
			return r.render(s), true
		}
	}
	return "", false
}
