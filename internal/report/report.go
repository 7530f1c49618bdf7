package report

import (
	"context"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/listing-advisor/internal/fit"
	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/market"
	"github.com/spigell/listing-advisor/internal/scoring"
	"github.com/spigell/listing-advisor/internal/tables"
	"github.com/spigell/listing-advisor/internal/widening"
)

// Evaluation is everything computed for one listing.
type Evaluation struct {
	Scored scoring.ScoredListing `json:"scored" mapstructure:"scored"`
	Market market.Recommendation `json:"market" mapstructure:"market"`
	Fit    fit.Result            `json:"fit" mapstructure:"fit"`
}

// Report is the serializable outcome of one buyer search.
type Report struct {
	GeneratedAt       time.Time             `json:"generated_at" mapstructure:"generated_at"`
	Profile           *listing.BuyerProfile `json:"profile,omitempty" mapstructure:"profile"`
	Search            *widening.Result      `json:"search,omitempty" mapstructure:"search"`
	AdjustmentSummary string                `json:"adjustment_summary,omitempty" mapstructure:"adjustment_summary"`
	ClientSummary     string                `json:"client_summary,omitempty" mapstructure:"client_summary"`
	Benchmark         market.Benchmark      `json:"benchmark" mapstructure:"benchmark"`
	Evaluations       []Evaluation          `json:"evaluations" mapstructure:"evaluations"`
	Categories        scoring.Categories    `json:"categories" mapstructure:"categories"`
	Summaries         []string              `json:"summaries" mapstructure:"summaries"`
}

// Evaluator runs the scoring, market and fit engines over a batch of listings.
type Evaluator struct {
	scorer  *scoring.Scorer
	market  *market.Engine
	fit     *fit.Deriver
	workers int
	logger  *zap.Logger
}

func New(t *tables.Tables, mcfg market.Config, workers int, logger *zap.Logger) *Evaluator {
	if t == nil {
		t = tables.Default()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		scorer:  scoring.New(t),
		market:  market.New(mcfg, t),
		fit:     fit.New(t),
		workers: workers,
		logger:  logger,
	}
}

// Evaluate evaluates every listing in parallel. The result keeps the input order.
// Listings not reached before ctx is done are left out.
func (e *Evaluator) Evaluate(ctx context.Context, p *listing.BuyerProfile, ls []listing.Listing) ([]Evaluation, market.Benchmark) {
	bench := e.market.Benchmarks(ls)
	out := make([]Evaluation, len(ls))
	done := make([]bool, len(ls))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(e.workers, len(ls))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = e.evaluate(ls[i], p, bench)
				done[i] = true
			}
		}()
	}

	for i := range ls {
		if ctx.Err() == nil {
			select {
			case <-ctx.Done():
			case jobs <- i:
				continue
			}
		}
		e.logger.Warn("evaluation interrupted", zap.Error(ctx.Err()), zap.Int("queued", i), zap.Int("total", len(ls)))
		break
	}
	close(jobs)
	wg.Wait()

	evaluated := make([]Evaluation, 0, len(ls))
	for i := range out {
		if done[i] {
			evaluated = append(evaluated, out[i])
		}
	}
	return evaluated, bench
}

func (e *Evaluator) evaluate(l listing.Listing, p *listing.BuyerProfile, b market.Benchmark) Evaluation {
	return Evaluation{
		Scored: e.scorer.Score(l, p, nil),
		Market: e.market.Classify(l, b.AvgPPSF, b.MinDiscountPPSF),
		Fit:    e.fit.Derive(l, p),
	}
}

// Build evaluates the listings of a widened search and assembles the report.
func (e *Evaluator) Build(ctx context.Context, p *listing.BuyerProfile, search widening.Result) Report {
	r := e.BuildListings(ctx, p, search.Listings)

	clean := make([]listing.Listing, 0, len(search.Listings))
	for _, l := range search.Listings {
		clean = append(clean, l.Sanitized())
	}
	search.Listings = clean
	search.Criteria = search.Criteria.Sanitized()
	r.Search = &search
	r.AdjustmentSummary = widening.AdjustmentSummary(search)
	r.ClientSummary = widening.ClientSummary(search)
	return r
}

// BuildListings evaluates an arbitrary batch, e.g. one loaded from a file.
func (e *Evaluator) BuildListings(ctx context.Context, p *listing.BuyerProfile, ls []listing.Listing) Report {
	evaluations, bench := e.Evaluate(ctx, p, ls)

	scored := make([]scoring.ScoredListing, 0, len(evaluations))
	for _, ev := range evaluations {
		scored = append(scored, ev.Scored)
	}
	categories := scoring.Categorize(scored)

	e.logger.Info("listings evaluated",
		zap.Int("listings", len(evaluations)),
		zap.Int("top_picks", len(categories.TopPicks)),
		zap.Int("other_matches", len(categories.OtherMatches)),
		zap.Float64("market_avg_ppsf", bench.AvgPPSF),
	)

	if p != nil {
		clean := p.Sanitized()
		p = &clean
	}

	return Report{
		GeneratedAt: time.Now().UTC(),
		Profile:     p,
		Benchmark:   bench,
		Evaluations: evaluations,
		Categories:  categories,
		Summaries:   scoring.Summaries(categories),
	}
}

// ByPriority groups evaluations by market priority, keeping their order.
func (r *Report) ByPriority() map[market.Priority][]Evaluation {
	out := make(map[market.Priority][]Evaluation)
	for _, ev := range r.Evaluations {
		out[ev.Market.Priority] = append(out[ev.Market.Priority], ev)
	}
	return out
}

// Find returns the evaluation of a listing id.
func (r *Report) Find(id string) (Evaluation, bool) {
	for _, ev := range r.Evaluations {
		if ev.Scored.Listing.ID == id {
			return ev, true
		}
	}
	return Evaluation{}, false
}
