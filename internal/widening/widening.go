package widening

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/spigell/listing-advisor/internal/listing"
)

const DefaultMinResults = 5

// Searcher is the listing inventory the service widens its queries against.
type Searcher interface {
	Search(ctx context.Context, c listing.SearchCriteria) ([]listing.Listing, error)
}

type Config struct {
	MinResults int      `mapstructure:"min-results"`
	Levels     []string `mapstructure:"levels"`
	Limit      int      `mapstructure:"limit"`
}

// Result is what a widened search produced. Error is set only for the failed level.
type Result struct {
	Listings    []listing.Listing      `json:"listings" mapstructure:"listings"`
	Level       string                 `json:"level" mapstructure:"level"`
	Adjustments []Adjustment           `json:"adjustments" mapstructure:"adjustments"`
	Total       int                    `json:"total" mapstructure:"total"`
	Criteria    listing.SearchCriteria `json:"criteria" mapstructure:"criteria"`
	Error       string                 `json:"error,omitempty" mapstructure:"error"`
}

type Service struct {
	searcher Searcher
	levels   []Level
	min      int
	limit    int
	logger   *zap.Logger
}

func New(searcher Searcher, cfg Config, logger *zap.Logger) (*Service, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}

	levels, err := Levels(cfg.Levels)
	if err != nil {
		return nil, err
	}

	minResults := cfg.MinResults
	if minResults <= 0 {
		minResults = DefaultMinResults
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		searcher: searcher,
		levels:   levels,
		min:      minResults,
		limit:    cfg.Limit,
		logger:   logger,
	}, nil
}

// outcome is the state of the fold after one level.
type outcome struct {
	result     Result
	sufficient bool
	// usable is false when the level was skipped, failed or found nothing.
	usable bool
}

// Search runs the configured levels in order and stops at the first one that finds
// enough listings. It never returns an error: failures end in a "failed" result.
func (s *Service) Search(ctx context.Context, p *listing.BuyerProfile) Result {
	if p == nil {
		p = &listing.BuyerProfile{}
	}

	original := p.Criteria().Sanitized()
	original.Limit = s.limit

	var last outcome
	for _, lvl := range s.levels {
		last = s.attempt(ctx, lvl, original)
		if last.sufficient {
			return last.result
		}
	}

	if last.usable {
		s.logger.Info("returning final widening level under the minimum",
			zap.String("level", last.result.Level),
			zap.Int("found", last.result.Total),
			zap.Int("min", s.min),
		)
		return last.result
	}

	return s.fallback(ctx, original)
}

func (s *Service) attempt(ctx context.Context, lvl Level, original listing.SearchCriteria) outcome {
	criteria, adjustments, changed := lvl.Relax(original)
	if !changed {
		s.logger.Debug("widening level skipped, criteria unchanged", zap.String("level", lvl.Name))
		return outcome{}
	}

	found, err := s.search(ctx, criteria)
	if err != nil {
		s.logger.Warn("widening level search failed",
			zap.String("level", lvl.Name),
			zap.Error(err),
		)
		return outcome{}
	}

	result := newResult(lvl.Name, found, adjustments, criteria)
	s.logger.Info("widening level",
		zap.String("level", lvl.Name),
		zap.Int("found", result.Total),
		zap.Int("min", s.min),
		zap.Int("adjustments", len(adjustments)),
	)

	return outcome{
		result:     result,
		sufficient: result.Total >= s.min,
		usable:     result.Total > 0,
	}
}

func (s *Service) fallback(ctx context.Context, original listing.SearchCriteria) Result {
	criteria, adjustments := locationOnly(original)

	found, err := s.search(ctx, criteria)
	if err != nil {
		s.logger.Error("location only fallback failed", zap.Error(err))
		return Result{
			Listings:    []listing.Listing{},
			Level:       LevelFailed,
			Adjustments: []Adjustment{},
			Criteria:    criteria,
			Error:       err.Error(),
		}
	}

	s.logger.Info("widening level",
		zap.String("level", LevelLocationOnly),
		zap.Int("found", len(found)),
		zap.Strings("areas", criteria.Areas),
	)
	return newResult(LevelLocationOnly, found, adjustments, criteria)
}

// search calls the collaborator and turns a panic into an error.
func (s *Service) search(ctx context.Context, c listing.SearchCriteria) (found []listing.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("search panicked: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.searcher.Search(ctx, c)
}

func newResult(level string, found []listing.Listing, adjustments []Adjustment, c listing.SearchCriteria) Result {
	if found == nil {
		found = []listing.Listing{}
	}
	if adjustments == nil {
		adjustments = []Adjustment{}
	}
	return Result{
		Listings:    found,
		Level:       level,
		Adjustments: adjustments,
		Total:       len(found),
		Criteria:    c,
	}
}

// AdjustmentSummary describes for the agent how the criteria were relaxed.
func AdjustmentSummary(r Result) string {
	if r.Level == LevelFailed {
		return "Search failed: " + r.Error
	}
	if len(r.Adjustments) == 0 {
		return "No adjustments: exact criteria."
	}

	parts := make([]string, 0, len(r.Adjustments))
	for _, a := range r.Adjustments {
		parts = append(parts, fmt.Sprintf("%s %s -> %s", a.Field, a.From, a.To))
	}
	return fmt.Sprintf("Level %s: %s.", r.Level, strings.Join(parts, "; "))
}

// ClientSummary is a buyer-facing sentence about the search.
func ClientSummary(r Result) string {
	homes := "homes"
	if r.Total == 1 {
		homes = "home"
	}

	switch {
	case r.Level == LevelFailed:
		return "We could not search listings right now. Please try again shortly."
	case r.Total == 0:
		return "No homes are available in your areas right now."
	case len(r.Adjustments) == 0:
		return fmt.Sprintf("Found %d %s matching all of your criteria.", r.Total, homes)
	}

	notes := make([]string, 0, len(r.Adjustments))
	for _, a := range r.Adjustments {
		if d := strings.TrimSpace(a.Description); d != "" {
			notes = append(notes, lowerFirst(d))
		}
	}
	if len(notes) == 0 {
		return fmt.Sprintf("Found %d %s after widening the search.", r.Total, homes)
	}
	return fmt.Sprintf("Found %d %s after we %s.", r.Total, homes, strings.Join(notes, " and "))
}

func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
