package scoring

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/tables"
	"github.com/spigell/listing-advisor/internal/utils"
)

const (
	weightBudget   = 0.20
	weightFeature  = 0.25
	weightBedroom  = 0.20
	weightLocation = 0.15
	weightTag      = 0.20

	dealbreakerPenalty = -0.5
	imageBonus         = 0.15

	// rentalPriceCeiling separates monthly rents that leaked into a sale search from real asking prices.
	rentalPriceCeiling = 10000

	fallbackReason = "Listing is available but could not be compared against the buyer's criteria."
)

const (
	LabelPerfect   = "Perfect Match"
	LabelExcellent = "Excellent Fit"
	LabelWorth     = "Worth Considering"
	LabelTradeOffs = "Consider with Trade-offs"
	LabelAvailable = "Available Option"
)

// Breakdown keeps every sub-score that contributed to a match score.
type Breakdown struct {
	Budget             float64 `json:"budget" mapstructure:"budget"`
	Bedrooms           float64 `json:"bedrooms" mapstructure:"bedrooms"`
	Features           float64 `json:"features" mapstructure:"features"`
	Location           float64 `json:"location" mapstructure:"location"`
	Tags               float64 `json:"tags" mapstructure:"tags"`
	DealbreakerPenalty float64 `json:"dealbreaker_penalty" mapstructure:"dealbreaker_penalty"`
	ImageBonus         float64 `json:"image_bonus" mapstructure:"image_bonus"`
}

// ScoredListing is a listing together with its match evaluation against one buyer.
type ScoredListing struct {
	Listing          listing.Listing `json:"listing" mapstructure:"listing"`
	MatchScore       float64         `json:"match_score" mapstructure:"match_score"`
	Label            string          `json:"label" mapstructure:"label"`
	MatchedFeatures  []string        `json:"matched_features" mapstructure:"matched_features"`
	MissingFeatures  []string        `json:"missing_features" mapstructure:"missing_features"`
	DealbreakerFlags []string        `json:"dealbreaker_flags" mapstructure:"dealbreaker_flags"`
	Breakdown        Breakdown       `json:"breakdown" mapstructure:"breakdown"`
	Reason           string          `json:"reason" mapstructure:"reason"`
}

// Scorer computes weighted match scores. It holds only read-only lookup tables
// and is safe for concurrent use.
type Scorer struct {
	tables *tables.Tables
}

// New returns a scorer over the given tables. Nil selects the embedded defaults.
func New(t *tables.Tables) *Scorer {
	if t == nil {
		t = tables.Default()
	}
	return &Scorer{tables: t}
}

// Score evaluates a listing for a buyer. tags overrides the profile tags when non-nil.
// A nil profile is treated as a buyer without requirements.
func (s *Scorer) Score(l listing.Listing, p *listing.BuyerProfile, tags []listing.Tag) ScoredListing {
	if p == nil {
		p = &listing.BuyerProfile{}
	}
	clean := p.Sanitized()
	p = &clean
	l = l.Sanitized()
	if tags == nil {
		tags = p.Tags
	}

	text := l.Text()
	matched, missing := s.matchFeatures(text, p.MustHaves)
	flags := s.matchDealbreakers(text, p.Dealbreakers)

	b := Breakdown{
		Budget:             budgetScore(l.Price, p.BudgetMin, p.BudgetMax),
		Bedrooms:           bedroomScore(l.Bedrooms, p.Bedrooms),
		Features:           featureScore(len(matched), len(p.MustHaves)),
		Location:           locationScore(l.Location(), p.PreferredAreas),
		Tags:               s.tagScore(text, tags),
		DealbreakerPenalty: dealbreakerPenalty * float64(len(flags)),
	}

	score := clamp01(weightBudget*b.Budget +
		weightFeature*b.Features +
		weightBedroom*b.Bedrooms +
		weightLocation*b.Location +
		weightTag*b.Tags +
		b.DealbreakerPenalty)

	if l.HasImages() {
		b.ImageBonus = imageBonus
		score = math.Min(1, score+imageBonus)
	}

	return ScoredListing{
		Listing:          l,
		MatchScore:       score,
		Label:            Label(score),
		MatchedFeatures:  matched,
		MissingFeatures:  missing,
		DealbreakerFlags: flags,
		Breakdown:        b,
		Reason:           s.reason(l, p, b, matched, missing),
	}
}

// Label maps a match score to its qualitative label.
func Label(score float64) string {
	switch {
	case score >= 0.85:
		return LabelPerfect
	case score >= 0.75:
		return LabelExcellent
	case score >= 0.65:
		return LabelWorth
	case score >= 0.45:
		return LabelTradeOffs
	default:
		return LabelAvailable
	}
}

func budgetScore(price float64, min, max *float64) float64 {
	if price <= 0 || !utils.Finite(price) {
		return 0.5
	}
	if price < rentalPriceCeiling {
		return 0.3
	}
	if max == nil || !utils.Finite(*max) {
		return 0.5
	}

	hi := *max
	lo := 0.0
	if min != nil && utils.Finite(*min) {
		lo = *min
	}
	if lo > hi {
		lo = hi
	}

	if price >= lo && price <= hi {
		return 1.0
	}

	tolerance := 0.10 * (hi - lo)
	if tolerance <= 0 {
		tolerance = 0.10 * hi
	}
	if tolerance <= 0 {
		return 0
	}

	distance := lo - price
	if price > hi {
		distance = price - hi
	}
	return math.Max(0, 1-distance/tolerance)
}

func bedroomScore(have, want *int) float64 {
	if have == nil || want == nil {
		return 0.5
	}

	diff := *have - *want
	if diff < 0 {
		diff = -diff
	}

	switch diff {
	case 0:
		return 1.0
	case 1:
		return 0.7
	case 2:
		return 0.4
	default:
		return 0.1
	}
}

func featureScore(matched, total int) float64 {
	if total == 0 {
		return 0.5
	}
	return float64(matched) / float64(total)
}

func (s *Scorer) matchFeatures(text string, mustHaves []string) (matched, missing []string) {
	matched, missing = []string{}, []string{}
	for _, f := range mustHaves {
		if tables.ContainsAny(text, s.tables.ExpandFeature(f)) {
			matched = append(matched, f)
			continue
		}
		missing = append(missing, f)
	}
	return matched, missing
}

func (s *Scorer) matchDealbreakers(text string, dealbreakers []string) []string {
	flags := []string{}
	for _, d := range dealbreakers {
		if tables.ContainsAny(text, s.tables.ExpandDealbreaker(d)) {
			flags = append(flags, d)
		}
	}
	return flags
}

func locationScore(location string, areas []string) float64 {
	if len(areas) == 0 {
		return 0.7
	}

	loc := strings.ToLower(location)
	for _, a := range areas {
		if a = tables.Normalize(a); a != "" && strings.Contains(loc, a) {
			return 1.0
		}
	}
	for _, a := range areas {
		if wordOverlap(a, loc) > 0.5 {
			return 0.6
		}
	}
	return 0.3
}

// wordOverlap is the Jaccard similarity of the word sets of a and b.
func wordOverlap(a, b string) float64 {
	wa, wb := words(a), words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func words(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		out[f] = struct{}{}
	}
	return out
}

func (s *Scorer) tagScore(text string, tags []listing.Tag) float64 {
	if len(tags) == 0 {
		return 0.5
	}

	var sum, weights float64
	for _, tag := range tags {
		w := tag.Weight
		if w <= 0 || !utils.Finite(w) {
			w = 1
		}

		v := 0.3
		switch value := tables.Normalize(tag.Value); {
		case value != "" && strings.Contains(text, value):
			v = 1.0
		case tables.ContainsAny(text, s.tables.CategoryKeywords(tag.Category)):
			v = 0.8
		}

		sum += v * w
		weights += w
	}
	return sum / weights
}

func (s *Scorer) reason(l listing.Listing, p *listing.BuyerProfile, b Breakdown, matched, missing []string) string {
	var matches, gaps []string

	if p.BudgetMax != nil && b.Budget == 1.0 {
		matches = append(matches, "within budget")
	}
	if l.Price >= rentalPriceCeiling && p.BudgetMax != nil && l.Price > *p.BudgetMax {
		gaps = append(gaps, fmt.Sprintf("%s over budget", utils.Money(l.Price-*p.BudgetMax)))
	}
	if l.Price >= rentalPriceCeiling && p.BudgetMin != nil && l.Price < *p.BudgetMin {
		gaps = append(gaps, fmt.Sprintf("%s under your minimum budget", utils.Money(*p.BudgetMin-l.Price)))
	}

	if l.Bedrooms != nil && p.Bedrooms != nil {
		have, want := *l.Bedrooms, *p.Bedrooms
		switch {
		case have == want:
			matches = append(matches, fmt.Sprintf("exactly %s", plural(have, "bedroom")))
		case have > want:
			matches = append(matches, fmt.Sprintf("%s (%d extra)", plural(have, "bedroom"), have-want))
		default:
			gaps = append(gaps, fmt.Sprintf("%s short", plural(want-have, "bedroom")))
		}
	}

	if len(matched) > 0 {
		matches = append(matches, "includes "+strings.Join(matched, ", "))
	}

	if strings.TrimSpace(p.HomeType) != "" && strings.TrimSpace(l.PropertyType) != "" &&
		!s.tables.SameHomeType(l.PropertyType, p.HomeType) {
		gaps = append(gaps, fmt.Sprintf("%s instead of %s", strings.ToLower(l.PropertyType), strings.ToLower(p.HomeType)))
	}

	if len(p.PreferredAreas) > 0 {
		if b.Location == 1.0 {
			matches = append(matches, "in "+l.Location())
		} else {
			gaps = append(gaps, "outside "+strings.Join(p.PreferredAreas, ", "))
		}
	}

	if len(missing) > 0 {
		gaps = append(gaps, "missing "+strings.Join(missing, ", "))
	}

	var out string
	switch {
	case len(matches) > 0 && len(gaps) > 0:
		out = strings.Join(matches, ", ") + "; but " + strings.Join(gaps, ", ") + "."
	case len(matches) > 0:
		out = strings.Join(matches, ", ") + "."
	case len(gaps) > 0:
		out = strings.Join(gaps, ", ") + "."
	default:
		return fallbackReason
	}
	return capitalize(out)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func capitalize(s string) string {
	r := []rune(s)
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
