package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/listing-advisor/internal/utils"
)

const (
	topPickThreshold    = 0.35
	otherMatchThreshold = 0.25

	maxTopPicks     = 5
	maxOtherMatches = 10
)

// Categories are the display tiers of a scored batch.
type Categories struct {
	TopPicks     []ScoredListing `json:"top_picks" mapstructure:"top_picks"`
	OtherMatches []ScoredListing `json:"other_matches" mapstructure:"other_matches"`
}

// Categorize splits a batch into tiers sorted by descending score.
// Listings scoring below the other-matches threshold are dropped.
func Categorize(scored []ScoredListing) Categories {
	sorted := make([]ScoredListing, len(scored))
	copy(sorted, scored)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MatchScore > sorted[j].MatchScore
	})

	c := Categories{TopPicks: []ScoredListing{}, OtherMatches: []ScoredListing{}}
	for _, s := range sorted {
		switch {
		case s.MatchScore >= topPickThreshold:
			if len(c.TopPicks) < maxTopPicks {
				c.TopPicks = append(c.TopPicks, s)
			}
		case s.MatchScore >= otherMatchThreshold:
			if len(c.OtherMatches) < maxOtherMatches {
				c.OtherMatches = append(c.OtherMatches, s)
			}
		}
	}
	return c
}

// Summaries renders top picks followed by other matches.
func Summaries(c Categories) []string {
	out := make([]string, 0, len(c.TopPicks)+len(c.OtherMatches))
	for _, s := range c.TopPicks {
		out = append(out, FormatSummary(s))
	}
	for _, s := range c.OtherMatches {
		out = append(out, FormatSummary(s))
	}
	return out
}

// FormatSummary renders a compact multi-line block for one scored listing.
func FormatSummary(s ScoredListing) string {
	l := s.Listing

	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n", l.Title(), utils.Money(l.Price))

	rooms := make([]string, 0, 3)
	if l.Bedrooms != nil {
		rooms = append(rooms, fmt.Sprintf("%d bd", *l.Bedrooms))
	}
	if l.Bathrooms != nil {
		rooms = append(rooms, fmt.Sprintf("%g ba", *l.Bathrooms))
	}
	if l.Sqft != nil {
		rooms = append(rooms, utils.Thousands(*l.Sqft)+" sqft")
	}
	if len(rooms) > 0 {
		fmt.Fprintf(&b, "%s\n", strings.Join(rooms, " | "))
	}

	if len(s.MatchedFeatures) > 0 {
		fmt.Fprintf(&b, "Features: %s\n", strings.Join(s.MatchedFeatures, ", "))
	}
	fmt.Fprintf(&b, "%s\n", s.Reason)
	fmt.Fprintf(&b, "Match: %s (%s)", utils.Percent(s.MatchScore), s.Label)

	return b.String()
}
