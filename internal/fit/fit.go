package fit

import (
	"fmt"
	"strings"

	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/tables"
	"github.com/spigell/listing-advisor/internal/utils"
)

type Kind string

const (
	Hard     Kind = "hard"
	Soft     Kind = "soft"
	Positive Kind = "positive"
)

const (
	maxHard  = 2
	maxSoft  = 2
	maxChips = 5

	hardPenalty = 30
	softPenalty = 10
)

// Chip is one short buyer-fit signal.
type Chip struct {
	Kind  Kind   `json:"kind" mapstructure:"kind"`
	Label string `json:"label" mapstructure:"label"`
}

type Result struct {
	Chips    []Chip `json:"chips" mapstructure:"chips"`
	FitScore int    `json:"fit_score" mapstructure:"fit_score"`
}

// Deriver builds capped chip lists. It is safe for concurrent use.
type Deriver struct {
	tables *tables.Tables
}

func New(t *tables.Tables) *Deriver {
	if t == nil {
		t = tables.Default()
	}
	return &Deriver{tables: t}
}

// Derive compares a listing with a buyer profile. Without a profile every listing fits.
func (d *Deriver) Derive(l listing.Listing, p *listing.BuyerProfile) Result {
	if p == nil {
		return Result{Chips: []Chip{}, FitScore: 100}
	}
	clean := p.Sanitized()
	p = &clean
	l = l.Sanitized()

	hard := limit(hardChips(l, p), maxHard)
	soft := limit(softChips(l, p), maxSoft)
	positive := limit(d.positiveChips(l, p), maxChips-len(hard)-len(soft))

	chips := make([]Chip, 0, len(hard)+len(soft)+len(positive))
	chips = append(chips, hard...)
	chips = append(chips, soft...)
	chips = append(chips, positive...)

	score := 100 - hardPenalty*len(hard) - softPenalty*len(soft)
	if score < 0 {
		score = 0
	}
	return Result{Chips: chips, FitScore: score}
}

func limit(chips []Chip, n int) []Chip {
	if n < 0 {
		n = 0
	}
	if len(chips) > n {
		return chips[:n]
	}
	return chips
}

// budgetRatio is price divided by max budget; false when either is unknown.
func budgetRatio(l listing.Listing, p *listing.BuyerProfile) (float64, bool) {
	if l.Price <= 0 || p.BudgetMax == nil || *p.BudgetMax <= 0 {
		return 0, false
	}
	return l.Price / *p.BudgetMax, true
}

func hardChips(l listing.Listing, p *listing.BuyerProfile) []Chip {
	var out []Chip

	if l.Bedrooms != nil && p.Bedrooms != nil && *l.Bedrooms < *p.Bedrooms {
		out = append(out, Chip{Kind: Hard, Label: fmt.Sprintf("%d beds (need %d)", *l.Bedrooms, *p.Bedrooms)})
	}
	if l.Bathrooms != nil && p.Bathrooms != nil && *l.Bathrooms < *p.Bathrooms {
		out = append(out, Chip{Kind: Hard, Label: fmt.Sprintf("%g ba (need %g)", *l.Bathrooms, *p.Bathrooms)})
	}
	if ratio, ok := budgetRatio(l, p); ok && ratio > 1.10 {
		out = append(out, Chip{Kind: Hard, Label: fmt.Sprintf("%s over budget", utils.Percent(ratio-1))})
	}
	if l.YearBuilt != nil && *l.YearBuilt > 0 && *l.YearBuilt < 1900 {
		out = append(out, Chip{Kind: Hard, Label: fmt.Sprintf("Built %d (rehab risk)", *l.YearBuilt)})
	}
	return out
}

func softChips(l listing.Listing, p *listing.BuyerProfile) []Chip {
	var out []Chip

	if ratio, ok := budgetRatio(l, p); ok && ratio >= 1.0 && ratio <= 1.10 {
		out = append(out, Chip{Kind: Soft, Label: "At budget limit"})
	}
	if l.YearBuilt != nil && *l.YearBuilt >= 1900 && *l.YearBuilt < 1960 {
		out = append(out, Chip{Kind: Soft, Label: fmt.Sprintf("Built %d (old build)", *l.YearBuilt)})
	}
	if l.Sqft != nil && *l.Sqft > 0 && *l.Sqft < 1200 {
		out = append(out, Chip{Kind: Soft, Label: utils.Thousands(*l.Sqft) + " sqft"})
	}
	return out
}

func (d *Deriver) positiveChips(l listing.Listing, p *listing.BuyerProfile) []Chip {
	var out []Chip

	if ratio, ok := budgetRatio(l, p); ok && ratio < 0.90 {
		out = append(out, Chip{Kind: Positive, Label: "Under budget"})
	}
	if l.Bedrooms != nil && p.Bedrooms != nil && *l.Bedrooms >= *p.Bedrooms {
		label := fmt.Sprintf("%d beds", *l.Bedrooms)
		if extra := *l.Bedrooms - *p.Bedrooms; extra > 0 {
			label = fmt.Sprintf("%s (+%d)", label, extra)
		}
		out = append(out, Chip{Kind: Positive, Label: label})
	}
	if l.Bathrooms != nil && p.Bathrooms != nil && *l.Bathrooms >= *p.Bathrooms {
		label := fmt.Sprintf("%g ba", *l.Bathrooms)
		if extra := *l.Bathrooms - *p.Bathrooms; extra > 0 {
			label = fmt.Sprintf("%s (+%g)", label, extra)
		}
		out = append(out, Chip{Kind: Positive, Label: label})
	}
	if pt := strings.TrimSpace(l.PropertyType); pt != "" && d.tables.SameHomeType(pt, p.HomeType) {
		out = append(out, Chip{Kind: Positive, Label: pt})
	}
	if city := strings.TrimSpace(l.City); city != "" && inAreas(city, p.PreferredAreas) {
		out = append(out, Chip{Kind: Positive, Label: "In " + city})
	}
	if l.YearBuilt != nil && *l.YearBuilt >= 2000 {
		out = append(out, Chip{Kind: Positive, Label: fmt.Sprintf("Built %d", *l.YearBuilt)})
	}
	return out
}

func inAreas(city string, areas []string) bool {
	c := tables.Normalize(city)
	for _, a := range areas {
		a = tables.Normalize(a)
		if a == "" {
			continue
		}
		if strings.Contains(a, c) || strings.Contains(c, a) {
			return true
		}
	}
	return false
}
