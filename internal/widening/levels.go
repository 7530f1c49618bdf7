package widening

import (
	"fmt"
	"math"
	"strings"

	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/utils"
)

const (
	LevelExact              = "exact"
	LevelFlexibleBeds       = "flexible_beds"
	LevelFlexibleBudgetBeds = "flexible_budget_beds"
	LevelLocationOnly       = "location_only"
	LevelFailed             = "failed"

	budgetFlex = 0.10
)

// Adjustment documents one relaxation applied to the buyer's original criteria.
type Adjustment struct {
	Field       string `json:"field" mapstructure:"field"`
	From        string `json:"from" mapstructure:"from"`
	To          string `json:"to" mapstructure:"to"`
	Description string `json:"description" mapstructure:"description"`
}

// Level is one named way of deriving search criteria from the original ones.
// Relax must not modify its input; it returns false when nothing changed.
type Level struct {
	Name  string
	Relax func(c listing.SearchCriteria) (listing.SearchCriteria, []Adjustment, bool)
}

// DefaultLevels is the order used when none is configured.
var DefaultLevels = []string{LevelExact, LevelFlexibleBeds, LevelFlexibleBudgetBeds}

var registry = map[string]Level{
	LevelExact:              {Name: LevelExact, Relax: exact},
	LevelFlexibleBeds:       {Name: LevelFlexibleBeds, Relax: flexibleBeds},
	LevelFlexibleBudgetBeds: {Name: LevelFlexibleBudgetBeds, Relax: flexibleBudgetBeds},
}

// Levels resolves level names in order.
func Levels(names []string) ([]Level, error) {
	if len(names) == 0 {
		names = DefaultLevels
	}

	out := make([]Level, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		lvl, ok := registry[name]
		if !ok {
			return nil, fmt.Errorf("unknown widening level %q", name)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("widening level %q is listed twice", name)
		}
		seen[name] = struct{}{}
		out = append(out, lvl)
	}
	return out, nil
}

func exact(c listing.SearchCriteria) (listing.SearchCriteria, []Adjustment, bool) {
	return clone(c), nil, true
}

func flexibleBeds(c listing.SearchCriteria) (listing.SearchCriteria, []Adjustment, bool) {
	out := clone(c)
	adj, ok := relaxRooms(&out)
	if !ok {
		return out, nil, false
	}
	return out, []Adjustment{adj}, true
}

func flexibleBudgetBeds(c listing.SearchCriteria) (listing.SearchCriteria, []Adjustment, bool) {
	out := clone(c)

	var adjustments []Adjustment
	if adj, ok := relaxBudget(&out); ok {
		adjustments = append(adjustments, adj)
	}
	if adj, ok := relaxRooms(&out); ok {
		adjustments = append(adjustments, adj)
	}
	return out, adjustments, len(adjustments) > 0
}

func locationOnly(c listing.SearchCriteria) (listing.SearchCriteria, []Adjustment) {
	out := listing.SearchCriteria{
		Areas: append([]string(nil), c.Areas...),
		Limit: c.Limit,
	}

	from := describeCriteria(c)
	to := "any home"
	if len(out.Areas) > 0 {
		to = "any home in " + strings.Join(out.Areas, ", ")
	}
	return out, []Adjustment{{
		Field:       "criteria",
		From:        from,
		To:          to,
		Description: "Dropped budget, room and home type filters and kept only the preferred areas",
	}}
}

// relaxRooms lowers bedrooms and bathrooms by one, never below one. It reports one combined adjustment.
func relaxRooms(c *listing.SearchCriteria) (Adjustment, bool) {
	beds, bedsChanged := lowerInt(c.MinBedrooms)
	baths, bathsChanged := lowerFloat(c.MinBathrooms)
	if !bedsChanged && !bathsChanged {
		return Adjustment{}, false
	}

	adj := Adjustment{
		Field:       "bedrooms_bathrooms",
		From:        describeRooms(c.MinBedrooms, c.MinBathrooms),
		To:          describeRooms(beds, baths),
		Description: "Allowed one fewer bedroom and bathroom",
	}
	c.MinBedrooms, c.MinBathrooms = beds, baths
	return adj, true
}

func relaxBudget(c *listing.SearchCriteria) (Adjustment, bool) {
	if c.BudgetMin == nil && c.BudgetMax == nil {
		return Adjustment{}, false
	}

	from := describeBudget(c.BudgetMin, c.BudgetMax)
	if c.BudgetMin != nil {
		c.BudgetMin = listing.Ptr(math.Round(*c.BudgetMin * (1 - budgetFlex)))
	}
	if c.BudgetMax != nil {
		c.BudgetMax = listing.Ptr(math.Round(*c.BudgetMax * (1 + budgetFlex)))
	}
	to := describeBudget(c.BudgetMin, c.BudgetMax)
	if from == to {
		return Adjustment{}, false
	}

	return Adjustment{
		Field:       "budget",
		From:        from,
		To:          to,
		Description: fmt.Sprintf("Widened the budget by %s on both ends", utils.Percent(budgetFlex)),
	}, true
}

func lowerInt(v *int) (*int, bool) {
	if v == nil || *v <= 1 {
		return v, false
	}
	return listing.Ptr(*v - 1), true
}

func lowerFloat(v *float64) (*float64, bool) {
	if v == nil || *v <= 1 {
		return v, false
	}
	return listing.Ptr(math.Max(1, *v-1)), true
}

func clone(c listing.SearchCriteria) listing.SearchCriteria {
	out := listing.SearchCriteria{HomeType: c.HomeType, Limit: c.Limit}
	if c.BudgetMin != nil {
		out.BudgetMin = listing.Ptr(*c.BudgetMin)
	}
	if c.BudgetMax != nil {
		out.BudgetMax = listing.Ptr(*c.BudgetMax)
	}
	if c.MinBedrooms != nil {
		out.MinBedrooms = listing.Ptr(*c.MinBedrooms)
	}
	if c.MinBathrooms != nil {
		out.MinBathrooms = listing.Ptr(*c.MinBathrooms)
	}
	if c.Areas != nil {
		out.Areas = append([]string(nil), c.Areas...)
	}
	return out
}

func describeRooms(beds *int, baths *float64) string {
	parts := make([]string, 0, 2)
	if beds != nil {
		parts = append(parts, fmt.Sprintf("%d+ bd", *beds))
	}
	if baths != nil {
		parts = append(parts, fmt.Sprintf("%g+ ba", *baths))
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " / ")
}

func describeBudget(min, max *float64) string {
	switch {
	case min != nil && max != nil:
		return utils.Money(*min) + "-" + utils.Money(*max)
	case max != nil:
		return "up to " + utils.Money(*max)
	case min != nil:
		return "from " + utils.Money(*min)
	default:
		return "any"
	}
}

func describeCriteria(c listing.SearchCriteria) string {
	parts := make([]string, 0, 3)
	if c.BudgetMin != nil || c.BudgetMax != nil {
		parts = append(parts, describeBudget(c.BudgetMin, c.BudgetMax))
	}
	if c.MinBedrooms != nil || c.MinBathrooms != nil {
		parts = append(parts, describeRooms(c.MinBedrooms, c.MinBathrooms))
	}
	if c.HomeType != "" {
		parts = append(parts, c.HomeType)
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, ", ")
}
