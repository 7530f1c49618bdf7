package listing

// BuyerProfile is the requirement profile of a buyer an agent is searching for.
type BuyerProfile struct {
	ID             string   `json:"id,omitempty" mapstructure:"id"`
	Name           string   `json:"name,omitempty" mapstructure:"name"`
	BudgetMin      *float64 `json:"budget_min,omitempty" mapstructure:"budget_min"`
	BudgetMax      *float64 `json:"budget_max,omitempty" mapstructure:"budget_max"`
	Bedrooms       *int     `json:"bedrooms,omitempty" mapstructure:"bedrooms"`
	Bathrooms      *float64 `json:"bathrooms,omitempty" mapstructure:"bathrooms"`
	HomeType       string   `json:"home_type,omitempty" mapstructure:"home_type"`
	MustHaves      []string `json:"must_haves,omitempty" mapstructure:"must_haves"`
	Dealbreakers   []string `json:"dealbreakers,omitempty" mapstructure:"dealbreakers"`
	PreferredAreas []string `json:"preferred_areas,omitempty" mapstructure:"preferred_areas"`
	Tags           []Tag    `json:"tags,omitempty" mapstructure:"tags"`
}

// Tag is a weighted behavioral hint about the buyer, e.g. {lifestyle, home office, 2}.
type Tag struct {
	Category string  `json:"category" mapstructure:"category"`
	Value    string  `json:"value" mapstructure:"value"`
	Weight   float64 `json:"weight,omitempty" mapstructure:"weight"`
}

// SearchCriteria is the subset of a profile sent to a listing search collaborator.
// Nil and empty fields are not filtered on.
type SearchCriteria struct {
	BudgetMin    *float64 `json:"budget_min,omitempty" mapstructure:"budget_min"`
	BudgetMax    *float64 `json:"budget_max,omitempty" mapstructure:"budget_max"`
	MinBedrooms  *int     `json:"min_bedrooms,omitempty" mapstructure:"min_bedrooms"`
	MinBathrooms *float64 `json:"min_bathrooms,omitempty" mapstructure:"min_bathrooms"`
	Areas        []string `json:"areas,omitempty" mapstructure:"areas"`
	HomeType     string   `json:"home_type,omitempty" mapstructure:"home_type"`
	Limit        int      `json:"limit,omitempty" mapstructure:"limit"`
}

// Criteria builds exact search criteria from the profile. The profile is not modified.
func (p *BuyerProfile) Criteria() SearchCriteria {
	c := SearchCriteria{HomeType: p.HomeType}
	if p.BudgetMin != nil {
		c.BudgetMin = Ptr(*p.BudgetMin)
	}
	if p.BudgetMax != nil {
		c.BudgetMax = Ptr(*p.BudgetMax)
	}
	if p.Bedrooms != nil {
		c.MinBedrooms = Ptr(*p.Bedrooms)
	}
	if p.Bathrooms != nil {
		c.MinBathrooms = Ptr(*p.Bathrooms)
	}
	if len(p.PreferredAreas) > 0 {
		c.Areas = append([]string(nil), p.PreferredAreas...)
	}
	return c
}
