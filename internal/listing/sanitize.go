package listing

import "github.com/spigell/listing-advisor/internal/utils"

// Sanitized returns a copy of the listing with non-finite numbers treated as absent.
func (l Listing) Sanitized() Listing {
	if !utils.Finite(l.Price) {
		l.Price = 0
	}
	l.Bathrooms = finiteOrNil(l.Bathrooms)
	l.Sqft = finiteOrNil(l.Sqft)
	if !utils.Finite(l.PriceHistory.OriginalPrice) {
		l.PriceHistory.OriginalPrice = 0
	}
	if !utils.Finite(l.PriceHistory.TotalReduction) {
		l.PriceHistory.TotalReduction = 0
	}
	return l
}

// Sanitized returns a copy of the profile with non-finite numbers treated as absent.
// A tag with a non-finite weight falls back to the default weight.
func (p BuyerProfile) Sanitized() BuyerProfile {
	p.BudgetMin = finiteOrNil(p.BudgetMin)
	p.BudgetMax = finiteOrNil(p.BudgetMax)
	p.Bathrooms = finiteOrNil(p.Bathrooms)

	copied := false
	for i, tag := range p.Tags {
		if utils.Finite(tag.Weight) {
			continue
		}
		// The caller's slice must stay untouched.
		if !copied {
			p.Tags = append([]Tag(nil), p.Tags...)
			copied = true
		}
		p.Tags[i].Weight = 0
	}
	return p
}

func finiteOrNil(v *float64) *float64 {
	if v == nil || !utils.Finite(*v) {
		return nil
	}
	return v
}

// Sanitized returns a copy of the criteria with non-finite bounds removed.
func (c SearchCriteria) Sanitized() SearchCriteria {
	c.BudgetMin = finiteOrNil(c.BudgetMin)
	c.BudgetMax = finiteOrNil(c.BudgetMax)
	c.MinBathrooms = finiteOrNil(c.MinBathrooms)
	return c
}
