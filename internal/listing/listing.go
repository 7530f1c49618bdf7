package listing

import (
	"fmt"
	"strings"

	"github.com/spigell/listing-advisor/internal/utils"
)

// Listing is a single property offered for sale by the inventory.
type Listing struct {
	ID           string       `json:"id,omitempty" mapstructure:"id"`
	Address      string       `json:"address,omitempty" mapstructure:"address"`
	City         string       `json:"city,omitempty" mapstructure:"city"`
	State        string       `json:"state,omitempty" mapstructure:"state"`
	Price        float64      `json:"price,omitempty" mapstructure:"price"`
	Bedrooms     *int         `json:"bedrooms,omitempty" mapstructure:"bedrooms"`
	Bathrooms    *float64     `json:"bathrooms,omitempty" mapstructure:"bathrooms"`
	Sqft         *float64     `json:"sqft,omitempty" mapstructure:"sqft"`
	PropertyType string       `json:"property_type,omitempty" mapstructure:"property_type"`
	YearBuilt    *int         `json:"year_built,omitempty" mapstructure:"year_built"`
	Features     []string     `json:"features,omitempty" mapstructure:"features"`
	Description  string       `json:"description,omitempty" mapstructure:"description"`
	Images       []string     `json:"images,omitempty" mapstructure:"images"`
	DaysOnMarket int          `json:"days_on_market,omitempty" mapstructure:"days_on_market"`
	PriceHistory PriceHistory `json:"price_history" mapstructure:"price_history"`
}

// PriceHistory summarizes how the asking price moved since the listing went live.
type PriceHistory struct {
	OriginalPrice  float64  `json:"original_price,omitempty" mapstructure:"original_price"`
	PriceCuts      int      `json:"price_cuts,omitempty" mapstructure:"price_cuts"`
	TotalReduction float64  `json:"total_reduction,omitempty" mapstructure:"total_reduction"`
	LastChangeDate string   `json:"last_change_date,omitempty" mapstructure:"last_change_date"`
	Trend          string   `json:"trend,omitempty" mapstructure:"trend"`
	Flags          []string `json:"flags,omitempty" mapstructure:"flags"`
}

// TrendUp marks a listing whose asking price was raised.
const TrendUp = "up"

// Location returns "City, State", skipping empty parts.
func (l *Listing) Location() string {
	parts := make([]string, 0, 2)
	if c := strings.TrimSpace(l.City); c != "" {
		parts = append(parts, c)
	}
	if s := strings.TrimSpace(l.State); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// PricePerSqft returns the asking price per square foot and whether it could be computed.
func (l *Listing) PricePerSqft() (float64, bool) {
	if l.Price <= 0 || !utils.Finite(l.Price) || l.Sqft == nil || *l.Sqft <= 0 || !utils.Finite(*l.Sqft) {
		return 0, false
	}
	ppsf := l.Price / *l.Sqft
	if !utils.Finite(ppsf) {
		return 0, false
	}
	return ppsf, true
}

// Text is the lower-cased searchable text of the listing: features followed by description.
func (l *Listing) Text() string {
	var b strings.Builder
	for _, f := range l.Features {
		b.WriteString(strings.ToLower(f))
		b.WriteString(" ")
	}
	b.WriteString(strings.ToLower(l.Description))
	return b.String()
}

// HasImages reports whether at least one non-empty image reference is attached.
func (l *Listing) HasImages() bool {
	for _, img := range l.Images {
		if strings.TrimSpace(img) != "" {
			return true
		}
	}
	return false
}

// Title is a short human label used in logs and prompts.
func (l *Listing) Title() string {
	addr := strings.TrimSpace(l.Address)
	loc := l.Location()
	switch {
	case addr != "" && loc != "":
		return fmt.Sprintf("%s, %s", addr, loc)
	case addr != "":
		return addr
	case loc != "":
		return loc
	default:
		return l.ID
	}
}

// Ptr returns a pointer to v. Handy for optional numeric fields.
func Ptr[T any](v T) *T {
	return &v
}
