package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/listing-advisor/internal/listing"
)

// Columns are the listing columns shared by every store. payload keeps the full listing as JSON.
const Columns = "id, address, city, state, price, bedrooms, bathrooms, sqft, property_type, year_built, days_on_market, payload"

// Placeholder renders the n-th (1-based) bind parameter of a driver.
type Placeholder func(n int) string

// QuestionMark is the placeholder style of sqlite.
func QuestionMark(int) string { return "?" }

// Dollar is the placeholder style of postgres.
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// SearchQuery builds the select statement and its arguments for the criteria.
// Results are ordered by freshness, then id, so repeated searches are stable.
func SearchQuery(table string, c listing.SearchCriteria, ph Placeholder) (string, []any) {
	var (
		where []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return ph(len(args))
	}

	if c.BudgetMin != nil {
		where = append(where, "price >= "+bind(*c.BudgetMin))
	}
	if c.BudgetMax != nil {
		where = append(where, "price <= "+bind(*c.BudgetMax))
	}
	if c.MinBedrooms != nil {
		where = append(where, "bedrooms >= "+bind(*c.MinBedrooms))
	}
	if c.MinBathrooms != nil {
		where = append(where, "bathrooms >= "+bind(*c.MinBathrooms))
	}
	if ht := strings.TrimSpace(c.HomeType); ht != "" {
		where = append(where, "LOWER(property_type) LIKE "+bind("%"+strings.ToLower(ht)+"%"))
	}

	var areas []string
	for _, a := range c.Areas {
		if a = strings.TrimSpace(a); a != "" {
			areas = append(areas, "LOWER(city || ', ' || state) LIKE "+bind("%"+strings.ToLower(a)+"%"))
		}
	}
	if len(areas) > 0 {
		where = append(where, "("+strings.Join(areas, " OR ")+")")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT payload FROM %s", table)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY days_on_market ASC, id ASC")
	if c.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", c.Limit)
	}
	return b.String(), args
}

// Row returns the column values for a listing, in Columns order.
func Row(l listing.Listing) ([]any, error) {
	payload, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("encode listing %s: %w", l.ID, err)
	}
	return []any{
		l.ID, l.Address, l.City, l.State, l.Price,
		l.Bedrooms, l.Bathrooms, l.Sqft, l.PropertyType, l.YearBuilt,
		l.DaysOnMarket, string(payload),
	}, nil
}

// Decode restores a listing from its payload column.
func Decode(payload []byte) (listing.Listing, error) {
	var l listing.Listing
	if err := json.Unmarshal(payload, &l); err != nil {
		return listing.Listing{}, fmt.Errorf("decode listing payload: %w", err)
	}
	return l, nil
}
