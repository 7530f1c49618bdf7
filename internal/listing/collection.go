package listing

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Listings is an ordered batch of listings returned by a search.
type Listings struct {
	Items []*Listing `json:"items"`
}

// ExcludedListings is the on-disk list of listings an agent does not want to see again.
type ExcludedListings struct {
	Items []*ExcludedListing
}

type ExcludedListing struct {
	ID         string
	Address    string
	Reason     string
	ExcludedAt time.Time
}

// FromSlice wraps plain values into a collection.
func FromSlice(items []Listing) *Listings {
	out := &Listings{Items: make([]*Listing, 0, len(items))}
	for i := range items {
		l := items[i]
		out.Items = append(out.Items, &l)
	}
	return out
}

// Values returns the listings as values, preserving order.
func (v *Listings) Values() []Listing {
	out := make([]Listing, 0, len(v.Items))
	for _, l := range v.Items {
		out = append(out, *l)
	}
	return out
}

func (v *Listings) Len() int {
	return len(v.Items)
}

func (v *Listings) FindByID(id string) *Listing {
	for _, l := range v.Items {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (v *Listings) IDs() []string {
	ids := make([]string, 0, len(v.Items))
	for _, l := range v.Items {
		ids = append(ids, l.ID)
	}
	return ids
}

// Exclude removes listings with the given ids and returns the removed ids. Order is preserved.
func (v *Listings) Exclude(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	var excluded []string
	kept := v.Items[:0]
	for _, l := range v.Items {
		if _, ok := drop[l.ID]; ok {
			excluded = append(excluded, l.ID)
			continue
		}
		kept = append(kept, l)
	}
	v.Items = kept

	return excluded
}

// ReportByCity groups a short description of every listing by its location.
func (v *Listings) ReportByCity() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, l := range v.Items {
		key := l.Location()
		if key == "" {
			key = "unknown"
		}

		entry := map[string]string{
			"id":      l.ID,
			"address": l.Address,
			"price":   fmt.Sprintf("%.0f", l.Price),
			"type":    l.PropertyType,
			"dom":     fmt.Sprintf("%d", l.DaysOnMarket),
		}
		if l.Bedrooms != nil {
			entry["bedrooms"] = fmt.Sprintf("%d", *l.Bedrooms)
		}
		if l.Bathrooms != nil {
			entry["bathrooms"] = fmt.Sprintf("%g", *l.Bathrooms)
		}

		report[key] = append(report[key], entry)
	}
	return report
}

// DumpToTmpFile writes the value as indented JSON into a new temp file and returns its name.
func DumpToTmpFile(pattern string, value any) (string, error) {
	file, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ToExcluded converts the listings into exclude file entries.
func (v *Listings) ToExcluded(reason string) *ExcludedListings {
	excluded := &ExcludedListings{}
	for _, l := range v.Items {
		excluded.Items = append(excluded.Items, &ExcludedListing{
			ID:         l.ID,
			Address:    l.Title(),
			Reason:     reason,
			ExcludedAt: time.Now().UTC(),
		})
	}
	return excluded
}

// GetExcludedListingsFromFile reads the exclude file. A missing or empty file yields an empty list.
func GetExcludedListingsFromFile(path string) (*ExcludedListings, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ExcludedListings{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedListings{}, nil
	}

	var excluded ExcludedListings
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, err
	}
	return &excluded, nil
}

func (e *ExcludedListings) Append(s *ExcludedListings) {
	e.Items = append(e.Items, s.Items...)
}

func (e *ExcludedListings) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, l := range e.Items {
		ids = append(ids, l.ID)
	}
	return ids
}

func (e *ExcludedListings) ToFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
