package filtering

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/listing-advisor/internal/listing"
	"github.com/spigell/listing-advisor/internal/tables"
)

type dedupeFilter struct{}

// NewDedupe creates a filter that removes repeated listings. Two listings are the
// same when they share an id or a normalized address.
func NewDedupe() Filter {
	return &dedupeFilter{}
}

func (f *dedupeFilter) Name() string { return "dedupe" }

func (f *dedupeFilter) Disable(string) {}

func (f *dedupeFilter) IsEnabled() bool { return true }

func (f *dedupeFilter) Validate(*Config) error { return nil }

func (f *dedupeFilter) Apply(_ context.Context, deps Deps, v *listing.Listings) (*listing.Listings, Step, error) {
	initial := v.Len()

	seenIDs := make(map[string]struct{}, initial)
	seenAddr := make(map[string]struct{}, initial)
	var dropped []string

	kept := make([]*listing.Listing, 0, initial)
	for _, l := range v.Items {
		addr := ""
		if strings.TrimSpace(l.Address) != "" {
			addr = strings.ToLower(strings.Join(strings.Fields(l.Title()), " "))
		}

		_, dupID := seenIDs[l.ID]
		_, dupAddr := seenAddr[addr]
		if (l.ID != "" && dupID) || (addr != "" && dupAddr) {
			dropped = append(dropped, l.ID)
			continue
		}

		if l.ID != "" {
			seenIDs[l.ID] = struct{}{}
		}
		if addr != "" {
			seenAddr[addr] = struct{}{}
		}
		kept = append(kept, l)
	}
	v.Items = kept

	if len(dropped) > 0 {
		deps.Logger.Info("dropping duplicated listings",
			zap.Strings("duplicated_listings", dropped),
			zap.Int("listings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(dropped), Left: v.Len()}, nil
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile creates a filter that removes listings contained in the exclude file.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, deps Deps, v *listing.Listings) (*listing.Listings, Step, error) {
	initial := v.Len()
	if f.path == "" {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded, err := listing.GetExcludedListingsFromFile(f.path)
	if err != nil {
		return v, Step{}, fmt.Errorf("getting excluded listings from file: %w", err)
	}

	removed := v.Exclude(excluded.IDs())
	if len(removed) > 0 {
		deps.Logger.Info("excluding listings based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_listings", removed),
			zap.Int("listings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	return Status{
		Name:    f.Name(),
		Enabled: true,
		Details: map[string]string{"path": f.path},
	}
}

type dealbreakersFilter struct {
	disabled bool
	reason   string
}

// NewDealbreakers creates a filter that drops listings matching any buyer dealbreaker.
func NewDealbreakers() Filter {
	return &dealbreakersFilter{}
}

func (f *dealbreakersFilter) Name() string { return "dealbreakers" }

func (f *dealbreakersFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *dealbreakersFilter) Enable() {
	f.disabled = false
	f.reason = ""
}

func (f *dealbreakersFilter) IsEnabled() bool { return !f.disabled }

func (f *dealbreakersFilter) Validate(*Config) error { return nil }

func (f *dealbreakersFilter) Apply(_ context.Context, deps Deps, v *listing.Listings) (*listing.Listings, Step, error) {
	initial := v.Len()
	if deps.Profile == nil || len(deps.Profile.Dealbreakers) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	var ids []string
	for _, l := range v.Items {
		text := l.Text()
		for _, d := range deps.Profile.Dealbreakers {
			if tables.ContainsAny(text, deps.Tables.ExpandDealbreaker(d)) {
				ids = append(ids, l.ID)
				break
			}
		}
	}

	removed := v.Exclude(ids)
	if len(removed) > 0 {
		deps.Logger.Info("excluding listings with dealbreakers",
			zap.Strings("excluded_listings", removed),
			zap.Int("listings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *dealbreakersFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}
