package inventory

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/listing-advisor/internal/listing"
)

// DecodeItems converts raw API items into listings. Listings without an id get a
// stable one derived from their address, or a random one when there is no address.
func DecodeItems(items []Item) ([]listing.Listing, error) {
	listings := make([]listing.Listing, 0, len(items))

	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           &listings,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(items); err != nil {
		return nil, err
	}

	for i := range listings {
		if strings.TrimSpace(listings[i].ID) == "" {
			listings[i].ID = syntheticID(&listings[i])
		}
	}
	return listings, nil
}

func syntheticID(l *listing.Listing) string {
	key := strings.ToLower(strings.TrimSpace(l.Title()))
	if key == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("listing:"+key)).String()
}

// LoadFile reads listings from a JSON file holding either an array or an {"items": [...]} envelope.
func LoadFile(path string) ([]listing.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read listings file: %w", err)
	}

	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse listings file %q: %w", path, err)
	}

	var list []interface{}
	switch v := raw.(type) {
	case []interface{}:
		list = v
	case map[string]interface{}:
		inner, ok := v["items"].([]interface{})
		if !ok {
			return nil, fmt.Errorf("listings file %q has no items array", path)
		}
		list = inner
	default:
		return nil, fmt.Errorf("listings file %q must contain an array of listings", path)
	}

	items := make([]Item, 0, len(list))
	for _, it := range list {
		items = append(items, it)
	}

	listings, err := DecodeItems(items)
	if err != nil {
		return nil, fmt.Errorf("decode listings file %q: %w", path, err)
	}
	return listings, nil
}
