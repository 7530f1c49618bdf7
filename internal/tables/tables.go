package tables

import (
	"bytes"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/viper"
)

//go:embed tables.yaml
var defaultTables []byte

// Tables holds the versioned keyword lookups shared by the engines.
// Every key is a canonical lower-case term mapped to the substrings that count as a match.
type Tables struct {
	Version          int                 `mapstructure:"version"`
	Features         map[string][]string `mapstructure:"features"`
	Dealbreakers     map[string][]string `mapstructure:"dealbreakers"`
	InvestorKeywords []string            `mapstructure:"investor-keywords"`
	TagKeywords      map[string][]string `mapstructure:"tag-keywords"`
	HomeTypes        map[string][]string `mapstructure:"home-types"`
}

// Default returns the embedded tables. It panics only if the embedded file is broken.
func Default() *Tables {
	t, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("embedded tables are invalid: %v", err))
	}
	return t
}

// Load reads the embedded tables and merges the optional override file on top of them.
// Entries in the override file replace or extend the defaults key by key.
func Load(path string) (*Tables, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if err := v.ReadConfig(bytes.NewReader(defaultTables)); err != nil {
		return nil, fmt.Errorf("read embedded tables: %w", err)
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("merge tables file %q: %w", path, err)
		}
	}

	var t Tables
	if err := v.Unmarshal(&t); err != nil {
		return nil, fmt.Errorf("decode tables: %w", err)
	}

	t.normalize()
	return &t, nil
}

func (t *Tables) normalize() {
	t.Features = normalizeMap(t.Features)
	t.Dealbreakers = normalizeMap(t.Dealbreakers)
	t.TagKeywords = normalizeMap(t.TagKeywords)
	t.HomeTypes = normalizeMap(t.HomeTypes)
	t.InvestorKeywords = normalizeList(t.InvestorKeywords)
}

func normalizeMap(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, vs := range in {
		key := Normalize(k)
		if key == "" {
			continue
		}
		out[key] = normalizeList(vs)
	}
	return out
}

func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if n := Normalize(s); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Normalize lower-cases and trims a term.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ExpandFeature returns the term followed by its synonyms. Unknown terms expand to themselves.
func (t *Tables) ExpandFeature(term string) []string {
	return expand(t.Features, term)
}

// ExpandDealbreaker works like ExpandFeature over the dealbreaker table.
func (t *Tables) ExpandDealbreaker(term string) []string {
	return expand(t.Dealbreakers, term)
}

// CategoryKeywords returns the keywords attached to a tag category.
func (t *Tables) CategoryKeywords(category string) []string {
	return t.TagKeywords[Normalize(category)]
}

// HomeTypeGroup resolves a free-form home type to its canonical group.
// The second value is false when the type is not known.
func (t *Tables) HomeTypeGroup(homeType string) (string, bool) {
	n := Normalize(homeType)
	if n == "" {
		return "", false
	}
	if _, ok := t.HomeTypes[n]; ok {
		return n, true
	}

	keys := make([]string, 0, len(t.HomeTypes))
	for k := range t.HomeTypes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// The longest matching synonym wins: "townhouse style" must not resolve through "house".
	best, bestLen := "", 0
	for _, k := range keys {
		for _, syn := range t.HomeTypes[k] {
			if len(syn) > bestLen && strings.Contains(n, syn) {
				best, bestLen = k, len(syn)
			}
		}
	}
	return best, best != ""
}

// SameHomeType reports whether two free-form home types resolve to the same group.
// Unknown types fall back to a case-insensitive containment check.
func (t *Tables) SameHomeType(a, b string) bool {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return false
	}
	ga, okA := t.HomeTypeGroup(na)
	gb, okB := t.HomeTypeGroup(nb)
	if okA && okB {
		return ga == gb
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// IsInvestorFlag reports whether any flag contains an investor/as-is/builder keyword.
func (t *Tables) IsInvestorFlag(flags []string) bool {
	for _, f := range flags {
		if ContainsAny(Normalize(f), t.InvestorKeywords) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether text contains any of the terms as a substring.
// text and terms are expected to be lower-case already.
func ContainsAny(text string, terms []string) bool {
	for _, term := range terms {
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func expand(table map[string][]string, term string) []string {
	n := Normalize(term)
	if n == "" {
		return nil
	}

	out := []string{n}
	for _, syn := range table[n] {
		if syn != n {
			out = append(out, syn)
		}
	}
	return out
}
