// Package classify assigns ledger entries to chat categories by regex, refusing to
// guess when more than one category claims an entry.
package classify

import (
	"regexp"
	"sort"

	"github.com/Veraticus/ledgerbot/internal/model"
)

// Claim records that a category matched a description through one of its patterns.
type Claim struct {
	Category string
	Pattern  string
}

type compiledPattern struct {
	re     *regexp.Regexp
	source string
}

type compiledCategory struct {
	name     string
	patterns []compiledPattern
}

// Matcher evaluates descriptions against a fixed set of categories.
type Matcher struct {
	categories []compiledCategory
}

// NewMatcher precompiles every pattern case-insensitively. A pattern that does not
// compile is kept but never matches.
func NewMatcher(categories []model.Category) *Matcher {
	m := &Matcher{categories: make([]compiledCategory, 0, len(categories))}

	for _, category := range categories {
		cc := compiledCategory{name: category.Name}
		for _, pattern := range category.Patterns {
			cp := compiledPattern{source: pattern}
			if re, err := regexp.Compile("(?i)" + pattern); err == nil {
				cp.re = re
			}
			cc.patterns = append(cc.patterns, cp)
		}
		m.categories = append(m.categories, cc)
	}

	sort.SliceStable(m.categories, func(i, j int) bool {
		return m.categories[i].name < m.categories[j].name
	})

	return m
}

// Claims returns the claim-set of description: one claim per matching category,
// naming the first of its patterns that matched. Claims are ordered by category name.
func (m *Matcher) Claims(description string) []Claim {
	var claims []Claim
	for _, category := range m.categories {
		for _, pattern := range category.patterns {
			if pattern.re != nil && pattern.re.MatchString(description) {
				claims = append(claims, Claim{Category: category.name, Pattern: pattern.source})
				break
			}
		}
	}
	return claims
}

// Categories returns the category names in report order.
func (m *Matcher) Categories() []string {
	names := make([]string, len(m.categories))
	for i, c := range m.categories {
		names[i] = c.name
	}
	return names
}

// Uncategorized returns the entries no category claims, in input order.
func (m *Matcher) Uncategorized(entries []model.Entry) []model.Entry {
	var out []model.Entry
	for _, e := range entries {
		if len(m.Claims(e.Description)) == 0 {
			out = append(out, e)
		}
	}
	return out
}

// SuggestWords extracts the filter vocabulary from uncategorized entries.
func (m *Matcher) SuggestWords(entries []model.Entry) []string {
	return ExtractWords(m.Uncategorized(entries))
}
