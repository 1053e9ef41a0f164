package classify

import (
	"fmt"
	"strings"

	"github.com/Veraticus/ledgerbot/internal/model"
)

// Conflict is an entry claimed by two or more categories.
type Conflict struct {
	Entry  model.Entry
	Claims []Claim
}

// ConflictError blocks a grouped report until the user edits filters.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d entries match more than one category", len(e.Conflicts))
	for _, c := range e.Conflicts {
		names := make([]string, len(c.Claims))
		for i, claim := range c.Claims {
			names[i] = claim.Category
		}
		fmt.Fprintf(&b, "; %q: %s", c.Entry.Description, strings.Join(names, ", "))
	}
	return b.String()
}

// Conflicts returns every entry whose claim-set has more than one category,
// in input order.
func (m *Matcher) Conflicts(entries []model.Entry) []Conflict {
	var conflicts []Conflict
	for _, e := range entries {
		if claims := m.Claims(e.Description); len(claims) > 1 {
			conflicts = append(conflicts, Conflict{Entry: e, Claims: claims})
		}
	}
	return conflicts
}
