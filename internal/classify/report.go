package classify

import (
	"github.com/Veraticus/ledgerbot/internal/model"
)

// Bucket is the entries assigned to one category and their sum.
type Bucket struct {
	Category string
	Entries  []model.Entry
	Total    float64
}

// Report groups entries into buckets: named categories sorted by name, then
// model.OtherCategory. Buckets without entries are omitted.
type Report struct {
	Buckets []Bucket
	Total   float64
}

// Bucket returns the bucket for category.
func (r *Report) Bucket(category string) (Bucket, bool) {
	for _, b := range r.Buckets {
		if b.Category == category {
			return b, true
		}
	}
	return Bucket{}, false
}

// Group builds a report. If any entry is claimed by more than one category no
// report is produced and a *ConflictError enumerating every such entry is returned.
func (m *Matcher) Group(entries []model.Entry) (*Report, error) {
	if conflicts := m.Conflicts(entries); len(conflicts) > 0 {
		return nil, &ConflictError{Conflicts: conflicts}
	}

	byCategory := make(map[string]*Bucket)
	report := &Report{}
	for _, e := range entries {
		name := model.OtherCategory
		if claims := m.Claims(e.Description); len(claims) == 1 {
			name = claims[0].Category
		}
		b, ok := byCategory[name]
		if !ok {
			b = &Bucket{Category: name}
			byCategory[name] = b
		}
		b.Entries = append(b.Entries, e)
		b.Total += e.Amount
		report.Total += e.Amount
	}

	for _, name := range append(m.Categories(), model.OtherCategory) {
		if b, ok := byCategory[name]; ok {
			report.Buckets = append(report.Buckets, *b)
			delete(byCategory, name)
		}
	}

	return report, nil
}
