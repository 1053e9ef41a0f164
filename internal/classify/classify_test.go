package classify

import (
	"errors"
	"testing"
	"time"

	"github.com/Veraticus/ledgerbot/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(description string, amount float64, day int) model.Entry {
	return model.Entry{
		ID:          description,
		Timestamp:   time.Date(2024, 10, day, 0, 0, 0, 0, time.UTC),
		Description: description,
		Amount:      amount,
	}
}

func TestMatcher_Claims(t *testing.T) {
	matcher := NewMatcher([]model.Category{
		{Name: "Transport", Patterns: []string{"bus", "taxi"}},
		{Name: "Food", Patterns: []string{"lunch", "(?i)coffee"}},
		{Name: "Broken", Patterns: []string{"(unclosed"}},
	})

	tests := []struct {
		name        string
		description string
		want        []Claim
	}{
		{name: "case insensitive", description: "LUNCH with team", want: []Claim{{Category: "Food", Pattern: "lunch"}}},
		{name: "second pattern", description: "Coffee", want: []Claim{{Category: "Food", Pattern: "(?i)coffee"}}},
		{name: "no match", description: "Rent", want: nil},
		{name: "ordered by category name", description: "coffee on the bus", want: []Claim{
			{Category: "Food", Pattern: "(?i)coffee"},
			{Category: "Transport", Pattern: "bus"},
		}},
		{name: "invalid pattern never matches", description: "(unclosed", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matcher.Claims(tt.description))
		})
	}
}

func TestMatcher_GroupRefusesConflicts(t *testing.T) {
	matcher := NewMatcher([]model.Category{
		{Name: "Food", Patterns: []string{"(?i)coffee"}},
		{Name: "Drinks", Patterns: []string{"(?i)coffee|tea"}},
	})
	entries := []model.Entry{entry("Coffee", 5.0, 1), entry("Tea", 3.0, 2)}

	report, err := matcher.Group(entries)
	require.Error(t, err)
	assert.Nil(t, report)

	var conflict *ConflictError
	require.True(t, errors.As(err, &conflict))
	require.Len(t, conflict.Conflicts, 1)
	assert.Equal(t, "Coffee", conflict.Conflicts[0].Entry.Description)
	assert.Equal(t, []Claim{
		{Category: "Drinks", Pattern: "(?i)coffee|tea"},
		{Category: "Food", Pattern: "(?i)coffee"},
	}, conflict.Conflicts[0].Claims)
	assert.Contains(t, err.Error(), "Coffee")
}

func TestMatcher_Group(t *testing.T) {
	matcher := NewMatcher([]model.Category{
		{Name: "Food", Patterns: []string{"(?i)lunch"}},
		{Name: "Unused", Patterns: []string{"nothing"}},
	})
	entries := []model.Entry{entry("Lunch", 12.0, 1), entry("Bus", 2.75, 2)}

	report, err := matcher.Group(entries)
	require.NoError(t, err)

	require.Len(t, report.Buckets, 2)
	assert.Equal(t, "Food", report.Buckets[0].Category)
	assert.InDelta(t, 12.0, report.Buckets[0].Total, 1e-9)
	assert.Equal(t, model.OtherCategory, report.Buckets[1].Category)
	assert.InDelta(t, 2.75, report.Buckets[1].Total, 1e-9)
	assert.InDelta(t, 14.75, report.Total, 1e-9)

	_, ok := report.Bucket("Unused")
	assert.False(t, ok)
	other, ok := report.Bucket(model.OtherCategory)
	require.True(t, ok)
	assert.Equal(t, "Bus", other.Entries[0].Description)
}

func TestMatcher_GroupEmpty(t *testing.T) {
	report, err := NewMatcher(nil).Group(nil)
	require.NoError(t, err)
	assert.Empty(t, report.Buckets)
	assert.Zero(t, report.Total)
}

func TestMatcher_SuggestWords(t *testing.T) {
	matcher := NewMatcher([]model.Category{{Name: "Food", Patterns: []string{"(?i)lunch"}}})
	entries := []model.Entry{entry("Coffee at Starbucks", 5, 1), entry("Lunch at restaurant", 12, 2)}

	assert.Equal(t, []string{"at", "coffee", "starbucks"}, matcher.SuggestWords(entries))
}

func TestExtractWords(t *testing.T) {
	tests := []struct {
		name         string
		descriptions []string
		want         []string
	}{
		{name: "trims punctuation", descriptions: []string{`"Joe's" (cafe), #1!`}, want: []string{"cafe", "joe's"}},
		{name: "drops short tokens", descriptions: []string{"a b cd"}, want: []string{"cd"}},
		{name: "dedupes across entries", descriptions: []string{"Taxi home", "taxi WORK"}, want: []string{"home", "taxi", "work"}},
		{name: "counts runes", descriptions: []string{"ёж я"}, want: []string{"ёж"}},
		{name: "empty", descriptions: nil, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var entries []model.Entry
			for _, d := range tt.descriptions {
				entries = append(entries, model.Entry{Description: d})
			}
			assert.Equal(t, tt.want, ExtractWords(entries))
		})
	}
}

func TestBuildPattern(t *testing.T) {
	pattern := BuildPattern([]string{"coffee", "tea", "c++"})
	assert.Equal(t, `(?i)\b(coffee|tea|c\+\+)\b`, pattern)
	assert.NoError(t, ValidatePattern(pattern))

	matcher := NewMatcher([]model.Category{{Name: "Drinks", Patterns: []string{pattern}}})
	assert.Len(t, matcher.Claims("Morning COFFEE"), 1)
	assert.Empty(t, matcher.Claims("coffeehouse"))

	assert.Equal(t, "", BuildPattern(nil))
}

func TestReadPattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		want    []string
		ok      bool
	}{
		{name: "built", pattern: BuildPattern([]string{"at", "joe's", "c.d"}), want: []string{"at", "joe's", "c.d"}, ok: true},
		{name: "hand written", pattern: "(?i)coffee|tea", ok: false},
		{name: "unescaped metachar", pattern: `(?i)\b(co.fee)\b`, ok: false},
		{name: "empty alternative", pattern: `(?i)\b(a||b)\b`, ok: false},
		{name: "empty body", pattern: `(?i)\b()\b`, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			words, ok := ReadPattern(tt.pattern)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, words)
			}
		})
	}
}

func TestMergeWords(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, MergeWords([]string{"c", "a"}, []string{"b", "a"}))
	assert.Empty(t, MergeWords())
}

func TestValidatePattern(t *testing.T) {
	assert.NoError(t, ValidatePattern("lunch|dinner"))
	assert.Error(t, ValidatePattern("(unclosed"))
	assert.Error(t, ValidatePattern("  "))
}
