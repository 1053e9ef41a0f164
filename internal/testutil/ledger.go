// Package testutil seeds stores with categories and entries for tests.
//
// Example usage:
//
//	testutil.NewBuilder(t, chatID).
//		WithFixture(testutil.FixtureBasic).
//		WithEntry(3, "Taxi home", 18).
//		Build(store)
package testutil

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/Veraticus/ledgerbot/internal/model"
	"github.com/Veraticus/ledgerbot/internal/storage"
	"github.com/stretchr/testify/require"
)

// Fixture is a named, reusable category set.
type Fixture struct {
	Name       string
	Categories []model.Category
}

// FixtureBasic covers the categories most tests need.
var FixtureBasic = Fixture{
	Name: "Basic",
	Categories: []model.Category{
		{Name: "Food", Patterns: []string{`(?i)\b(coffee|lunch|dinner)\b`}},
		{Name: "Transport", Patterns: []string{`(?i)\b(bus|taxi|train)\b`}},
	},
}

// Builder collects categories and entries for one chat and writes them to a store.
type Builder struct {
	t          testing.TB
	categories []model.Category
	entries    []model.Entry
	chatID     int64
}

// NewBuilder starts an empty builder for chatID.
func NewBuilder(t testing.TB, chatID int64) *Builder {
	t.Helper()
	return &Builder{t: t, chatID: chatID}
}

// WithCategory adds a category with its patterns in order.
func (b *Builder) WithCategory(name string, patterns ...string) *Builder {
	b.categories = append(b.categories, model.Category{Name: name, Patterns: patterns})
	return b
}

// WithCategories adds categories from a name to patterns map, in name order.
func (b *Builder) WithCategories(categories map[string][]string) *Builder {
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WithCategory(name, categories[name]...)
	}
	return b
}

// WithFixture adds every category of f.
func (b *Builder) WithFixture(f Fixture) *Builder {
	for _, c := range f.Categories {
		b.WithCategory(c.Name, c.Patterns...)
	}
	return b
}

// WithEntry adds an entry dated the given day of January 2024.
func (b *Builder) WithEntry(day int, description string, amount float64) *Builder {
	return b.WithEntries(Entry(day, description, amount))
}

// WithEntries adds prepared entries.
func (b *Builder) WithEntries(entries ...model.Entry) *Builder {
	b.entries = append(b.entries, entries...)
	return b
}

// Build writes everything to store, failing the test on any error.
func (b *Builder) Build(store storage.Store) {
	b.t.Helper()
	ctx := context.Background()

	for _, c := range b.categories {
		require.NoError(b.t, store.AddCategory(ctx, b.chatID, c.Name), "category %s", c.Name)
		for _, p := range c.Patterns {
			require.NoError(b.t, store.AddPattern(ctx, b.chatID, c.Name, p), "pattern %s", p)
		}
	}
	if len(b.entries) > 0 {
		added, err := store.AddEntries(ctx, b.chatID, b.entries...)
		require.NoError(b.t, err)
		require.Equal(b.t, len(b.entries), added)
	}
}

// Entry creates an entry dated the given day of January 2024 at midnight UTC.
func Entry(day int, description string, amount float64) model.Entry {
	return model.NewEntry(time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC), description, amount)
}
