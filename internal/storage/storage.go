// Package storage persists chat categories and ledger entries. Every operation is
// scoped to one chat; no call reads or writes another chat's data.
package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/model"
)

// Supported drivers.
const (
	DriverMemory = "memory"
	DriverYAML   = "yaml"
	DriverSQLite = "sqlite"
)

// CategoryStore manages a chat's categories and their ordered patterns.
// Pattern positions are zero-based.
type CategoryStore interface {
	// Categories returns the chat's categories sorted by name.
	Categories(ctx context.Context, chatID int64) ([]model.Category, error)
	Category(ctx context.Context, chatID int64, name string) (model.Category, error)
	AddCategory(ctx context.Context, chatID int64, name string) error
	RenameCategory(ctx context.Context, chatID int64, oldName, newName string) error
	RemoveCategory(ctx context.Context, chatID int64, name string) error
	AddPattern(ctx context.Context, chatID int64, category, pattern string) error
	// RemovePattern deletes the pattern at position and returns it.
	RemovePattern(ctx context.Context, chatID int64, category string, position int) (string, error)
	ReplacePattern(ctx context.Context, chatID int64, category string, position int, pattern string) error
	// ReplaceCategories swaps the chat's whole category set.
	ReplaceCategories(ctx context.Context, chatID int64, categories []model.Category) error
}

// EntryStore manages a chat's ledger entries.
type EntryStore interface {
	// AddEntries stores entries and returns how many were added. Entries whose
	// ExternalID is already stored for the chat are skipped.
	AddEntries(ctx context.Context, chatID int64, entries ...model.Entry) (int, error)
	// Entries returns the chat's entries in chronological order.
	Entries(ctx context.Context, chatID int64) ([]model.Entry, error)
	ClearEntries(ctx context.Context, chatID int64) error
}

// Store is the full persistence contract used by the bot.
type Store interface {
	CategoryStore
	EntryStore
	Close() error
}

// Open creates the store selected by driver. For DriverYAML path is a directory,
// for DriverSQLite a database file; DriverMemory ignores it.
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverYAML:
		return NewFileStore(path)
	case DriverSQLite:
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", common.ErrInvalidConfig, driver)
	}
}
