package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Veraticus/ledgerbot/internal/model"
)

// AddEntries stores entries, skipping already known external IDs.
func (s *SQLiteStore) AddEntries(ctx context.Context, chatID int64, entries ...model.Entry) (int, error) {
	for i := range entries {
		if err := validateEntry(&entries[i]); err != nil {
			return 0, fmt.Errorf("entry at index %d: %w", i, err)
		}
	}

	added := 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO entries (id, chat_id, timestamp, description, amount, external_id)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() {
			if closeErr := stmt.Close(); closeErr != nil {
				slog.Warn("Failed to close statement", "error", closeErr)
			}
		}()

		for _, e := range entries {
			result, err := stmt.ExecContext(ctx, e.ID, chatID, e.Timestamp, e.Description, e.Amount, e.ExternalID)
			if err != nil {
				return fmt.Errorf("failed to save entry %s: %w", e.ID, err)
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get affected rows: %w", err)
			}
			added += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// Entries returns the chat's entries in chronological order.
func (s *SQLiteStore) Entries(ctx context.Context, chatID int64) ([]model.Entry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, description, amount, external_id
		FROM entries
		WHERE chat_id = ?
		ORDER BY timestamp, rowid`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []model.Entry
	for rows.Next() {
		var e model.Entry
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Description, &e.Amount, &e.ExternalID); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// ClearEntries deletes every entry of the chat.
func (s *SQLiteStore) ClearEntries(ctx context.Context, chatID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE chat_id = ?`, chatID)
	if err != nil {
		return fmt.Errorf("failed to clear entries: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil {
		slog.Info("cleared entries", "chat_id", chatID, "count", n)
	}
	return nil
}
