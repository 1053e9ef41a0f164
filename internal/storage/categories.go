package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/ledgerbot/internal/model"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Categories returns the chat's categories sorted by name.
func (s *SQLiteStore) Categories(ctx context.Context, chatID int64) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM categories
		WHERE chat_id = ?
		ORDER BY name`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	index := make(map[string]int)
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		index[c.Name] = len(categories)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	patternRows, err := s.db.QueryContext(ctx, `
		SELECT category, pattern FROM category_patterns
		WHERE chat_id = ?
		ORDER BY category, position`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer patternRows.Close()

	for patternRows.Next() {
		var name, pattern string
		if err := patternRows.Scan(&name, &pattern); err != nil {
			return nil, fmt.Errorf("failed to scan pattern: %w", err)
		}
		if i, ok := index[name]; ok {
			categories[i].Patterns = append(categories[i].Patterns, pattern)
		}
	}
	if err := patternRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patterns: %w", err)
	}

	slog.Debug("retrieved categories", "chat_id", chatID, "count", len(categories))
	return categories, nil
}

// Category returns one category by name.
func (s *SQLiteStore) Category(ctx context.Context, chatID int64, name string) (model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return model.Category{}, err
	}
	return loadCategory(ctx, s.db, chatID, name)
}

func loadCategory(ctx context.Context, q querier, chatID int64, name string) (model.Category, error) {
	var found string
	err := q.QueryRowContext(ctx, `
		SELECT name FROM categories
		WHERE chat_id = ? AND name = ?`, chatID, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, categoryNotFound(name)
	}
	if err != nil {
		return model.Category{}, fmt.Errorf("failed to query category: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT pattern FROM category_patterns
		WHERE chat_id = ? AND category = ?
		ORDER BY position`, chatID, name)
	if err != nil {
		return model.Category{}, fmt.Errorf("failed to query patterns: %w", err)
	}
	defer rows.Close()

	c := model.Category{Name: found}
	for rows.Next() {
		var pattern string
		if err := rows.Scan(&pattern); err != nil {
			return model.Category{}, fmt.Errorf("failed to scan pattern: %w", err)
		}
		c.Patterns = append(c.Patterns, pattern)
	}
	if err := rows.Err(); err != nil {
		return model.Category{}, fmt.Errorf("error iterating patterns: %w", err)
	}
	return c, nil
}

func categoryExistsTx(ctx context.Context, q querier, chatID int64, name string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM categories
		WHERE chat_id = ? AND name = ?`, chatID, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check category: %w", err)
	}
	return count > 0, nil
}

func insertCategory(ctx context.Context, q querier, chatID int64, name string) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO categories (chat_id, name, created_at)
		VALUES (?, ?, ?)`, chatID, name, time.Now()); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// writePatterns replaces every pattern of a category, numbering positions from zero.
func writePatterns(ctx context.Context, q querier, chatID int64, category string, patterns []string) error {
	if _, err := q.ExecContext(ctx, `
		DELETE FROM category_patterns
		WHERE chat_id = ? AND category = ?`, chatID, category); err != nil {
		return fmt.Errorf("failed to clear patterns: %w", err)
	}
	for i, pattern := range patterns {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO category_patterns (chat_id, category, position, pattern)
			VALUES (?, ?, ?, ?)`, chatID, category, i, pattern); err != nil {
			return fmt.Errorf("failed to save pattern: %w", err)
		}
	}
	return nil
}

// AddCategory creates an empty category.
func (s *SQLiteStore) AddCategory(ctx context.Context, chatID int64, name string) error {
	if err := validateCategoryName(name); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := categoryExistsTx(ctx, tx, chatID, name)
		if err != nil {
			return err
		}
		if exists {
			return categoryExists(name)
		}
		if err := insertCategory(ctx, tx, chatID, name); err != nil {
			return err
		}
		slog.Info("created new category", "chat_id", chatID, "name", name)
		return nil
	})
}

// RenameCategory renames a category, keeping its patterns.
func (s *SQLiteStore) RenameCategory(ctx context.Context, chatID int64, oldName, newName string) error {
	if err := validateCategoryName(newName); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		exists, err := categoryExistsTx(ctx, tx, chatID, oldName)
		if err != nil {
			return err
		}
		if !exists {
			return categoryNotFound(oldName)
		}
		if oldName == newName {
			return nil
		}
		taken, err := categoryExistsTx(ctx, tx, chatID, newName)
		if err != nil {
			return err
		}
		if taken {
			return categoryExists(newName)
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE categories SET name = ?
			WHERE chat_id = ? AND name = ?`, newName, chatID, oldName); err != nil {
			return fmt.Errorf("failed to rename category: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE category_patterns SET category = ?
			WHERE chat_id = ? AND category = ?`, newName, chatID, oldName); err != nil {
			return fmt.Errorf("failed to move patterns: %w", err)
		}
		return nil
	})
}

// RemoveCategory deletes a category and its patterns.
func (s *SQLiteStore) RemoveCategory(ctx context.Context, chatID int64, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			DELETE FROM categories
			WHERE chat_id = ? AND name = ?`, chatID, name)
		if err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get affected rows: %w", err)
		}
		if affected == 0 {
			return categoryNotFound(name)
		}
		return writePatterns(ctx, tx, chatID, name, nil)
	})
}

// modifyPatterns loads a category inside a transaction, applies fn to it and
// writes its patterns back.
func (s *SQLiteStore) modifyPatterns(ctx context.Context, chatID int64, category string, fn func(c *model.Category) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		c, err := loadCategory(ctx, tx, chatID, category)
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}
		return writePatterns(ctx, tx, chatID, category, c.Patterns)
	})
}

// AddPattern appends a pattern to a category.
func (s *SQLiteStore) AddPattern(ctx context.Context, chatID int64, category, pattern string) error {
	return s.modifyPatterns(ctx, chatID, category, func(c *model.Category) error {
		return addPattern(c, pattern)
	})
}

// RemovePattern deletes the pattern at position.
func (s *SQLiteStore) RemovePattern(ctx context.Context, chatID int64, category string, position int) (string, error) {
	var removed string
	err := s.modifyPatterns(ctx, chatID, category, func(c *model.Category) error {
		var err error
		removed, err = removePattern(c, position)
		return err
	})
	return removed, err
}

// ReplacePattern swaps the pattern at position.
func (s *SQLiteStore) ReplacePattern(ctx context.Context, chatID int64, category string, position int, pattern string) error {
	return s.modifyPatterns(ctx, chatID, category, func(c *model.Category) error {
		return replacePattern(c, position, pattern)
	})
}

// ReplaceCategories swaps the chat's whole category set.
func (s *SQLiteStore) ReplaceCategories(ctx context.Context, chatID int64, categories []model.Category) error {
	normalized, err := normalizeCategories(categories)
	if err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM category_patterns WHERE chat_id = ?`, chatID); err != nil {
			return fmt.Errorf("failed to clear patterns: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE chat_id = ?`, chatID); err != nil {
			return fmt.Errorf("failed to clear categories: %w", err)
		}
		for _, c := range normalized {
			if err := insertCategory(ctx, tx, chatID, c.Name); err != nil {
				return err
			}
			if err := writePatterns(ctx, tx, chatID, c.Name, c.Patterns); err != nil {
				return err
			}
		}
		return nil
	})
}
