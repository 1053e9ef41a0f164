package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Veraticus/ledgerbot/internal/classify"
	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrInvalidName      = errors.New("invalid category name")
	ErrInvalidEntry     = errors.New("invalid entry")
	ErrPositionOutRange = errors.New("pattern position out of range")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateCategoryName rejects names that cannot be used as a single command line value.
func validateCategoryName(name string) error {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "\r\n") {
		return common.NewUserError(fmt.Sprintf("Category name %q is not valid", name), ErrInvalidName)
	}
	return nil
}

// validatePattern refuses patterns that do not compile.
func validatePattern(pattern string) error {
	if err := classify.ValidatePattern(pattern); err != nil {
		return common.NewUserError(fmt.Sprintf("Pattern %q is not a valid regular expression", pattern),
			fmt.Errorf("%w: %v", common.ErrInvalidPattern, err))
	}
	return nil
}

// validateEntry validates a single entry.
func validateEntry(e *model.Entry) error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidEntry)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidEntry)
	}
	if strings.ContainsAny(e.Description, "\r\n") {
		return fmt.Errorf("%w: description spans lines", ErrInvalidEntry)
	}
	if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
		return fmt.Errorf("%w: amount is not finite", ErrInvalidEntry)
	}
	return nil
}

func categoryNotFound(name string) error {
	return common.NewUserError(fmt.Sprintf("Category %q not found", name), common.ErrNotFound)
}

func categoryExists(name string) error {
	return common.NewUserError(fmt.Sprintf("Category %q already exists", name), common.ErrDuplicateEntry)
}

func patternExists(category, pattern string) error {
	return common.NewUserError(fmt.Sprintf("Category %q already has pattern %q", category, pattern), common.ErrDuplicateEntry)
}

func positionNotFound(category string, position int) error {
	return common.NewUserError(fmt.Sprintf("Category %q has no pattern at position %d", category, position),
		fmt.Errorf("%w: %w", ErrPositionOutRange, common.ErrNotFound))
}

// addPattern appends pattern to c after validation.
func addPattern(c *model.Category, pattern string) error {
	if err := validatePattern(pattern); err != nil {
		return err
	}
	if c.HasPattern(pattern) {
		return patternExists(c.Name, pattern)
	}
	c.Patterns = append(c.Patterns, pattern)
	return nil
}

// removePattern deletes the pattern at position from c and returns it.
func removePattern(c *model.Category, position int) (string, error) {
	if position < 0 || position >= len(c.Patterns) {
		return "", positionNotFound(c.Name, position)
	}
	removed := c.Patterns[position]
	c.Patterns = append(c.Patterns[:position:position], c.Patterns[position+1:]...)
	return removed, nil
}

// replacePattern swaps the pattern at position in c.
func replacePattern(c *model.Category, position int, pattern string) error {
	if position < 0 || position >= len(c.Patterns) {
		return positionNotFound(c.Name, position)
	}
	if err := validatePattern(pattern); err != nil {
		return err
	}
	for i, p := range c.Patterns {
		if i != position && p == pattern {
			return patternExists(c.Name, pattern)
		}
	}
	c.Patterns[position] = pattern
	return nil
}

// normalizeCategories validates a whole category set and returns a sorted copy.
func normalizeCategories(categories []model.Category) ([]model.Category, error) {
	seen := make(map[string]struct{}, len(categories))
	out := make([]model.Category, 0, len(categories))
	for _, c := range categories {
		if err := validateCategoryName(c.Name); err != nil {
			return nil, err
		}
		if _, ok := seen[c.Name]; ok {
			return nil, categoryExists(c.Name)
		}
		seen[c.Name] = struct{}{}

		clean := model.Category{Name: c.Name}
		for _, p := range c.Patterns {
			if err := addPattern(&clean, p); err != nil {
				return nil, err
			}
		}
		out = append(out, clean)
	}
	sortCategories(out)
	return out, nil
}

func sortCategories(categories []model.Category) {
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
}

func sortEntries(entries []model.Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
}
