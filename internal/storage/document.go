package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/Veraticus/ledgerbot/internal/model"
)

// document is everything stored for one chat. Document backends replace it
// wholesale on every mutation.
type document struct {
	Categories []model.Category `yaml:"categories"`
	Entries    []model.Entry    `yaml:"entries,omitempty"`
}

func (d *document) clone() *document {
	out := &document{
		Categories: make([]model.Category, len(d.Categories)),
		Entries:    append([]model.Entry(nil), d.Entries...),
	}
	for i, c := range d.Categories {
		out.Categories[i] = c.Clone()
	}
	return out
}

func (d *document) find(name string) int {
	for i, c := range d.Categories {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func (d *document) category(name string) (*model.Category, error) {
	i := d.find(name)
	if i < 0 {
		return nil, categoryNotFound(name)
	}
	return &d.Categories[i], nil
}

// documentBackend loads and saves whole documents. Callers hold the chat lock.
type documentBackend interface {
	load(chatID int64) (*document, error)
	save(chatID int64, doc *document) error
}

// DocumentStore implements Store over a documentBackend with one lock per chat.
type DocumentStore struct {
	backend documentBackend
	locks   sync.Map // int64 -> *sync.Mutex
}

func newDocumentStore(backend documentBackend) *DocumentStore {
	return &DocumentStore{backend: backend}
}

func (s *DocumentStore) lock(chatID int64) func() {
	m, _ := s.locks.LoadOrStore(chatID, &sync.Mutex{})
	mu := m.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *DocumentStore) read(ctx context.Context, chatID int64) (*document, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	unlock := s.lock(chatID)
	defer unlock()

	doc, err := s.backend.load(chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat %d: %w", chatID, err)
	}
	return doc, nil
}

func (s *DocumentStore) update(ctx context.Context, chatID int64, mutate func(doc *document) error) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	unlock := s.lock(chatID)
	defer unlock()

	doc, err := s.backend.load(chatID)
	if err != nil {
		return fmt.Errorf("failed to load chat %d: %w", chatID, err)
	}
	if err := mutate(doc); err != nil {
		return err
	}
	if err := s.backend.save(chatID, doc); err != nil {
		return fmt.Errorf("failed to save chat %d: %w", chatID, err)
	}
	return nil
}

// Categories returns the chat's categories sorted by name.
func (s *DocumentStore) Categories(ctx context.Context, chatID int64) ([]model.Category, error) {
	doc, err := s.read(ctx, chatID)
	if err != nil {
		return nil, err
	}
	sortCategories(doc.Categories)
	return doc.Categories, nil
}

// Category returns one category by name.
func (s *DocumentStore) Category(ctx context.Context, chatID int64, name string) (model.Category, error) {
	doc, err := s.read(ctx, chatID)
	if err != nil {
		return model.Category{}, err
	}
	c, err := doc.category(name)
	if err != nil {
		return model.Category{}, err
	}
	return c.Clone(), nil
}

// AddCategory creates an empty category.
func (s *DocumentStore) AddCategory(ctx context.Context, chatID int64, name string) error {
	if err := validateCategoryName(name); err != nil {
		return err
	}
	return s.update(ctx, chatID, func(doc *document) error {
		if doc.find(name) >= 0 {
			return categoryExists(name)
		}
		doc.Categories = append(doc.Categories, model.Category{Name: name})
		sortCategories(doc.Categories)
		return nil
	})
}

// RenameCategory renames a category, keeping its patterns.
func (s *DocumentStore) RenameCategory(ctx context.Context, chatID int64, oldName, newName string) error {
	if err := validateCategoryName(newName); err != nil {
		return err
	}
	return s.update(ctx, chatID, func(doc *document) error {
		c, err := doc.category(oldName)
		if err != nil {
			return err
		}
		if oldName == newName {
			return nil
		}
		if doc.find(newName) >= 0 {
			return categoryExists(newName)
		}
		c.Name = newName
		sortCategories(doc.Categories)
		return nil
	})
}

// RemoveCategory deletes a category and its patterns.
func (s *DocumentStore) RemoveCategory(ctx context.Context, chatID int64, name string) error {
	return s.update(ctx, chatID, func(doc *document) error {
		i := doc.find(name)
		if i < 0 {
			return categoryNotFound(name)
		}
		doc.Categories = append(doc.Categories[:i], doc.Categories[i+1:]...)
		return nil
	})
}

// AddPattern appends a pattern to a category.
func (s *DocumentStore) AddPattern(ctx context.Context, chatID int64, category, pattern string) error {
	return s.update(ctx, chatID, func(doc *document) error {
		c, err := doc.category(category)
		if err != nil {
			return err
		}
		return addPattern(c, pattern)
	})
}

// RemovePattern deletes the pattern at position.
func (s *DocumentStore) RemovePattern(ctx context.Context, chatID int64, category string, position int) (string, error) {
	var removed string
	err := s.update(ctx, chatID, func(doc *document) error {
		c, err := doc.category(category)
		if err != nil {
			return err
		}
		removed, err = removePattern(c, position)
		return err
	})
	return removed, err
}

// ReplacePattern swaps the pattern at position.
func (s *DocumentStore) ReplacePattern(ctx context.Context, chatID int64, category string, position int, pattern string) error {
	return s.update(ctx, chatID, func(doc *document) error {
		c, err := doc.category(category)
		if err != nil {
			return err
		}
		return replacePattern(c, position, pattern)
	})
}

// ReplaceCategories swaps the chat's whole category set.
func (s *DocumentStore) ReplaceCategories(ctx context.Context, chatID int64, categories []model.Category) error {
	normalized, err := normalizeCategories(categories)
	if err != nil {
		return err
	}
	return s.update(ctx, chatID, func(doc *document) error {
		doc.Categories = normalized
		return nil
	})
}

// AddEntries stores entries, skipping already known external IDs.
func (s *DocumentStore) AddEntries(ctx context.Context, chatID int64, entries ...model.Entry) (int, error) {
	for i := range entries {
		if err := validateEntry(&entries[i]); err != nil {
			return 0, fmt.Errorf("entry at index %d: %w", i, err)
		}
	}
	added := 0
	err := s.update(ctx, chatID, func(doc *document) error {
		known := make(map[string]struct{})
		for _, e := range doc.Entries {
			if e.ExternalID != "" {
				known[e.ExternalID] = struct{}{}
			}
		}
		for _, e := range entries {
			if e.ExternalID != "" {
				if _, ok := known[e.ExternalID]; ok {
					continue
				}
				known[e.ExternalID] = struct{}{}
			}
			doc.Entries = append(doc.Entries, e)
			added++
		}
		sortEntries(doc.Entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// Entries returns the chat's entries in chronological order.
func (s *DocumentStore) Entries(ctx context.Context, chatID int64) ([]model.Entry, error) {
	doc, err := s.read(ctx, chatID)
	if err != nil {
		return nil, err
	}
	sortEntries(doc.Entries)
	return doc.Entries, nil
}

// ClearEntries deletes every entry of the chat.
func (s *DocumentStore) ClearEntries(ctx context.Context, chatID int64) error {
	return s.update(ctx, chatID, func(doc *document) error {
		doc.Entries = nil
		return nil
	})
}

// Close releases nothing; document stores hold no external resources.
func (s *DocumentStore) Close() error { return nil }
