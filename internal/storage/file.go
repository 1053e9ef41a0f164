package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

type fileBackend struct {
	dir string
}

func (b *fileBackend) path(chatID int64) string {
	return filepath.Join(b.dir, strconv.FormatInt(chatID, 10)+".yaml")
}

func (b *fileBackend) load(chatID int64) (*document, error) {
	data, err := os.ReadFile(b.path(chatID))
	if errors.Is(err, fs.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read chat document: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", b.path(chatID), err)
	}
	return &doc, nil
}

// save writes to a temporary file and renames it over the old document.
func (b *fileBackend) save(chatID int64, doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode chat document: %w", err)
	}

	tmp, err := os.CreateTemp(b.dir, fmt.Sprintf(".%d-*.yaml", chatID))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if removeErr := os.Remove(tmp.Name()); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
			slog.Warn("Failed to remove temp file", "path", tmp.Name(), "error", removeErr)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write chat document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close chat document: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path(chatID)); err != nil {
		return fmt.Errorf("failed to replace chat document: %w", err)
	}
	return nil
}

// NewFileStore creates a store that keeps one YAML document per chat in dir.
func NewFileStore(dir string) (*DocumentStore, error) {
	if err := validateString(dir, "dir"); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return newDocumentStore(&fileBackend{dir: dir}), nil
}
