package storage

import "sync"

type memoryBackend struct {
	docs sync.Map // int64 -> *document
}

func (b *memoryBackend) load(chatID int64) (*document, error) {
	if d, ok := b.docs.Load(chatID); ok {
		return d.(*document).clone(), nil
	}
	return &document{}, nil
}

func (b *memoryBackend) save(chatID int64, doc *document) error {
	b.docs.Store(chatID, doc.clone())
	return nil
}

// NewMemoryStore creates a store that keeps every chat in process memory.
func NewMemoryStore() *DocumentStore {
	return newDocumentStore(&memoryBackend{})
}
