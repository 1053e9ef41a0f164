package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded expense. Entries are immutable once stored.
type Entry struct {
	Timestamp   time.Time `yaml:"timestamp"`
	ID          string    `yaml:"id"`
	Description string    `yaml:"description"`
	// ExternalID identifies the entry in an imported statement (an OFX FITID).
	ExternalID string  `yaml:"external_id,omitempty"`
	Amount     float64 `yaml:"amount"`
}

// NewEntry creates an entry with a fresh ID.
func NewEntry(timestamp time.Time, description string, amount float64) Entry {
	return Entry{
		ID:          uuid.NewString(),
		Timestamp:   timestamp,
		Description: description,
		Amount:      amount,
	}
}

// Hash returns a content hash used for duplicate detection on import.
func (e Entry) Hash() string {
	data := fmt.Sprintf("%s:%.2f:%s:%s",
		e.Timestamp.Format("2006-01-02"),
		e.Amount,
		e.Description,
		e.ExternalID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
