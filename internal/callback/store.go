// Package callback lets payloads that are too long or not ASCII ride on
// size-limited inline buttons by replacing them with short references.
package callback

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Veraticus/ledgerbot/internal/common"
)

// DefaultMaxPayload is the Telegram callback data ceiling in bytes.
const DefaultMaxPayload = 64

const refPrefix = "cb:"

// ButtonKind selects how a button delivers its payload.
type ButtonKind int

const (
	// Callback buttons send the payload back as callback data.
	Callback ButtonKind = iota
	// Prefill buttons put the payload into the user's input box. They are never packed.
	Prefill
)

// Button is one inline control.
type Button struct {
	Label   string
	Payload string
	Kind    ButtonKind
}

type messageKey struct {
	chatID    int64
	messageID int
}

type messageRefs struct {
	payloads map[int]string
	mu       sync.Mutex
}

// Store keeps oversized payloads per (chat, message). Locking is per message.
type Store struct {
	messages   sync.Map // messageKey -> *messageRefs
	maxPayload int
}

// NewStore creates a store that packs payloads longer than maxPayload bytes.
func NewStore(maxPayload int) *Store {
	if maxPayload <= 0 {
		maxPayload = DefaultMaxPayload
	}
	return &Store{maxPayload: maxPayload}
}

// MaxPayload returns the configured ceiling.
func (s *Store) MaxPayload() int { return s.maxPayload }

func (s *Store) refs(key messageKey) *messageRefs {
	r, _ := s.messages.LoadOrStore(key, &messageRefs{})
	return r.(*messageRefs)
}

// Pack prepares the buttons of one message. Every payload stored earlier for the
// message is dropped first. Callback buttons whose payload is oversized or not
// ASCII are stored under their ordinal among callback buttons and replaced by a
// reference; the rest pass through unchanged.
func (s *Store) Pack(chatID int64, messageID int, rows [][]Button) [][]Button {
	key := messageKey{chatID: chatID, messageID: messageID}
	refs := s.refs(key)

	refs.mu.Lock()
	defer refs.mu.Unlock()

	refs.payloads = make(map[int]string)
	packed := make([][]Button, len(rows))
	position := 0
	for i, row := range rows {
		packed[i] = make([]Button, len(row))
		for j, b := range row {
			packed[i][j] = b
			if b.Kind != Callback {
				continue
			}
			if s.fits(b.Payload) {
				position++
				continue
			}
			refs.payloads[position] = b.Payload
			packed[i][j].Payload = reference(key, position)
			position++
		}
	}

	if len(refs.payloads) > 0 {
		common.LogDebug("Packed callback payloads", common.ChatFields(chatID).
			With("message_id", messageID).
			With("stored", len(refs.payloads)))
	}
	return packed
}

// Unpack resolves a received payload. Anything that is not a reference to chatID,
// or whose stored payload has been invalidated, is returned unchanged.
func (s *Store) Unpack(chatID int64, payload string) string {
	key, position, ok := parseReference(payload)
	if !ok || key.chatID != chatID {
		return payload
	}
	r, ok := s.messages.Load(key)
	if !ok {
		return payload
	}
	refs := r.(*messageRefs)

	refs.mu.Lock()
	defer refs.mu.Unlock()

	if original, ok := refs.payloads[position]; ok {
		return original
	}
	return payload
}

// IsReference reports whether payload has the reference shape.
func IsReference(payload string) bool {
	_, _, ok := parseReference(payload)
	return ok
}

func (s *Store) fits(payload string) bool {
	if len(payload) > s.maxPayload {
		return false
	}
	for i := 0; i < len(payload); i++ {
		if payload[i] >= 0x80 {
			return false
		}
	}
	return true
}

func reference(key messageKey, position int) string {
	return fmt.Sprintf("%s%d:%d:%d", refPrefix, key.chatID, key.messageID, position)
}

func parseReference(payload string) (messageKey, int, bool) {
	rest, ok := strings.CutPrefix(payload, refPrefix)
	if !ok {
		return messageKey{}, 0, false
	}
	parts := strings.Split(rest, ":")
	if len(parts) != 3 {
		return messageKey{}, 0, false
	}
	chatID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return messageKey{}, 0, false
	}
	messageID, err := strconv.Atoi(parts[1])
	if err != nil {
		return messageKey{}, 0, false
	}
	position, err := strconv.Atoi(parts[2])
	if err != nil || position < 0 {
		return messageKey{}, 0, false
	}
	return messageKey{chatID: chatID, messageID: messageID}, position, true
}
