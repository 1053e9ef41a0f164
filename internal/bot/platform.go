package bot

import (
	"context"
	"time"

	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/message"
)

// Platform is the chat transport. Implementations handle their own markup,
// message length limits and rate-limit retries.
type Platform interface {
	// Send posts a new message and returns its id.
	Send(ctx context.Context, chatID int64, text *message.Text) (int, error)
	// Edit replaces the text of an existing message and drops its buttons.
	Edit(ctx context.Context, chatID int64, messageID int, text *message.Text) error
	// SetButtons attaches inline buttons to an existing message.
	SetButtons(ctx context.Context, chatID int64, messageID int, rows [][]callback.Button) error
	// SetMenu posts text together with a persistent keyboard of labels.
	SetMenu(ctx context.Context, chatID int64, text *message.Text, labels []string) error
	// SendPhoto posts a PNG image.
	SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error
}

// Incoming is a text message received from a chat.
type Incoming struct {
	Date      time.Time
	Text      string
	ChatID    int64
	Forwarded bool
}

// CallbackEvent is an inline button press.
type CallbackEvent struct {
	Data      string
	ChatID    int64
	MessageID int
}

// Request is the target every command stage runs against.
type Request struct {
	ChatID int64
	// MessageID is the menu message a button press came from; menus edit it in place.
	MessageID int
	// Silent suppresses confirmations while commands run inside a batch.
	Silent bool
}
