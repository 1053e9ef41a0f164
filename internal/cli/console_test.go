package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/ledgerbot/internal/bot"
	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/message"
	"github.com/Veraticus/ledgerbot/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	messages  []bot.Incoming
	callbacks []bot.CallbackEvent
	mu        sync.Mutex
}

func (h *recordingHandler) HandleMessage(_ context.Context, in bot.Incoming) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, in)
}

func (h *recordingHandler) HandleCallback(_ context.Context, ev bot.CallbackEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, ev)
}

func TestConsole_SendAndEdit(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, "")
	ctx := context.Background()

	id, err := c.Send(ctx, 1, message.New().Bold("Report").Line().Code("/list"))
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	require.NoError(t, c.Edit(ctx, 1, id, message.New().Plain("changed")))
	assert.Error(t, c.Edit(ctx, 1, 42, message.New().Plain("missing")))

	output := out.String()
	assert.Contains(t, output, "#1")
	assert.Contains(t, output, "Report")
	assert.Contains(t, output, "/list")
	assert.Contains(t, output, "#1 (edited)")
	assert.Contains(t, output, "changed")
}

func TestConsole_SetButtonsNumbersAcrossRows(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, "")

	rows := [][]callback.Button{
		{{Label: "Food", Payload: "/report Food"}, {Label: "Rent", Payload: "/report Rent"}},
		{{Label: "Rename", Payload: "/rename_category Food ", Kind: callback.Prefill}},
	}
	require.NoError(t, c.SetButtons(context.Background(), 1, 3, rows))

	output := out.String()
	assert.Contains(t, output, "[1] Food")
	assert.Contains(t, output, "[2] Rent")
	assert.Contains(t, output, "[3] Rename "+PrefillIcon)

	button, messageID, err := c.button(2)
	require.NoError(t, err)
	assert.Equal(t, "/report Rent", button.Payload)
	assert.Equal(t, 3, messageID)

	_, _, err = c.button(4)
	assert.Error(t, err)
}

func TestConsole_EditDropsButtons(t *testing.T) {
	c := NewConsole(&bytes.Buffer{}, "")
	ctx := context.Background()

	id, err := c.Send(ctx, 1, message.New().Plain("menu"))
	require.NoError(t, err)
	require.NoError(t, c.SetButtons(ctx, 1, id, [][]callback.Button{{{Label: "x", Payload: "/list"}}}))
	require.NoError(t, c.Edit(ctx, 1, id, message.New().Plain("done")))

	_, _, err = c.button(1)
	assert.Error(t, err)
}

func TestConsole_Run(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, "")
	ctx := context.Background()

	id, err := c.Send(ctx, 5, message.New().Plain("menu"))
	require.NoError(t, err)
	require.NoError(t, c.SetButtons(ctx, 5, id, [][]callback.Button{{
		{Label: "List", Payload: "/list"},
		{Label: "Rename", Payload: "/rename_category Food ", Kind: callback.Prefill},
	}}))

	input := strings.Join([]string{
		"Coffee 4.50",
		"",
		":1",
		":2",
		"Groceries",
		":9",
	}, "\n") + "\n"

	handler := &recordingHandler{}
	require.NoError(t, c.Run(ctx, strings.NewReader(input), 5, handler))

	require.Len(t, handler.messages, 2)
	assert.Equal(t, "Coffee 4.50", handler.messages[0].Text)
	assert.Equal(t, int64(5), handler.messages[0].ChatID)
	assert.False(t, handler.messages[0].Forwarded)
	assert.Equal(t, "/rename_category Food Groceries", handler.messages[1].Text)

	require.Len(t, handler.callbacks, 1)
	assert.Equal(t, bot.CallbackEvent{Data: "/list", ChatID: 5, MessageID: id}, handler.callbacks[0])

	assert.Contains(t, out.String(), "no button 9")
}

func TestConsole_RunStopsOnCancel(t *testing.T) {
	c := NewConsole(&bytes.Buffer{}, "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Run(ctx, strings.NewReader("/list\n"), 1, &recordingHandler{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsole_SubmitSendsOneMessage(t *testing.T) {
	c := NewConsole(&bytes.Buffer{}, "")
	handler := &recordingHandler{}

	require.NoError(t, c.Submit(context.Background(), strings.NewReader("Coffee 4\nLunch 12\n\n"), 3, handler))
	require.NoError(t, c.Submit(context.Background(), strings.NewReader("  \n"), 3, handler))

	require.Len(t, handler.messages, 1)
	assert.Equal(t, "Coffee 4\nLunch 12", handler.messages[0].Text)
}

func TestConsole_SendPhoto(t *testing.T) {
	t.Run("saved to directory", func(t *testing.T) {
		dir := t.TempDir()
		var out bytes.Buffer
		c := NewConsole(&out, dir)

		require.NoError(t, c.SendPhoto(context.Background(), 1, []byte("png"), "Totals"))

		data, err := os.ReadFile(filepath.Join(dir, "chart-1.png"))
		require.NoError(t, err)
		assert.Equal(t, []byte("png"), data)
		assert.Contains(t, out.String(), "Totals saved to")
	})

	t.Run("size only", func(t *testing.T) {
		var out bytes.Buffer
		c := NewConsole(&out, "")

		require.NoError(t, c.SendPhoto(context.Background(), 1, []byte("png"), "Totals"))
		assert.Contains(t, out.String(), "[chart, 3 bytes]")
	})
}

func TestPressIndex(t *testing.T) {
	tests := []struct {
		line   string
		want   int
		wantOK bool
	}{
		{line: ":1", want: 1, wantOK: true},
		{line: ": 12", want: 12, wantOK: true},
		{line: ":x"},
		{line: "1"},
		{line: "Coffee 4"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			n, ok := pressIndex(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestConsole_DrivesBot(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, "")
	store := storage.NewMemoryStore()
	b := bot.New(c, store, bot.Options{Name: "ledgerbot", Version: "test", BatchDelay: 10 * time.Millisecond})
	t.Cleanup(b.Wait)

	input := "/add_category\n:1\nFood\n/categories\n"
	require.NoError(t, c.Run(context.Background(), strings.NewReader(input), 8, b))

	categories, err := store.Categories(context.Background(), 8)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Food", categories[0].Name)
	assert.Contains(t, out.String(), "/add_category Food")
}
