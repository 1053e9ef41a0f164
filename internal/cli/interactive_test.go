package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/Veraticus/ledgerbot/internal/bot"
	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/message"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typeText(t *testing.T, m promptModel, text string) promptModel {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	next, ok := updated.(promptModel)
	require.True(t, ok)
	return next
}

func pressEnter(t *testing.T, m promptModel) (promptModel, tea.Msg) {
	t.Helper()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	next, ok := updated.(promptModel)
	require.True(t, ok)
	require.NotNil(t, cmd)
	return next, cmd()
}

func TestPromptModel_EnterSendsMessage(t *testing.T) {
	c := NewConsole(&bytes.Buffer{}, "")
	handler := &recordingHandler{}
	m := newPromptModel(context.Background(), c, 5, handler)

	m = typeText(t, m, "Coffee 4.50")
	assert.Equal(t, "Coffee 4.50", m.input.Value())

	m, msg := pressEnter(t, m)
	assert.Nil(t, msg)
	assert.Empty(t, m.input.Value())

	require.Len(t, handler.messages, 1)
	assert.Equal(t, "Coffee 4.50", handler.messages[0].Text)
	assert.Equal(t, int64(5), handler.messages[0].ChatID)
}

func TestPromptModel_Buttons(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, "")
	ctx := context.Background()

	id, err := c.Send(ctx, 5, message.New().Plain("menu"))
	require.NoError(t, err)
	require.NoError(t, c.SetButtons(ctx, 5, id, [][]callback.Button{{
		{Label: "List", Payload: "/list"},
		{Label: "Rename", Payload: "/rename_category Food ", Kind: callback.Prefill},
	}}))

	handler := &recordingHandler{}
	m := newPromptModel(ctx, c, 5, handler)

	t.Run("callback button", func(t *testing.T) {
		_, msg := pressEnter(t, typeText(t, m, ":1"))
		assert.Nil(t, msg)
		require.Len(t, handler.callbacks, 1)
		assert.Equal(t, bot.CallbackEvent{Data: "/list", ChatID: 5, MessageID: id}, handler.callbacks[0])
	})

	t.Run("prefill button stages input", func(t *testing.T) {
		next, msg := pressEnter(t, typeText(t, m, ":2"))
		require.Equal(t, stagedMsg{text: "/rename_category Food "}, msg)

		updated, _ := next.Update(msg)
		next = updated.(promptModel)
		assert.Equal(t, "/rename_category Food ", next.input.Value())

		next = typeText(t, next, "Groceries")
		_, _ = pressEnter(t, next)
		require.Len(t, handler.messages, 1)
		assert.Equal(t, "/rename_category Food Groceries", handler.messages[0].Text)
	})

	t.Run("missing button", func(t *testing.T) {
		_, msg := pressEnter(t, typeText(t, m, ":9"))
		assert.Nil(t, msg)
		assert.Contains(t, out.String(), "no button 9")
	})
}

func TestPromptModel_Quit(t *testing.T) {
	m := newPromptModel(context.Background(), NewConsole(&bytes.Buffer{}, ""), 1, &recordingHandler{})

	for _, key := range []tea.KeyType{tea.KeyCtrlC, tea.KeyCtrlD} {
		_, cmd := m.Update(tea.KeyMsg{Type: key})
		require.NotNil(t, cmd)
		assert.Equal(t, tea.Quit(), cmd())
	}
}

func TestConsole_AttachedPrinter(t *testing.T) {
	var out bytes.Buffer
	c := NewConsole(&out, "")
	var printed []string
	c.attach(func(s string) { printed = append(printed, s) })

	_, err := c.Send(context.Background(), 1, message.New().Plain("hello"))
	require.NoError(t, err)
	c.prompt("")

	assert.Empty(t, out.String(), "attached output bypasses the writer")
	require.Len(t, printed, 1)
	assert.Contains(t, printed[0], "hello")
	assert.NotContains(t, printed[0], "\n\n")

	c.attach(nil)
	c.prompt("")
	assert.NotEmpty(t, out.String())
}
