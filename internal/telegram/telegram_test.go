package telegram

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/ledgerbot/internal/bot"
	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/message"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	updates     chan tgbotapi.Update
	sendErrs    []error
	requestErrs []error
	sent        []tgbotapi.Chattable
	requests    []tgbotapi.Chattable
	mu          sync.Mutex
	nextID      int
	stopped     bool
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	if len(f.sendErrs) > 0 {
		err := f.sendErrs[0]
		f.sendErrs = f.sendErrs[1:]
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.nextID++
	return tgbotapi.Message{MessageID: f.nextID}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	if len(f.requestErrs) > 0 {
		err := f.requestErrs[0]
		f.requestErrs = f.requestErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

var fastRetry = common.RetryOptions{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}

func TestAdapter_SendRendersHTML(t *testing.T) {
	api := &fakeAPI{}
	adapter := NewAdapter(api, fastRetry)

	id, err := adapter.Send(context.Background(), 7, message.New().Plain("a < b ").Code("x"))
	require.NoError(t, err)
	assert.Equal(t, 1, id)

	require.Len(t, api.sent, 1)
	msg, ok := api.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(7), msg.ChatID)
	assert.Equal(t, "a &lt; b <code>x</code>", msg.Text)
	assert.Equal(t, tgbotapi.ModeHTML, msg.ParseMode)
}

func TestAdapter_SendTruncatesLongMessages(t *testing.T) {
	api := &fakeAPI{}
	adapter := NewAdapter(api, fastRetry)

	_, err := adapter.Send(context.Background(), 7, message.New().Plain(strings.Repeat("ж", MaxMessageLength+10)))
	require.NoError(t, err)

	msg := api.sent[0].(tgbotapi.MessageConfig)
	assert.Equal(t, MaxMessageLength, utf8.RuneCountInString(msg.Text))
	assert.True(t, strings.HasSuffix(msg.Text, message.Ellipsis))
}

func TestAdapter_Retry(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   bool
	}{
		{
			name:      "rate limited then delivered",
			errs:      []error{&tgbotapi.Error{Code: 429, Message: "Too Many Requests"}, nil},
			wantCalls: 2,
		},
		{
			name:      "bad request is final",
			errs:      []error{&tgbotapi.Error{Code: 400, Message: "Bad Request: chat not found"}},
			wantCalls: 1,
			wantErr:   true,
		},
		{
			name:      "transport errors retried until exhausted",
			errs:      []error{errors.New("eof"), errors.New("eof"), errors.New("eof")},
			wantCalls: 3,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{sendErrs: tt.errs}
			_, err := NewAdapter(api, fastRetry).Send(context.Background(), 1, message.New().Plain("hi"))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, api.sent, tt.wantCalls)
		})
	}
}

func TestAdapter_EditIgnoresNotModified(t *testing.T) {
	api := &fakeAPI{requestErrs: []error{&tgbotapi.Error{Code: 400, Message: "Bad Request: message is not modified"}}}
	adapter := NewAdapter(api, fastRetry)

	err := adapter.Edit(context.Background(), 1, 5, message.New().Bold("menu"))
	require.NoError(t, err)

	edit, ok := api.requests[0].(tgbotapi.EditMessageTextConfig)
	require.True(t, ok)
	assert.Equal(t, 5, edit.MessageID)
	assert.Equal(t, "<b>menu</b>", edit.Text)
}

func TestAdapter_SetButtons(t *testing.T) {
	api := &fakeAPI{}
	adapter := NewAdapter(api, fastRetry)

	rows := [][]callback.Button{
		{{Label: "📁 Food", Payload: "/report Food", Kind: callback.Callback}},
		{{Label: "✏️ Rename", Payload: "/rename_category Food ", Kind: callback.Prefill}},
	}
	require.NoError(t, adapter.SetButtons(context.Background(), 1, 9, rows))

	markup, ok := api.requests[0].(tgbotapi.EditMessageReplyMarkupConfig)
	require.True(t, ok)
	require.NotNil(t, markup.ReplyMarkup)
	keyboard := markup.ReplyMarkup.InlineKeyboard
	require.Len(t, keyboard, 2)

	require.NotNil(t, keyboard[0][0].CallbackData)
	assert.Equal(t, "/report Food", *keyboard[0][0].CallbackData)
	require.NotNil(t, keyboard[1][0].SwitchInlineQueryCurrentChat)
	assert.Equal(t, "/rename_category Food ", *keyboard[1][0].SwitchInlineQueryCurrentChat)
	assert.Nil(t, keyboard[1][0].CallbackData)
}

func TestAdapter_SetMenu(t *testing.T) {
	api := &fakeAPI{}
	adapter := NewAdapter(api, fastRetry)

	require.NoError(t, adapter.SetMenu(context.Background(), 1, message.New().Plain("menu"), bot.MenuLabels))

	msg := api.sent[0].(tgbotapi.MessageConfig)
	keyboard, ok := msg.ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.Keyboard, 1)
	assert.Len(t, keyboard.Keyboard[0], len(bot.MenuLabels))
	assert.True(t, keyboard.ResizeKeyboard)
}

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

func TestPoller_Run(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update, 4)}
	handler := &recordingHandler{}
	poller := NewPoller(api, NewAdapter(api, fastRetry), handler, 1, 2)

	chat := &tgbotapi.Chat{ID: 99}
	api.updates <- tgbotapi.Update{UpdateID: 1, Message: &tgbotapi.Message{
		Chat: chat, Text: "Coffee 5", Date: 1704067200, ForwardDate: 1703980800,
	}}
	api.updates <- tgbotapi.Update{UpdateID: 2, CallbackQuery: &tgbotapi.CallbackQuery{
		ID: "q1", Data: "/report", Message: &tgbotapi.Message{MessageID: 3, Chat: chat},
	}}
	api.updates <- tgbotapi.Update{UpdateID: 3, Message: &tgbotapi.Message{Chat: chat}}
	close(api.updates)

	require.NoError(t, poller.Run(context.Background()))

	require.Len(t, handler.messages, 1)
	assert.Equal(t, bot.Incoming{
		ChatID:    99,
		Text:      "Coffee 5",
		Date:      time.Unix(1703980800, 0),
		Forwarded: true,
	}, handler.messages[0])

	require.Len(t, handler.callbacks, 1)
	assert.Equal(t, bot.CallbackEvent{ChatID: 99, MessageID: 3, Data: "/report"}, handler.callbacks[0])

	require.Len(t, api.requests, 1)
	_, ok := api.requests[0].(tgbotapi.CallbackConfig)
	assert.True(t, ok, "callback queries are answered")
	assert.True(t, api.stopped)
}

func TestPoller_StopsOnCancel(t *testing.T) {
	api := &fakeAPI{updates: make(chan tgbotapi.Update)}
	poller := NewPoller(api, NewAdapter(api, fastRetry), &recordingHandler{}, 0, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, poller.Run(ctx), context.Canceled)
}

func TestIncoming_Date(t *testing.T) {
	chat := &tgbotapi.Chat{ID: 7}
	tests := []struct {
		name          string
		msg           *tgbotapi.Message
		wantDate      time.Time
		wantForwarded bool
	}{
		{
			name:     "sent date",
			msg:      &tgbotapi.Message{Chat: chat, Text: "Coffee 5", Date: 1704067200},
			wantDate: time.Unix(1704067200, 0),
		},
		{
			name:          "forwarded keeps original date",
			msg:           &tgbotapi.Message{Chat: chat, Text: "Coffee 5", Date: 1704067200, ForwardDate: 1701388800},
			wantDate:      time.Unix(1701388800, 0),
			wantForwarded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, ok := incoming(tt.msg)
			require.True(t, ok)
			assert.Equal(t, tt.wantDate, in.Date)
			assert.Equal(t, tt.wantForwarded, in.Forwarded)
		})
	}
}
