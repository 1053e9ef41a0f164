// Package telegram connects the bot to the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/message"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLength is the Telegram limit on message text, in characters.
const MaxMessageLength = 4096

// API is the part of *tgbotapi.BotAPI the adapter uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Adapter implements bot.Platform on top of the Bot API.
type Adapter struct {
	api   API
	retry common.RetryOptions
}

// NewAdapter creates an adapter. Calls rejected with HTTP 429 are retried with retry.
func NewAdapter(api API, retry common.RetryOptions) *Adapter {
	return &Adapter{api: api, retry: retry}
}

// Send posts an HTML message.
func (a *Adapter) Send(ctx context.Context, chatID int64, text *message.Text) (int, error) {
	msg := tgbotapi.NewMessage(chatID, render(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := a.send(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to send message: %w", err)
	}
	return sent.MessageID, nil
}

// Edit replaces a message's text. Telegram drops the inline keyboard with it.
func (a *Adapter) Edit(ctx context.Context, chatID int64, messageID int, text *message.Text) error {
	edit := tgbotapi.NewEditMessageText(chatID, messageID, render(text))
	edit.ParseMode = tgbotapi.ModeHTML
	edit.DisableWebPagePreview = true

	if err := a.request(ctx, edit); err != nil {
		return fmt.Errorf("failed to edit message %d: %w", messageID, err)
	}
	return nil
}

// SetButtons attaches an inline keyboard to a message.
func (a *Adapter) SetButtons(ctx context.Context, chatID int64, messageID int, rows [][]callback.Button) error {
	markup := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, inlineKeyboard(rows))
	if err := a.request(ctx, markup); err != nil {
		return fmt.Errorf("failed to set buttons on message %d: %w", messageID, err)
	}
	return nil
}

// SetMenu posts text with a persistent reply keyboard, one row of labels.
func (a *Adapter) SetMenu(ctx context.Context, chatID int64, text *message.Text, labels []string) error {
	row := make([]tgbotapi.KeyboardButton, len(labels))
	for i, label := range labels {
		row[i] = tgbotapi.NewKeyboardButton(label)
	}
	keyboard := tgbotapi.NewReplyKeyboard(row)
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(chatID, render(text))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = keyboard

	if _, err := a.send(ctx, msg); err != nil {
		return fmt.Errorf("failed to set menu: %w", err)
	}
	return nil
}

// SendPhoto uploads a PNG image.
func (a *Adapter) SendPhoto(ctx context.Context, chatID int64, png []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "report.png", Bytes: png})
	photo.Caption = caption

	if _, err := a.send(ctx, photo); err != nil {
		return fmt.Errorf("failed to send photo: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press so the client stops its spinner.
func (a *Adapter) AnswerCallback(ctx context.Context, queryID string) error {
	if err := a.request(ctx, tgbotapi.NewCallback(queryID, "")); err != nil {
		return fmt.Errorf("failed to answer callback: %w", err)
	}
	return nil
}

func (a *Adapter) send(ctx context.Context, c tgbotapi.Chattable) (tgbotapi.Message, error) {
	var sent tgbotapi.Message
	err := common.WithRetry(ctx, func() error {
		var err error
		sent, err = a.api.Send(c)
		return classifyError(err)
	}, a.retry)
	return sent, err
}

func (a *Adapter) request(ctx context.Context, c tgbotapi.Chattable) error {
	err := common.WithRetry(ctx, func() error {
		_, err := a.api.Request(c)
		return classifyError(err)
	}, a.retry)
	if isNotModified(err) {
		return nil
	}
	return err
}

// classifyError marks rate limits for retry and other API rejections as final.
// Transport errors stay retryable.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.Code == http.StatusTooManyRequests || apiErr.RetryAfter > 0 {
		return &common.RateLimitError{Err: err, RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second}
	}
	return &common.RetryableError{Err: err, Retryable: false}
}

// isNotModified reports the error Telegram returns when an edit changes nothing.
func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}

func render(text *message.Text) string {
	return text.Truncate(MaxMessageLength).HTML()
}

func inlineKeyboard(rows [][]callback.Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			if b.Kind == callback.Prefill {
				query := b.Payload
				buttons = append(buttons, tgbotapi.InlineKeyboardButton{
					Text:                         b.Label,
					SwitchInlineQueryCurrentChat: &query,
				})
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Payload))
		}
		keyboard = append(keyboard, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...)
}
