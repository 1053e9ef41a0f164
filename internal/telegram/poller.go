package telegram

import (
	"context"
	"time"

	"github.com/Veraticus/ledgerbot/internal/bot"
	"github.com/Veraticus/ledgerbot/internal/common"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"
)

// Defaults for long polling.
const (
	DefaultPollTimeout = 60
	DefaultWorkers     = 8
)

// Handler receives converted updates.
type Handler interface {
	HandleMessage(ctx context.Context, in bot.Incoming)
	HandleCallback(ctx context.Context, ev bot.CallbackEvent)
}

// Poller long-polls for updates and hands each one to the handler on its own
// goroutine, at most workers at a time.
type Poller struct {
	api     API
	adapter *Adapter
	handler Handler
	timeout int
	workers int
}

// NewPoller creates a poller. timeout is the long-poll timeout in seconds.
func NewPoller(api API, adapter *Adapter, handler Handler, timeout, workers int) *Poller {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Poller{api: api, adapter: adapter, handler: handler, timeout: timeout, workers: workers}
}

// Run polls until ctx is cancelled or the update channel closes, then waits for
// in-flight updates to finish.
func (p *Poller) Run(ctx context.Context) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = p.timeout
	updates := p.api.GetUpdatesChan(config)
	defer p.api.StopReceivingUpdates()

	var g errgroup.Group
	g.SetLimit(p.workers)

	common.LogInfo("Polling for updates", common.Fields{"workers": p.workers, "timeout": p.timeout})
	for {
		select {
		case <-ctx.Done():
			_ = g.Wait()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return g.Wait()
			}
			g.Go(func() error {
				p.handle(ctx, update)
				return nil
			})
		}
	}
}

func (p *Poller) handle(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		if err := p.adapter.AnswerCallback(ctx, query.ID); err != nil {
			common.LogError(err, "Failed to answer callback", common.Fields{"update_id": update.UpdateID})
		}
		if ev, ok := callbackEvent(query); ok {
			p.handler.HandleCallback(ctx, ev)
		}
	case update.Message != nil:
		if in, ok := incoming(update.Message); ok {
			p.handler.HandleMessage(ctx, in)
		}
	}
}

func incoming(msg *tgbotapi.Message) (bot.Incoming, bool) {
	if msg.Chat == nil || msg.Text == "" {
		return bot.Incoming{}, false
	}
	// Forwarded expenses belong to the day they were originally sent.
	date := msg.Time()
	if msg.ForwardDate != 0 {
		date = time.Unix(int64(msg.ForwardDate), 0)
	}
	return bot.Incoming{
		ChatID:    msg.Chat.ID,
		Text:      msg.Text,
		Date:      date,
		Forwarded: msg.ForwardDate != 0,
	}, true
}

func callbackEvent(query *tgbotapi.CallbackQuery) (bot.CallbackEvent, bool) {
	if query.Message == nil || query.Message.Chat == nil {
		return bot.CallbackEvent{}, false
	}
	return bot.CallbackEvent{
		ChatID:    query.Message.Chat.ID,
		MessageID: query.Message.MessageID,
		Data:      query.Data,
	}, true
}
