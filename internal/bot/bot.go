// Package bot turns chat messages and button presses into ledger commands and
// runs them against a chat's categories and expenses.
package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/ledgerbot/internal/batch"
	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/classify"
	"github.com/Veraticus/ledgerbot/internal/command"
	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/dispatch"
	"github.com/Veraticus/ledgerbot/internal/message"
	"github.com/Veraticus/ledgerbot/internal/storage"
)

// MenuLabels are the persistent keyboard buttons set by /start.
var MenuLabels = []string{"💡 /help", "🗒️ /list", "🗂 /categories", "📋 /report"}

// ChartRenderer draws a report as a PNG image.
type ChartRenderer interface {
	RenderTotals(report *classify.Report) ([]byte, error)
}

// Options configures a Bot.
type Options struct {
	// Charts, when set, adds an image of the totals to /report.
	Charts ChartRenderer
	// Name is the bot username; commands addressed to other bots are rejected.
	Name    string
	Version string
	// BatchDelay is how long multi-line input is collected before it runs.
	BatchDelay time.Duration
	// MaxPayload is the button payload ceiling in bytes.
	MaxPayload int
}

// Bot routes inbound events to command families.
type Bot struct {
	platform  Platform
	store     storage.Store
	charts    ChartRenderer
	router    *dispatch.Router[*Request]
	parser    *Parser
	callbacks *callback.Store
	batches   *batch.Aggregator
	version   string
}

// New creates a bot that talks through platform and persists to store.
func New(platform Platform, store storage.Store, opts Options) *Bot {
	b := &Bot{
		platform:  platform,
		store:     store,
		charts:    opts.Charts,
		router:    dispatch.NewRouter[*Request](),
		callbacks: callback.NewStore(opts.MaxPayload),
		version:   opts.Version,
	}
	b.registerExpenses()
	b.registerCategories()
	b.registerFilters()
	b.registerWordFilters()

	b.parser = NewParser(b.router.Registry(), opts.Name)
	b.batches = batch.NewAggregator(b, entryAmount, opts.BatchDelay)
	return b
}

// Parser returns the inbound line parser.
func (b *Bot) Parser() *Parser { return b.parser }

// Wait blocks until every open batch has drained.
func (b *Bot) Wait() { b.batches.Wait() }

// HandleMessage processes a text message. Several lines, or a forwarded message,
// are collected into a batch; a single line runs immediately.
func (b *Bot) HandleMessage(ctx context.Context, in Incoming) {
	items := b.parser.Parse(in.Text, in.Date)
	fields := common.ChatFields(in.ChatID).With("lines", len(items))
	if len(items) == 0 {
		return
	}

	if len(items) > 1 || in.Forwarded {
		outcome := b.batches.Submit(ctx, in.ChatID, items...)
		common.LogDebug("Message batched", fields.With("outcome", outcome.String()))
		return
	}

	common.LogDebug("Message received", fields)
	item := items[0]
	if item.Err != nil {
		b.ReportError(ctx, in.ChatID, item.Err)
		return
	}
	b.execute(ctx, &Request{ChatID: in.ChatID}, item.Command)
}

// HandleCallback processes a button press. Payloads that are stale references or
// do not parse are ignored.
func (b *Bot) HandleCallback(ctx context.Context, ev CallbackEvent) {
	data := b.callbacks.Unpack(ev.ChatID, ev.Data)
	fields := common.ChatFields(ev.ChatID).With("message_id", ev.MessageID).With("data", data)
	if callback.IsReference(data) {
		common.LogDebug("Ignoring expired callback reference", fields)
		return
	}

	cmd, err := b.router.Registry().Parse(data, b.parser.botName)
	if err != nil {
		common.LogError(err, "Ignoring unparseable callback", fields)
		return
	}

	common.LogDebug("Callback received", fields)
	b.execute(ctx, &Request{ChatID: ev.ChatID, MessageID: ev.MessageID}, cmd)
}

// ExecuteSilent runs a batched command without confirmations. Failures the user
// can act on are still shown.
func (b *Bot) ExecuteSilent(ctx context.Context, chatID int64, cmd command.Command) error {
	err := b.router.Dispatch(ctx, &Request{ChatID: chatID, Silent: true}, cmd)
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		b.reply(ctx, chatID, message.New().Plain("❌ "+userErr.UserMessage))
	}
	return err
}

// ReportError shows a line that could not be parsed.
func (b *Bot) ReportError(ctx context.Context, chatID int64, err error) {
	text := message.New().Plain("❌ ")
	var lineErr *LineError
	if errors.As(err, &lineErr) {
		text.Plain("Failed to parse command ").Code(lineErr.Line).Plain(": " + lineErr.Err.Error())
	} else {
		text.Plain(err.Error())
	}
	b.reply(ctx, chatID, text)
}

// Summarize reports a drained batch.
func (b *Bot) Summarize(ctx context.Context, summary batch.Summary) {
	text := message.New().
		Bold("✅ Batch Summary Report").Line().
		Plainf("Expense records parsed: %d", summary.Count).Line().
		Plainf("Total amount: %.2f", summary.Total).Line()
	if summary.Failed > 0 {
		text.Plainf("Lines failed: %d", summary.Failed).Line()
	}
	text.Line().Plain("Use /list or /report to see all expenses.")
	b.reply(ctx, summary.ChatID, text)
}

func (b *Bot) execute(ctx context.Context, req *Request, cmd command.Command) {
	err := b.router.Dispatch(ctx, req, cmd)
	if err == nil {
		return
	}

	var incomplete *dispatch.IncompleteError
	var userErr *common.UserError
	switch {
	case errors.As(err, &incomplete):
		b.reply(ctx, req.ChatID, message.New().Plain("❌ Missing arguments. Usage: ").Code(incomplete.Usage))
	case errors.As(err, &userErr):
		b.reply(ctx, req.ChatID, message.New().Plain("❌ "+userErr.UserMessage))
	default:
		common.LogError(err, "Command failed", common.ChatFields(req.ChatID).With("command", cmd.String()))
		b.reply(ctx, req.ChatID, message.New().Plain("❌ Something went wrong running ").Code(cmd.String()))
	}
}

// reply sends a new message, logging delivery failures.
func (b *Bot) reply(ctx context.Context, chatID int64, text *message.Text) {
	if _, err := b.platform.Send(ctx, chatID, text); err != nil {
		common.LogError(err, "Failed to send message", common.ChatFields(chatID))
	}
}

// confirm replies unless the request runs silently.
func (b *Bot) confirm(ctx context.Context, req *Request, text *message.Text) {
	if req.Silent {
		return
	}
	b.reply(ctx, req.ChatID, text)
}

// menu shows text with inline buttons. A request from a button press edits the
// originating message; otherwise a new message is sent. Buttons are packed
// against the message they end up on.
func (b *Bot) menu(ctx context.Context, req *Request, text *message.Text, rows [][]callback.Button) error {
	messageID := req.MessageID
	if messageID != 0 {
		if err := b.platform.Edit(ctx, req.ChatID, messageID, text); err != nil {
			return fmt.Errorf("failed to edit menu: %w", err)
		}
	} else {
		id, err := b.platform.Send(ctx, req.ChatID, text)
		if err != nil {
			return fmt.Errorf("failed to send menu: %w", err)
		}
		messageID = id
	}

	if len(rows) == 0 {
		return nil
	}
	packed := b.callbacks.Pack(req.ChatID, messageID, rows)
	if err := b.platform.SetButtons(ctx, req.ChatID, messageID, packed); err != nil {
		return fmt.Errorf("failed to attach buttons: %w", err)
	}
	return nil
}

func commandButton(label string, cmd command.Command) callback.Button {
	return callback.Button{Label: label, Payload: cmd.String(), Kind: callback.Callback}
}

func prefillButton(label string, cmd command.Command) callback.Button {
	return callback.Button{Label: label, Payload: cmd.Minimal(), Kind: callback.Prefill}
}

func backButton(cmd command.Command) callback.Button {
	return commandButton("↩️ Back", cmd)
}

// usage renders the complete form of spec with args populated.
func usage(spec *command.Spec, args []command.Value) string {
	cmd, err := spec.New(args...)
	if err != nil {
		return spec.MustNew().Usage()
	}
	return cmd.Usage()
}
