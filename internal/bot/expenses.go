package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/command"
	"github.com/Veraticus/ledgerbot/internal/message"
	"github.com/Veraticus/ledgerbot/internal/model"
)

func (b *Bot) registerExpenses() {
	b.router.Handle(startSpec).Stage(0, b.start)
	b.router.Handle(helpSpec).Stage(0, b.help)

	b.router.Handle(addExpenseSpec).
		Stage(0, b.addExpenseUsage).
		Stage(1, b.addExpenseMissing("description and amount")).
		Stage(2, b.addExpenseMissing("amount")).
		Stage(3, b.addExpense)

	b.router.Handle(listSpec).Stage(0, b.list)

	b.router.Handle(reportSpec).
		Stage(0, b.report).
		Stage(1, b.reportCategory)

	b.router.Handle(clearSpec).
		Stage(0, b.confirmMenu(clearSpec, "🗑️ Clear", func([]command.Value) *message.Text {
			return message.New().Plain("🗑️ Remove every expense?")
		})).
		Stage(1, b.clearExpenses)
}

func (b *Bot) start(ctx context.Context, req *Request, _ []command.Value) error {
	text := message.New().Bold("🤖 Expense Bot")
	if b.version != "" {
		text.Bold(" v" + b.version)
	}
	text.Line().Plain("Menu buttons are available")
	if err := b.platform.SetMenu(ctx, req.ChatID, text, MenuLabels); err != nil {
		return fmt.Errorf("failed to set menu: %w", err)
	}
	return b.help(ctx, req, nil)
}

func (b *Bot) help(ctx context.Context, req *Request, _ []command.Value) error {
	text := message.New().Bold("💡 Commands").Line().Line()
	for _, spec := range b.router.Registry().Specs() {
		text.Code(spec.MustNew().Usage()).Plain(" - " + spec.Description).Line()
	}
	text.Line().
		Plain("Any other line records an expense: ").
		Code("[<yyyy-mm-dd>] <description> <amount>").Line().
		Plain("Send several lines at once to record them in one batch. ").
		Plain("Escape spaces inside command arguments with a backslash: ").Code(`My\ Lunch`)
	b.reply(ctx, req.ChatID, text)
	return nil
}

func (b *Bot) addExpenseUsage(ctx context.Context, req *Request, _ []command.Value) error {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	example := func(desc string, amount float64) string {
		return addExpenseSpec.MustNew(command.Date(day), command.Text(desc), command.Decimal(amount)).String()
	}

	b.reply(ctx, req.ChatID, message.New().
		Plain("📝 Usage: ").Code(addExpenseSpec.MustNew().Usage()).Line().Line().
		Plain("Examples:").Line().
		Plain("• ").Code(example("Coffee", 5.5)).Line().
		Plain("• ").Code(example("My Lunch", 12)).Plain(" (with escaped space)").Line().
		Plain("• ").Code("2024-01-15 Groceries 45.30").Plain(" (plain line)"))
	return nil
}

func (b *Bot) addExpenseMissing(what string) func(context.Context, *Request, []command.Value) error {
	return func(ctx context.Context, req *Request, args []command.Value) error {
		b.reply(ctx, req.ChatID, message.New().
			Plain("❌ Missing "+what+". Usage: ").Code(usage(addExpenseSpec, args)))
		return nil
	}
}

func (b *Bot) addExpense(ctx context.Context, req *Request, args []command.Value) error {
	entry := model.NewEntry(args[0].Date(), args[1].Text(), args[2].Decimal())
	if _, err := b.store.AddEntries(ctx, req.ChatID, entry); err != nil {
		return fmt.Errorf("failed to add expense: %w", err)
	}
	b.confirm(ctx, req, message.New().
		Plain("✅ Expense added: ").
		Code(fmt.Sprintf("%s %s %.2f", entry.Timestamp.Format(command.DateLayout), entry.Description, entry.Amount)))
	return nil
}

func (b *Bot) list(ctx context.Context, req *Request, _ []command.Value) error {
	entries, err := b.store.Entries(ctx, req.ChatID)
	if err != nil {
		return fmt.Errorf("failed to load expenses: %w", err)
	}
	if len(entries) == 0 {
		b.reply(ctx, req.ChatID, message.New().Plain("📭 No expenses recorded yet."))
		return nil
	}

	text := message.New().Bold(fmt.Sprintf("🗒️ Expenses (%d)", len(entries))).Line()
	for _, e := range entries {
		text.Code(expenseCommand(e).String()).Line()
	}
	b.reply(ctx, req.ChatID, text)
	return nil
}

// expenseCommand renders an entry as the command that records it.
func expenseCommand(e model.Entry) command.Command {
	return addExpenseSpec.MustNew(
		command.Date(e.Timestamp),
		command.Text(e.Description),
		command.Decimal(e.Amount),
	)
}

func (b *Bot) clearExpenses(ctx context.Context, req *Request, args []command.Value) error {
	if !args[0].Bool() {
		b.confirm(ctx, req, message.New().Plain("❌ Clearing expenses cancelled."))
		return nil
	}
	if err := b.store.ClearEntries(ctx, req.ChatID); err != nil {
		return fmt.Errorf("failed to clear expenses: %w", err)
	}
	b.confirm(ctx, req, message.New().Plain("🗑️ All expenses cleared!"))
	return nil
}

// confirmMenu asks for a yes/no answer appended as the last slot of spec after
// the already supplied args.
func (b *Bot) confirmMenu(spec *command.Spec, yes string, question func(args []command.Value) *message.Text) func(context.Context, *Request, []command.Value) error {
	return func(ctx context.Context, req *Request, args []command.Value) error {
		with := func(answer bool) command.Command {
			return spec.MustNew(append(append([]command.Value(nil), args...), command.Bool(answer))...)
		}
		return b.menu(ctx, req, question(args), [][]callback.Button{{
			commandButton(yes, with(true)),
			commandButton("❌ Cancel", with(false)),
		}})
	}
}
