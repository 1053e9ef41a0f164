package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/classify"
	"github.com/Veraticus/ledgerbot/internal/command"
	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/message"
	"github.com/Veraticus/ledgerbot/internal/model"
)

// groupEntries loads the chat's data and groups it. A nil report with a nil
// error means a conflict message has already been sent.
func (b *Bot) groupEntries(ctx context.Context, req *Request) (*classify.Report, []model.Entry, error) {
	categories, err := b.store.Categories(ctx, req.ChatID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load categories: %w", err)
	}
	entries, err := b.store.Entries(ctx, req.ChatID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	report, err := classify.NewMatcher(categories).Group(entries)
	var conflict *classify.ConflictError
	if errors.As(err, &conflict) {
		b.reply(ctx, req.ChatID, conflictText(conflict))
		return nil, entries, nil
	}
	return report, entries, err
}

func (b *Bot) report(ctx context.Context, req *Request, _ []command.Value) error {
	report, entries, err := b.groupEntries(ctx, req)
	if err != nil || report == nil {
		return err
	}
	if len(entries) == 0 {
		b.reply(ctx, req.ChatID, message.New().Plain("📭 No expenses recorded yet."))
		return nil
	}

	for _, bucket := range report.Buckets {
		b.reply(ctx, req.ChatID, bucketText(bucket))
	}

	if b.charts != nil {
		png, err := b.charts.RenderTotals(report)
		if err != nil {
			common.LogError(err, "Failed to render report chart", common.ChatFields(req.ChatID))
		} else if err := b.platform.SendPhoto(ctx, req.ChatID, png, "📊 Totals by category"); err != nil {
			common.LogError(err, "Failed to send report chart", common.ChatFields(req.ChatID))
		}
	}

	rows := make([][]callback.Button, 0, len(report.Buckets))
	for _, bucket := range report.Buckets {
		rows = append(rows, []callback.Button{
			commandButton("📁 "+bucket.Category, reportSpec.MustNew(command.Text(bucket.Category))),
		})
	}
	return b.menu(ctx, req, totalsText(report), rows)
}

func (b *Bot) reportCategory(ctx context.Context, req *Request, args []command.Value) error {
	report, _, err := b.groupEntries(ctx, req)
	if err != nil || report == nil {
		return err
	}

	name := args[0].Text()
	bucket, ok := report.Bucket(name)
	if !ok {
		return common.NewUserError(fmt.Sprintf("No expenses in category %q", name), common.ErrNotFound)
	}
	return b.menu(ctx, req, bucketText(bucket), [][]callback.Button{{backButton(reportSpec.MustNew())}})
}

func conflictText(conflict *classify.ConflictError) *message.Text {
	text := message.New().
		Bold("⚠️ Some expenses match more than one category").Line().
		Plain("Edit the filters below so each expense matches at most one category, then run /report again.").Line()
	for _, c := range conflict.Conflicts {
		text.Line().Code(fmt.Sprintf("%s %s %.2f",
			c.Entry.Timestamp.Format(command.DateLayout), c.Entry.Description, c.Entry.Amount)).Line()
		for _, claim := range c.Claims {
			text.Plain("  • ").Bold(claim.Category).Plain(": ").Code(claim.Pattern).Line()
		}
	}
	return text
}

func bucketText(bucket classify.Bucket) *message.Text {
	var rows strings.Builder
	width := utf8.RuneCountInString("Subtotal")
	for _, e := range bucket.Entries {
		width = max(width, utf8.RuneCountInString(e.Description)+len(command.DateLayout)+1)
	}
	for _, e := range bucket.Entries {
		label := e.Timestamp.Format(command.DateLayout) + " " + e.Description
		fmt.Fprintf(&rows, "%s %10.2f\n", pad(label, width), e.Amount)
	}
	fmt.Fprintf(&rows, "%s %10.2f", pad("Subtotal", width), bucket.Total)

	return message.New().Bold("📁 " + bucket.Category).Line().Pre(rows.String())
}

func totalsText(report *classify.Report) *message.Text {
	width := utf8.RuneCountInString("Total")
	for _, bucket := range report.Buckets {
		width = max(width, utf8.RuneCountInString(bucket.Category))
	}

	var rows strings.Builder
	for _, bucket := range report.Buckets {
		fmt.Fprintf(&rows, "%s %10.2f\n", pad(bucket.Category, width), bucket.Total)
	}
	fmt.Fprintf(&rows, "%s %10.2f", pad("Total", width), report.Total)

	return message.New().Bold("📋 Report").Line().Pre(rows.String())
}

// pad left-aligns s to width characters.
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
