package bot

import (
	"context"
	"fmt"

	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/command"
	"github.com/Veraticus/ledgerbot/internal/common"
	"github.com/Veraticus/ledgerbot/internal/message"
	"github.com/Veraticus/ledgerbot/internal/model"
)

func (b *Bot) registerFilters() {
	b.router.Handle(addFilterSpec).
		Stage(0, b.selectCategory(addFilterSpec, "➕ Select category for the new filter")).
		Stage(1, b.addFilterPrompt).
		Stage(2, b.addFilter)

	b.router.Handle(removeFilterSpec).
		Stage(0, b.selectCategory(removeFilterSpec, "🗑️ Select category to remove a filter from")).
		Stage(1, b.selectFilter(removeFilterSpec, "🗑️ Select filter to remove from")).
		Stage(2, b.removeFilterConfirm).
		Stage(3, b.removeFilter)

	b.router.Handle(editFilterSpec).
		Stage(0, b.selectCategory(editFilterSpec, "✏️ Select category to edit a filter of")).
		Stage(1, b.selectFilter(editFilterSpec, "✏️ Select filter to edit in")).
		Stage(2, b.editFilterPrompt).
		Stage(3, b.editFilter)
}

func (b *Bot) addFilterPrompt(ctx context.Context, req *Request, args []command.Value) error {
	category, err := b.store.Category(ctx, req.ChatID, args[0].Text())
	if err != nil {
		return err
	}
	text := message.New().Plain("➕ Adding a filter to ").Code(category.Name).Line().
		Plain("Type a regular expression, or pick words from uncategorized expenses.")
	return b.menu(ctx, req, text, [][]callback.Button{
		{prefillButton("✏️ Type pattern", addFilterSpec.MustNew(args...))},
		{commandButton("🔤 Pick words", addWordsFilterSpec.MustNew(args...))},
		{backButton(addFilterSpec.MustNew())},
	})
}

func (b *Bot) addFilter(ctx context.Context, req *Request, args []command.Value) error {
	name, pattern := args[0].Text(), args[1].Text()
	if err := b.store.AddPattern(ctx, req.ChatID, name, pattern); err != nil {
		return err
	}
	b.confirm(ctx, req, message.New().
		Plain("✅ Filter ").Code(pattern).Plain(" added to category ").Code(name).Plain("."))
	return nil
}

// selectFilter offers one button per pattern of the category in args[0], each
// issuing spec with the category and the pattern position.
func (b *Bot) selectFilter(spec *command.Spec, title string) func(context.Context, *Request, []command.Value) error {
	return func(ctx context.Context, req *Request, args []command.Value) error {
		category, err := b.store.Category(ctx, req.ChatID, args[0].Text())
		if err != nil {
			return err
		}
		if len(category.Patterns) == 0 {
			return b.menu(ctx, req,
				message.New().Plain("📂 Category ").Code(category.Name).Plain(" has no filters."),
				[][]callback.Button{
					{prefillButton("➕ Add filter", addFilterSpec.MustNew(args[0]))},
					{backButton(spec.MustNew())},
				})
		}

		rows := make([][]callback.Button, 0, len(category.Patterns)+1)
		for i, p := range category.Patterns {
			cmd := spec.MustNew(args[0], command.Int(int64(i)))
			rows = append(rows, []callback.Button{commandButton(fmt.Sprintf("#%d %s", i, p), cmd)})
		}
		rows = append(rows, []callback.Button{backButton(spec.MustNew())})
		return b.menu(ctx, req, message.New().Plain(title+" ").Code(category.Name), rows)
	}
}

// pattern returns the pattern at the position held in args[1].
func (b *Bot) pattern(ctx context.Context, req *Request, args []command.Value) (model.Category, string, error) {
	category, err := b.store.Category(ctx, req.ChatID, args[0].Text())
	if err != nil {
		return model.Category{}, "", err
	}
	position := args[1].Int()
	if position < 0 || position >= int64(len(category.Patterns)) {
		return model.Category{}, "", common.NewUserError(
			fmt.Sprintf("Category %q has no filter #%d", category.Name, position), common.ErrNotFound)
	}
	return category, category.Patterns[position], nil
}

func (b *Bot) removeFilterConfirm(ctx context.Context, req *Request, args []command.Value) error {
	category, pattern, err := b.pattern(ctx, req, args)
	if err != nil {
		return err
	}
	confirm := b.confirmMenu(removeFilterSpec, "🗑️ Remove", func([]command.Value) *message.Text {
		return message.New().
			Plain(fmt.Sprintf("🗑️ Remove filter #%d ", args[1].Int())).Code(pattern).
			Plain(" from category ").Code(category.Name).Plain("?")
	})
	return confirm(ctx, req, args)
}

func (b *Bot) removeFilter(ctx context.Context, req *Request, args []command.Value) error {
	name, position := args[0].Text(), args[1].Int()
	if !args[2].Bool() {
		b.confirm(ctx, req, message.New().Plain("❌ Filter removal from category ").Code(name).Plain(" cancelled."))
		return nil
	}
	pattern, err := b.store.RemovePattern(ctx, req.ChatID, name, int(position))
	if err != nil {
		return err
	}
	b.confirm(ctx, req, message.New().
		Plain(fmt.Sprintf("✅ Filter #%d ", position)).Code(pattern).
		Plain(" removed from category ").Code(name).Plain("."))
	return nil
}

func (b *Bot) editFilterPrompt(ctx context.Context, req *Request, args []command.Value) error {
	category, pattern, err := b.pattern(ctx, req, args)
	if err != nil {
		return err
	}
	text := message.New().
		Bold(fmt.Sprintf("✏️ Editing filter #%d in category ", args[1].Int())).Code(category.Name).Line().Line().
		Plain("Current pattern: ").Code(pattern)
	return b.menu(ctx, req, text, [][]callback.Button{
		{prefillButton("✏️ Edit pattern", editFilterSpec.MustNew(args[0], args[1], command.Text(pattern)))},
		{commandButton("🔤 Pick words", editWordsFilterSpec.MustNew(args[0], args[1]))},
		{backButton(editFilterSpec.MustNew(args[0]))},
	})
}

func (b *Bot) editFilter(ctx context.Context, req *Request, args []command.Value) error {
	category, old, err := b.pattern(ctx, req, args)
	if err != nil {
		return err
	}
	pattern := args[2].Text()
	if err := b.store.ReplacePattern(ctx, req.ChatID, category.Name, int(args[1].Int()), pattern); err != nil {
		return err
	}
	b.confirm(ctx, req, message.New().
		Plain("✅ Filter updated in category ").Code(category.Name).Plain(".").Line().
		Italic("Old: ").Code(old).Line().
		Italic("New: ").Code(pattern))
	return nil
}
