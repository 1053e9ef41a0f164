package bot

import (
	"context"
	"fmt"

	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/command"
	"github.com/Veraticus/ledgerbot/internal/message"
	"github.com/Veraticus/ledgerbot/internal/model"
)

func (b *Bot) registerCategories() {
	b.router.Handle(categoriesSpec).Stage(0, b.categories)

	b.router.Handle(addCategorySpec).
		Stage(0, b.addCategoryPrompt).
		Stage(1, b.addCategory)

	b.router.Handle(removeCategorySpec).
		Stage(0, b.selectCategory(removeCategorySpec, "🗑️ Select category to remove")).
		Stage(1, b.confirmMenu(removeCategorySpec, "🗑️ Remove", func(args []command.Value) *message.Text {
			return message.New().Plain("🗑️ Remove category ").Code(args[0].Text()).Plain("?")
		})).
		Stage(2, b.removeCategory)

	b.router.Handle(renameCategorySpec).
		Stage(0, b.selectCategory(renameCategorySpec, "✏️ Select category to rename")).
		Stage(1, b.renameCategoryPrompt).
		Stage(2, b.renameCategory)

	b.router.Handle(clearCategoriesSpec).
		Stage(0, b.confirmMenu(clearCategoriesSpec, "🗑️ Clear", func([]command.Value) *message.Text {
			return message.New().Plain("🗑️ Remove every category and filter?")
		})).
		Stage(1, b.clearCategories)
}

func (b *Bot) categories(ctx context.Context, req *Request, _ []command.Value) error {
	categories, err := b.store.Categories(ctx, req.ChatID)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	if len(categories) == 0 {
		b.reply(ctx, req.ChatID, noCategoriesText())
		return nil
	}

	text := message.New().Bold("🗂 Categories").Line()
	for _, c := range categories {
		text.Line().Code(addCategorySpec.MustNew(command.Text(c.Name)).String()).Line()
		for _, p := range c.Patterns {
			text.Code(addFilterSpec.MustNew(command.Text(c.Name), command.Text(p)).String()).Line()
		}
	}
	b.reply(ctx, req.ChatID, text)
	return nil
}

func noCategoriesText() *message.Text {
	return message.New().Plain("📂 No categories defined yet. Use /add_category to create one.")
}

// selectCategory offers one button per category, each issuing spec with the
// supplied args followed by the category name.
func (b *Bot) selectCategory(spec *command.Spec, title string) func(context.Context, *Request, []command.Value) error {
	return func(ctx context.Context, req *Request, args []command.Value) error {
		categories, err := b.store.Categories(ctx, req.ChatID)
		if err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
		if len(categories) == 0 {
			b.reply(ctx, req.ChatID, noCategoriesText())
			return nil
		}

		rows := make([][]callback.Button, 0, len(categories))
		for _, c := range categories {
			values := append(append([]command.Value(nil), args...), command.Text(c.Name))
			rows = append(rows, []callback.Button{commandButton("📁 "+c.Name, spec.MustNew(values...))})
		}
		return b.menu(ctx, req, message.New().Plain(title), rows)
	}
}

func (b *Bot) addCategoryPrompt(ctx context.Context, req *Request, _ []command.Value) error {
	return b.menu(ctx, req,
		message.New().Plain("➕ Type the new category name after ").Code(addCategorySpec.MustNew().Minimal()),
		[][]callback.Button{{prefillButton("➕ Add category", addCategorySpec.MustNew())}})
}

func (b *Bot) addCategory(ctx context.Context, req *Request, args []command.Value) error {
	name := args[0].Text()
	if err := b.store.AddCategory(ctx, req.ChatID, name); err != nil {
		return err
	}
	if req.Silent {
		return nil
	}
	nameValue := command.Text(name)
	return b.menu(ctx, req,
		message.New().Plain("✅ Category ").Code(name).Plain(" created."),
		[][]callback.Button{{
			commandButton("🔤 Pick words", addWordsFilterSpec.MustNew(nameValue)),
			prefillButton("✏️ Add filter", addFilterSpec.MustNew(nameValue)),
		}})
}

func (b *Bot) removeCategory(ctx context.Context, req *Request, args []command.Value) error {
	name := args[0].Text()
	if !args[1].Bool() {
		b.confirm(ctx, req, message.New().Plain("❌ Removal of category ").Code(name).Plain(" cancelled."))
		return nil
	}
	if err := b.store.RemoveCategory(ctx, req.ChatID, name); err != nil {
		return err
	}
	b.confirm(ctx, req, message.New().Plain("✅ Category ").Code(name).Plain(" removed."))
	return nil
}

func (b *Bot) renameCategoryPrompt(ctx context.Context, req *Request, args []command.Value) error {
	oldName := args[0].Text()
	if _, err := b.store.Category(ctx, req.ChatID, oldName); err != nil {
		return err
	}
	return b.menu(ctx, req,
		message.New().Plain("✏️ Renaming category ").Code(oldName),
		[][]callback.Button{
			{prefillButton("✏️ Rename", renameCategorySpec.MustNew(args...))},
			{backButton(renameCategorySpec.MustNew())},
		})
}

func (b *Bot) renameCategory(ctx context.Context, req *Request, args []command.Value) error {
	oldName, newName := args[0].Text(), args[1].Text()
	if err := b.store.RenameCategory(ctx, req.ChatID, oldName, newName); err != nil {
		return err
	}
	b.confirm(ctx, req, message.New().
		Plain("✅ Category ").Code(oldName).Plain(" renamed to ").Code(newName).Plain("."))
	return nil
}

func (b *Bot) clearCategories(ctx context.Context, req *Request, args []command.Value) error {
	if !args[0].Bool() {
		b.confirm(ctx, req, message.New().Plain("❌ Clearing categories cancelled."))
		return nil
	}
	if err := b.store.ReplaceCategories(ctx, req.ChatID, []model.Category{}); err != nil {
		return fmt.Errorf("failed to clear categories: %w", err)
	}
	b.confirm(ctx, req, message.New().Plain("🗑️ All categories cleared!"))
	return nil
}
