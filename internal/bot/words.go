package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/classify"
	"github.com/Veraticus/ledgerbot/internal/command"
	"github.com/Veraticus/ledgerbot/internal/message"
)

// Word picker layout.
const (
	wordsPerPage = 20
	wordsPerRow  = 4
)

func (b *Bot) registerWordFilters() {
	b.router.Handle(addWordsFilterSpec).
		Stage(0, b.selectCategory(addWordsFilterSpec, "🔤 Select category to build a filter for")).
		Stages(1, 3, b.addWordsFilter)

	b.router.Handle(editWordsFilterSpec).
		Stage(0, b.selectCategory(editWordsFilterSpec, "🔤 Select category to edit a filter of")).
		Stage(1, b.selectFilter(editWordsFilterSpec, "🔤 Select filter to edit in")).
		Stages(2, 4, b.editWordsFilter)
}

// wordPicker is one page of a paginated word selection.
type wordPicker struct {
	title      *message.Text
	turn       func(page int64, words []string) command.Command
	apply      func(pattern string) command.Command
	back       command.Command
	vocabulary []string
	selected   []string
	page       int64
}

func (b *Bot) addWordsFilter(ctx context.Context, req *Request, args []command.Value) error {
	category, err := b.store.Category(ctx, req.ChatID, args[0].Text())
	if err != nil {
		return err
	}
	page, selected := pickerState(args, 1)

	vocabulary, err := b.vocabulary(ctx, req)
	if err != nil {
		return err
	}

	name := args[0]
	return b.showPicker(ctx, req, wordPicker{
		title:      message.New().Plain("🔤 New filter for ").Code(category.Name),
		vocabulary: classify.MergeWords(vocabulary, selected),
		selected:   selected,
		page:       page,
		turn: func(page int64, words []string) command.Command {
			return withWords(addWordsFilterSpec, words, name, command.Int(page))
		},
		apply: func(pattern string) command.Command {
			return addFilterSpec.MustNew(name, command.Text(pattern))
		},
		back: addFilterSpec.MustNew(name),
	})
}

func (b *Bot) editWordsFilter(ctx context.Context, req *Request, args []command.Value) error {
	category, pattern, err := b.pattern(ctx, req, args)
	if err != nil {
		return err
	}
	current, readable := classify.ReadPattern(pattern)
	current = pickable(current)

	page, selected := pickerState(args, 2)
	if len(args) == 2 {
		selected = current
	}

	vocabulary, err := b.vocabulary(ctx, req)
	if err != nil {
		return err
	}

	title := message.New().
		Plain(fmt.Sprintf("🔤 Editing filter #%d of ", args[1].Int())).Code(category.Name).Line().
		Plain("Current pattern: ").Code(pattern)
	if !readable {
		title.Line().Italic("The current pattern is not a word list; applying replaces it.")
	}

	name, position := args[0], args[1]
	return b.showPicker(ctx, req, wordPicker{
		title:      title,
		vocabulary: classify.MergeWords(vocabulary, current, selected),
		selected:   selected,
		page:       page,
		turn: func(page int64, words []string) command.Command {
			return withWords(editWordsFilterSpec, words, name, position, command.Int(page))
		},
		apply: func(pattern string) command.Command {
			return editFilterSpec.MustNew(name, position, command.Text(pattern))
		},
		back: editFilterSpec.MustNew(name, position),
	})
}

// pickerState reads the page and selected words that follow the slot at pageSlot.
func pickerState(args []command.Value, pageSlot int) (int64, []string) {
	var page int64
	var selected []string
	if len(args) > pageSlot {
		page = args[pageSlot].Int()
	}
	if len(args) > pageSlot+1 {
		selected = pickable(args[pageSlot+1].List())
	}
	return page, selected
}

// vocabulary returns the words of the chat's expenses no category claims.
func (b *Bot) vocabulary(ctx context.Context, req *Request) ([]string, error) {
	categories, err := b.store.Categories(ctx, req.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	entries, err := b.store.Entries(ctx, req.ChatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}
	return pickable(classify.NewMatcher(categories).SuggestWords(entries)), nil
}

// pickable keeps the words that can travel in a list slot.
func pickable(words []string) []string {
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" && !strings.ContainsAny(w, " \t\r\n"+command.ListDelimiter) {
			kept = append(kept, w)
		}
	}
	return kept
}

// withWords builds spec from args, appending words when there are any.
func withWords(spec *command.Spec, words []string, args ...command.Value) command.Command {
	if len(words) > 0 {
		args = append(args, command.List(words...))
	}
	return spec.MustNew(args...)
}

func (b *Bot) showPicker(ctx context.Context, req *Request, p wordPicker) error {
	if len(p.vocabulary) == 0 {
		return b.menu(ctx, req,
			message.New().Append(p.title).Line().Line().Plain("📭 No uncategorized words to pick from."),
			[][]callback.Button{{backButton(p.back)}})
	}

	pages := int64((len(p.vocabulary) + wordsPerPage - 1) / wordsPerPage)
	page := min(max(p.page, 0), pages-1)
	start := page * wordsPerPage
	end := min(start+wordsPerPage, int64(len(p.vocabulary)))

	var rows [][]callback.Button
	var row []callback.Button
	for _, word := range p.vocabulary[start:end] {
		label := word
		if slices.Contains(p.selected, word) {
			label = "✓ " + word
		}
		row = append(row, commandButton(label, p.turn(page, toggle(p.selected, word))))
		if len(row) == wordsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	var nav []callback.Button
	if page > 0 {
		nav = append(nav, commandButton("◀", p.turn(page-1, p.selected)))
	}
	if page < pages-1 {
		nav = append(nav, commandButton("▶", p.turn(page+1, p.selected)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}

	actions := []callback.Button{backButton(p.back)}
	text := message.New().Append(p.title).Line().Line().
		Plain(fmt.Sprintf("Page %d/%d. ", page+1, pages))
	if pattern := classify.BuildPattern(p.selected); pattern != "" {
		text.Plain("New pattern: ").Code(pattern)
		actions = append([]callback.Button{commandButton("✅ Apply", p.apply(pattern))}, actions...)
	} else {
		text.Plain("Tap words to select them.")
	}
	rows = append(rows, actions)
	return b.menu(ctx, req, text, rows)
}

// toggle returns a sorted copy of selected with word added or removed.
func toggle(selected []string, word string) []string {
	out := make([]string, 0, len(selected)+1)
	found := false
	for _, w := range selected {
		if w == word {
			found = true
			continue
		}
		out = append(out, w)
	}
	if !found {
		out = append(out, word)
	}
	slices.Sort(out)
	return out
}
