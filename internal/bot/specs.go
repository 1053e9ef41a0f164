package bot

import (
	"github.com/Veraticus/ledgerbot/internal/command"
)

var (
	slotCategory = command.Slot{Placeholder: "<category>", Kind: command.KindText}
	slotName     = command.Slot{Placeholder: "<name>", Kind: command.KindText}
	slotConfirm  = command.Slot{Placeholder: "<confirm>", Kind: command.KindBool}
	slotPosition = command.Slot{Placeholder: "<position>", Kind: command.KindInt}
	slotPage     = command.Slot{Placeholder: "<page>", Kind: command.KindInt}
	slotWords    = command.Slot{Placeholder: "<words>", Kind: command.KindList}
)

// Command families.
var (
	startSpec = command.NewSpec("start", "show the menu and this help")
	helpSpec  = command.NewSpec("help", "list every command")

	addExpenseSpec = command.NewSpec("add_expense", "record an expense",
		command.Slot{Placeholder: "<date>", Kind: command.KindDate},
		command.Slot{Placeholder: "<description>", Kind: command.KindText},
		command.Slot{Placeholder: "<amount>", Kind: command.KindDecimal},
	)
	listSpec   = command.NewSpec("list", "list expenses as commands you can paste back")
	reportSpec = command.NewSpec("report", "show expenses grouped by category", slotCategory)
	clearSpec  = command.NewSpec("clear", "remove every expense", slotConfirm)

	categoriesSpec     = command.NewSpec("categories", "list categories and their filters as commands")
	addCategorySpec    = command.NewSpec("add_category", "create a category", slotName)
	removeCategorySpec = command.NewSpec("remove_category", "remove a category", slotName, slotConfirm)
	renameCategorySpec = command.NewSpec("rename_category", "rename a category",
		command.Slot{Placeholder: "<old_name>", Kind: command.KindText},
		command.Slot{Placeholder: "<new_name>", Kind: command.KindText},
	)
	clearCategoriesSpec = command.NewSpec("clear_categories", "remove every category", slotConfirm)

	addFilterSpec = command.NewSpec("add_filter", "add a regex filter to a category",
		slotCategory,
		command.Slot{Placeholder: "<pattern>", Kind: command.KindText},
	)
	removeFilterSpec = command.NewSpec("remove_filter", "remove a filter from a category",
		slotCategory, slotPosition, slotConfirm)
	editFilterSpec = command.NewSpec("edit_filter", "replace a filter of a category",
		slotCategory, slotPosition,
		command.Slot{Placeholder: "<new_pattern>", Kind: command.KindText},
	)
	addWordsFilterSpec = command.NewSpec("add_words_filter", "build a filter from uncategorized words",
		slotCategory, slotPage, slotWords)
	editWordsFilterSpec = command.NewSpec("edit_words_filter", "edit a word filter by picking words",
		slotCategory, slotPosition, slotPage, slotWords)
)

// entryAmount reports the amount of a complete add_expense command.
func entryAmount(cmd command.Command) (float64, bool) {
	if cmd.Name() != addExpenseSpec.Name || !cmd.Complete() {
		return 0, false
	}
	v, _ := cmd.Arg(2)
	return v.Decimal(), true
}
