package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// maxInputLen matches the Telegram message length limit.
const maxInputLen = 4096

// stagedMsg carries prefill button text back into the prompt.
type stagedMsg struct {
	text string
}

// promptModel is the interactive console: a single input line below the
// printed conversation. Lines run on tea.Cmd goroutines because the handler
// prints through Program.Println, which must not be called from Update.
type promptModel struct {
	ctx     context.Context
	console *Console
	handler Handler
	input   textinput.Model
	chatID  int64
}

func newPromptModel(ctx context.Context, c *Console, chatID int64, h Handler) promptModel {
	input := textinput.New()
	input.Prompt = PromptStyle.Render("→ ")
	input.Placeholder = "expense, /command or :N"
	input.CharLimit = maxInputLen
	input.Focus()

	return promptModel{ctx: ctx, console: c, handler: h, input: input, chatID: chatID}
}

func (m promptModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m promptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyCtrlD:
			return m, tea.Quit
		case tea.KeyEnter:
			line := m.input.Value()
			m.input.Reset()
			return m, m.submit(line)
		}

	case stagedMsg:
		m.input.SetValue(msg.text)
		m.input.CursorEnd()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m promptModel) View() string {
	return m.input.View() + "\n" + SubtleStyle.Render("enter sends, :N presses button N, ctrl+c quits")
}

func (m promptModel) submit(line string) tea.Cmd {
	ctx, console, handler, chatID := m.ctx, m.console, m.handler, m.chatID
	return func() tea.Msg {
		if staged := console.handleLine(ctx, line, chatID, handler); staged != "" {
			return stagedMsg{text: staged}
		}
		return nil
	}
}

// RunInteractive runs the console as a terminal UI until the user quits or
// ctx ends. Bot output is printed above the input line.
func (c *Console) RunInteractive(ctx context.Context, chatID int64, h Handler, opts ...tea.ProgramOption) error {
	program := tea.NewProgram(
		newPromptModel(ctx, c, chatID, h),
		append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)...,
	)

	c.attach(func(s string) { program.Println(s) })
	defer c.attach(nil)

	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("failed to run console: %w", err)
	}
	return nil
}
