package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/ledgerbot/internal/bot"
	"github.com/Veraticus/ledgerbot/internal/callback"
	"github.com/Veraticus/ledgerbot/internal/message"
	"github.com/charmbracelet/lipgloss"
)

// Handler receives input typed at the console.
type Handler interface {
	HandleMessage(ctx context.Context, in bot.Incoming)
	HandleCallback(ctx context.Context, ev bot.CallbackEvent)
}

// Console is a local chat: it prints what the bot sends and turns typed lines
// into messages. ":N" presses button N of the most recent inline keyboard.
type Console struct {
	out        io.Writer
	printer    func(string)
	photoDir   string
	buttons    []callback.Button
	buttonsMsg int
	nextID     int
	mu         sync.Mutex
}

// NewConsole creates a console writing to out. Charts are saved under
// photoDir when it is set.
func NewConsole(out io.Writer, photoDir string) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{out: out, photoDir: photoDir}
}

// Send prints a new message.
func (c *Console) Send(_ context.Context, _ int64, text *message.Text) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.printMessage(fmt.Sprintf("#%d", c.nextID), text)
	return c.nextID, nil
}

// Edit prints the new text of a message and drops its buttons.
func (c *Console) Edit(_ context.Context, _ int64, messageID int, text *message.Text) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if messageID <= 0 || messageID > c.nextID {
		return fmt.Errorf("message %d does not exist", messageID)
	}
	if c.buttonsMsg == messageID {
		c.buttons = nil
		c.buttonsMsg = 0
	}
	c.printMessage(fmt.Sprintf("#%d (edited)", messageID), text)
	return nil
}

// SetButtons prints a numbered keyboard and makes it the one ":N" presses.
func (c *Console) SetButtons(_ context.Context, _ int64, messageID int, rows [][]callback.Button) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buttons = c.buttons[:0]
	c.buttonsMsg = messageID

	var b strings.Builder
	for _, row := range rows {
		labels := make([]string, 0, len(row))
		for _, button := range row {
			c.buttons = append(c.buttons, button)
			label := fmt.Sprintf("[%d] %s", len(c.buttons), button.Label)
			if button.Kind == callback.Prefill {
				label += " " + PrefillIcon
			}
			labels = append(labels, ButtonStyle.Render(label))
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, labels...))
		b.WriteString("\n")
	}
	c.write(b.String())
	return nil
}

// SetMenu prints text followed by the persistent menu labels.
func (c *Console) SetMenu(_ context.Context, _ int64, text *message.Text, labels []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	c.printMessage(fmt.Sprintf("#%d", c.nextID), text)
	c.write(SubtleStyle.Render("Menu: "+strings.Join(labels, "  ")) + "\n")
	return nil
}

// SendPhoto saves the image under the photo directory, or notes its size.
func (c *Console) SendPhoto(_ context.Context, _ int64, png []byte, caption string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	if c.photoDir == "" {
		c.write(FormatInfo(fmt.Sprintf("%s [chart, %d bytes]", caption, len(png))) + "\n")
		return nil
	}

	path := filepath.Join(c.photoDir, fmt.Sprintf("chart-%d.png", c.nextID))
	if err := os.WriteFile(path, png, 0o600); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}
	c.write(FormatInfo(fmt.Sprintf("%s saved to %s", caption, path)) + "\n")
	return nil
}

// Run reads lines from in until EOF or ctx ends. Pressing a prefill button
// stages its text, and the next typed line is appended to it.
func (c *Console) Run(ctx context.Context, in io.Reader, chatID int64, h Handler) error {
	reader := NewLineReader(in)
	defer reader.Close()
	prefill := ""

	for {
		c.prompt(prefill)
		line, err := reader.ReadLine(ctx)
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.Is(err, ErrInputCancelled):
			return ctx.Err()
		case err != nil:
			return fmt.Errorf("failed to read input: %w", err)
		}

		if _, ok := pressIndex(line); !ok {
			line = prefill + strings.TrimLeft(line, " \t")
			prefill = ""
		}
		if staged := c.handleLine(ctx, line, chatID, h); staged != "" {
			prefill = staged
		}
	}
}

// handleLine presses a button for ":N" or sends line as a message. It returns
// the text of a pressed prefill button, which the caller stages as input.
func (c *Console) handleLine(ctx context.Context, line string, chatID int64, h Handler) string {
	if n, ok := pressIndex(line); ok {
		button, messageID, err := c.button(n)
		if err != nil {
			c.notify(FormatError(err.Error()))
			return ""
		}
		if button.Kind == callback.Prefill {
			return button.Payload
		}
		h.HandleCallback(ctx, bot.CallbackEvent{Data: button.Payload, ChatID: chatID, MessageID: messageID})
		return ""
	}

	if strings.TrimSpace(line) == "" {
		return ""
	}
	h.HandleMessage(ctx, bot.Incoming{Date: time.Now(), Text: line, ChatID: chatID})
	return ""
}

// Submit sends everything in r as a single message, so multi-line input takes
// the batch path.
func (c *Console) Submit(ctx context.Context, r io.Reader, chatID int64, h Handler) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil
	}
	h.HandleMessage(ctx, bot.Incoming{Date: time.Now(), Text: text, ChatID: chatID})
	return nil
}

func (c *Console) button(n int) (callback.Button, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n < 1 || n > len(c.buttons) {
		return callback.Button{}, 0, fmt.Errorf("no button %d", n)
	}
	return c.buttons[n-1], c.buttonsMsg, nil
}

func (c *Console) prompt(prefill string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.printer == nil {
		c.write(FormatPrompt(prefill))
	}
}

// attach routes output through printer instead of the writer, or back to the
// writer when printer is nil.
func (c *Console) attach(printer func(string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printer = printer
}

func (c *Console) notify(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.write(s + "\n")
}

// printMessage and write expect c.mu to be held.
func (c *Console) printMessage(header string, text *message.Text) {
	c.write("\n" + SubtleStyle.Render(header) + "\n" + BoxStyle.Render(renderText(text)) + "\n")
}

func (c *Console) write(s string) {
	if c.printer != nil {
		c.printer(strings.Trim(s, "\n"))
		return
	}
	if _, err := io.WriteString(c.out, s); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write to console: %v\n", err)
	}
}

func pressIndex(line string) (int, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(line), ":")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return 0, false
	}
	return n, true
}

func renderText(text *message.Text) string {
	var b strings.Builder
	for _, seg := range text.Segments() {
		switch seg.Style {
		case message.StyleBold:
			b.WriteString(BoldStyle.Render(seg.Text))
		case message.StyleItalic:
			b.WriteString(ItalicStyle.Render(seg.Text))
		case message.StyleCode:
			b.WriteString(CodeStyle.Render(seg.Text))
		case message.StylePre:
			b.WriteString(PreStyle.Render(seg.Text))
		default:
			b.WriteString(seg.Text)
		}
	}
	return b.String()
}
