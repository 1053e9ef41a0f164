package bot

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/ledgerbot/internal/batch"
	"github.com/Veraticus/ledgerbot/internal/command"
)

// LineError is a line of inbound text that could not be turned into a command.
type LineError struct {
	Err  error
	Line string
}

func (e *LineError) Error() string {
	return fmt.Sprintf("failed to parse command %q: %v", e.Line, e.Err)
}

func (e *LineError) Unwrap() error { return e.Err }

// Parser turns inbound text into commands, one per non-empty line.
type Parser struct {
	registry *command.Registry
	botName  string
}

// NewParser creates a parser for the commands in registry. botName is the bot's
// username without "@"; lines prefixed with it are accepted.
func NewParser(registry *command.Registry, botName string) *Parser {
	return &Parser{registry: registry, botName: strings.TrimPrefix(botName, "@")}
}

// Parse parses every non-empty line of text, in order. Lines without a date use
// the calendar day of now.
func (p *Parser) Parse(text string, now time.Time) []batch.Item {
	var items []batch.Item
	for _, line := range strings.Split(text, "\n") {
		line = trimLine(line)
		if line == "" {
			continue
		}
		cmd, err := p.ParseLine(line, now)
		if err != nil {
			items = append(items, batch.Item{Err: &LineError{Line: line, Err: err}})
			continue
		}
		items = append(items, batch.Item{Command: cmd})
	}
	return items
}

// ParseLine parses a single trimmed line. Lines starting with "/" are commands;
// anything else is an expense "[<yyyy-mm-dd>] <description> <amount>".
func (p *Parser) ParseLine(line string, now time.Time) (command.Command, error) {
	line = p.stripPrefixes(line)
	if strings.HasPrefix(line, "/") {
		return p.registry.Parse(line, p.botName)
	}
	return parseExpense(line, now)
}

// stripPrefixes removes a leading emoji word (menu keyboard labels) and a leading
// bot mention (inline prefill buttons).
func (p *Parser) stripPrefixes(line string) string {
	if first, rest, ok := strings.Cut(line, " "); ok && isEmojiWord(first) {
		line = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
	if p.botName == "" {
		return line
	}
	first, rest, _ := strings.Cut(line, " ")
	if strings.EqualFold(strings.TrimPrefix(first, "@"), p.botName) {
		line = strings.TrimLeftFunc(rest, unicode.IsSpace)
	}
	return line
}

// trimLine strips surrounding whitespace but keeps a trailing escaped space,
// which is how a text argument ending in a space is written.
func trimLine(line string) string {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	for line != "" {
		r, size := utf8.DecodeLastRuneInString(line)
		if !unicode.IsSpace(r) {
			break
		}
		if r == ' ' && escaped(line[:len(line)-size]) {
			break
		}
		line = line[:len(line)-size]
	}
	return line
}

// escaped reports whether the byte following s is escaped, that is whether s
// ends in an odd run of backslashes.
func escaped(s string) bool {
	n := 0
	for i := len(s) - 1; i >= 0 && s[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

func isEmojiWord(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || (r < unicode.MaxASCII && unicode.IsPunct(r)) {
			return false
		}
	}
	return true
}

func parseExpense(line string, now time.Time) (command.Command, error) {
	fields := strings.Fields(line)
	date := now
	if len(fields) > 0 {
		if d, err := time.Parse(command.DateLayout, fields[0]); err == nil {
			date = d
			fields = fields[1:]
		}
	}

	values := []command.Value{command.Date(date)}
	if len(fields) == 0 {
		return addExpenseSpec.New(values...)
	}

	last := len(fields) - 1
	amount, ok := parseAmount(fields[last])
	if !ok || last == 0 {
		return addExpenseSpec.New(append(values, command.Text(strings.Join(fields, " ")))...)
	}
	return addExpenseSpec.New(append(values,
		command.Text(strings.Join(fields[:last], " ")),
		command.Decimal(amount))...)
}

func parseAmount(token string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.Replace(token, ",", ".", 1), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
