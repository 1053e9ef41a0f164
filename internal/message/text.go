// Package message builds outbound chat messages as styled segments so that each
// platform adapter can render them in its own markup.
package message

import (
	"fmt"
	"html"
	"strings"
	"unicode/utf8"
)

// Style is the presentation of one segment.
type Style int

const (
	// StylePlain is ordinary text.
	StylePlain Style = iota
	// StyleBold is emphasized text.
	StyleBold
	// StyleItalic is slanted text.
	StyleItalic
	// StyleCode is inline monospace text.
	StyleCode
	// StylePre is a monospace block.
	StylePre
)

// Ellipsis marks a truncated message.
const Ellipsis = "…"

// Segment is a run of text sharing one style.
type Segment struct {
	Text  string
	Style Style
}

// Text is an outbound message under construction. The zero value is empty and ready to use.
type Text struct {
	segments []Segment
}

// New returns an empty message.
func New() *Text { return &Text{} }

// Plainf starts a message with formatted plain text.
func Plainf(format string, args ...any) *Text {
	return New().Plainf(format, args...)
}

func (t *Text) add(style Style, s string) *Text {
	if s == "" {
		return t
	}
	if n := len(t.segments); n > 0 && t.segments[n-1].Style == style {
		t.segments[n-1].Text += s
		return t
	}
	t.segments = append(t.segments, Segment{Text: s, Style: style})
	return t
}

// Plain appends plain text.
func (t *Text) Plain(s string) *Text { return t.add(StylePlain, s) }

// Plainf appends formatted plain text.
func (t *Text) Plainf(format string, args ...any) *Text {
	return t.add(StylePlain, fmt.Sprintf(format, args...))
}

// Bold appends bold text.
func (t *Text) Bold(s string) *Text { return t.add(StyleBold, s) }

// Italic appends italic text.
func (t *Text) Italic(s string) *Text { return t.add(StyleItalic, s) }

// Code appends inline monospace text.
func (t *Text) Code(s string) *Text { return t.add(StyleCode, s) }

// Pre appends a monospace block.
func (t *Text) Pre(s string) *Text { return t.add(StylePre, s) }

// Line appends a line break.
func (t *Text) Line() *Text { return t.add(StylePlain, "\n") }

// Append appends every segment of o.
func (t *Text) Append(o *Text) *Text {
	if o == nil {
		return t
	}
	for _, s := range o.segments {
		t.add(s.Style, s.Text)
	}
	return t
}

// Segments returns a copy of the message segments.
func (t *Text) Segments() []Segment {
	return append([]Segment(nil), t.segments...)
}

// Len is the number of characters in the unstyled message.
func (t *Text) Len() int {
	n := 0
	for _, s := range t.segments {
		n += utf8.RuneCountInString(s.Text)
	}
	return n
}

// String returns the unstyled message.
func (t *Text) String() string {
	var b strings.Builder
	for _, s := range t.segments {
		b.WriteString(s.Text)
	}
	return b.String()
}

// Truncate returns a copy holding at most limit characters, the last of which is
// Ellipsis when anything was cut.
func (t *Text) Truncate(limit int) *Text {
	if limit <= 0 || t.Len() <= limit {
		return New().Append(t)
	}
	budget := limit - utf8.RuneCountInString(Ellipsis)
	out := New()
	for _, s := range t.segments {
		if budget <= 0 {
			break
		}
		runes := []rune(s.Text)
		if len(runes) > budget {
			runes = runes[:budget]
		}
		out.add(s.Style, string(runes))
		budget -= len(runes)
	}
	return out.Plain(Ellipsis)
}

// HTML renders the message in the HTML subset accepted by Telegram.
func (t *Text) HTML() string {
	var b strings.Builder
	for _, s := range t.segments {
		escaped := html.EscapeString(s.Text)
		switch s.Style {
		case StyleBold:
			b.WriteString("<b>" + escaped + "</b>")
		case StyleItalic:
			b.WriteString("<i>" + escaped + "</i>")
		case StyleCode:
			b.WriteString("<code>" + escaped + "</code>")
		case StylePre:
			b.WriteString("<pre>" + escaped + "</pre>")
		default:
			b.WriteString(escaped)
		}
	}
	return b.String()
}
