package command

import "strings"

// Escape makes s safe to embed as a single token: each backslash is doubled and
// each space becomes backslash-space.
func Escape(s string) string {
	if !strings.ContainsAny(s, `\ `) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			b.WriteString(`\\`)
		case ' ':
			b.WriteString(`\ `)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Unescape reverses Escape. A backslash that starts no escape sequence is kept.
func Unescape(s string) string {
	tokens := split(s, false)
	if len(tokens) == 0 {
		return ""
	}
	return tokens[0]
}

// Split breaks the first line of args into tokens on unescaped spaces and
// unescapes each token. Runs of separators produce no empty tokens.
func Split(args string) []string {
	if i := strings.IndexAny(args, "\r\n"); i >= 0 {
		args = args[:i]
	}
	return split(args, true)
}

func split(s string, separate bool) []string {
	var (
		tokens  []string
		current strings.Builder
		pending bool
	)
	flush := func() {
		if current.Len() > 0 || (!separate && pending) {
			tokens = append(tokens, current.String())
		}
		current.Reset()
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		pending = true
		switch {
		case c == '\\' && i+1 < len(s) && (s[i+1] == '\\' || s[i+1] == ' '):
			current.WriteByte(s[i+1])
			i++
		case c == ' ' && separate:
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return tokens
}
