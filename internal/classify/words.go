package classify

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Veraticus/ledgerbot/internal/model"
)

const (
	wordsPrefix = `(?i)\b(`
	wordsSuffix = `)\b`
	minWordLen  = 2
)

// ExtractWords tokenizes descriptions on whitespace, lowercases each token, trims
// non-alphanumeric runes from both ends and keeps tokens of at least two runes.
// The result is distinct and sorted.
func ExtractWords(entries []model.Entry) []string {
	seen := make(map[string]struct{})
	for _, e := range entries {
		for _, field := range strings.Fields(e.Description) {
			word := strings.TrimFunc(strings.ToLower(field), func(r rune) bool {
				return !unicode.IsLetter(r) && !unicode.IsDigit(r)
			})
			if utf8.RuneCountInString(word) >= minWordLen {
				seen[word] = struct{}{}
			}
		}
	}

	words := make([]string, 0, len(seen))
	for w := range seen {
		words = append(words, w)
	}
	sort.Strings(words)
	return words
}

// BuildPattern synthesizes a case-insensitive, word-bounded alternation of words.
// It returns "" for no words.
func BuildPattern(words []string) string {
	if len(words) == 0 {
		return ""
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return wordsPrefix + strings.Join(quoted, "|") + wordsSuffix
}

// ReadPattern recovers the words of a pattern produced by BuildPattern. It reports
// false for any other pattern.
func ReadPattern(pattern string) ([]string, bool) {
	if !strings.HasPrefix(pattern, wordsPrefix) || !strings.HasSuffix(pattern, wordsSuffix) {
		return nil, false
	}
	body := pattern[len(wordsPrefix) : len(pattern)-len(wordsSuffix)]
	if body == "" {
		return nil, false
	}

	var (
		words   []string
		current strings.Builder
	)
	for i := 0; i < len(body); i++ {
		switch c := body[i]; {
		case c == '\\' && i+1 < len(body):
			current.WriteByte(body[i+1])
			i++
		case c == '|':
			words = append(words, current.String())
			current.Reset()
		case strings.IndexByte(`()[]{}*+?^$.`, c) >= 0:
			// An unescaped metacharacter means this is a hand-written regex.
			return nil, false
		default:
			current.WriteByte(c)
		}
	}
	words = append(words, current.String())

	for _, w := range words {
		if w == "" {
			return nil, false
		}
	}
	return words, true
}

// MergeWords returns the sorted union of the given word lists.
func MergeWords(lists ...[]string) []string {
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, w := range list {
			seen[w] = struct{}{}
		}
	}
	merged := make([]string, 0, len(seen))
	for w := range seen {
		merged = append(merged, w)
	}
	sort.Strings(merged)
	return merged
}

// ValidatePattern reports whether pattern compiles as a case-insensitive regex.
func ValidatePattern(pattern string) error {
	if strings.TrimSpace(pattern) == "" {
		return fmt.Errorf("empty pattern")
	}
	if strings.ContainsAny(pattern, "\r\n") {
		return fmt.Errorf("pattern %q spans lines", pattern)
	}
	if _, err := regexp.Compile("(?i)" + pattern); err != nil {
		return fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return nil
}
