// Package model holds the chat-scoped ledger types shared by storage, classification and the bot.
package model

// OtherCategory is the implicit bucket for entries no category claims.
const OtherCategory = "Other"

// Category is a named bucket with an ordered list of regex patterns.
type Category struct {
	Name     string   `yaml:"name"`
	Patterns []string `yaml:"patterns"`
}

// HasPattern reports whether the category already holds pattern.
func (c Category) HasPattern(pattern string) bool {
	for _, p := range c.Patterns {
		if p == pattern {
			return true
		}
	}
	return false
}

// Clone returns a deep copy.
func (c Category) Clone() Category {
	return Category{Name: c.Name, Patterns: append([]string(nil), c.Patterns...)}
}
