// Package command defines the uniform representation of every bot action: a named
// command with up to nine ordered, optionally populated, typed slots that
// serializes to and from a single line of text.
package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Kind is the declared scalar type of a slot.
type Kind int

const (
	// KindText is a free-form string.
	KindText Kind = iota
	// KindInt is a signed integer.
	KindInt
	// KindDecimal is a finite float64.
	KindDecimal
	// KindBool is true or false.
	KindBool
	// KindDate is a calendar date (YYYY-MM-DD, UTC midnight).
	KindDate
	// KindList is a list of words joined by ListDelimiter.
	KindList
)

// DateLayout is the textual form of a KindDate slot.
const DateLayout = "2006-01-02"

// ListDelimiter separates items of a KindList slot.
const ListDelimiter = "|"

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInt:
		return "integer"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "boolean"
	case KindDate:
		return "date"
	case KindList:
		return "list"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is one populated slot. The zero Value is not valid; use the constructors.
type Value struct {
	date    time.Time
	text    string
	list    []string
	integer int64
	decimal float64
	kind    Kind
	boolean bool
}

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Int returns an integer value.
func Int(n int64) Value { return Value{kind: KindInt, integer: n} }

// Decimal returns a decimal value.
func Decimal(f float64) Value { return Value{kind: KindDecimal, decimal: f} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, boolean: b} }

// Date returns a date value truncated to the calendar day of t.
func Date(t time.Time) Value {
	y, m, d := t.Date()
	return Value{kind: KindDate, date: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// List returns a list value.
func List(items ...string) Value {
	return Value{kind: KindList, list: append([]string(nil), items...)}
}

// Kind reports the value's kind.
func (v Value) Kind() Kind { return v.kind }

// Text returns the string of a text value.
func (v Value) Text() string { return v.text }

// Int returns the integer of an integer value.
func (v Value) Int() int64 { return v.integer }

// Decimal returns the float of a decimal value.
func (v Value) Decimal() float64 { return v.decimal }

// Bool returns the boolean of a boolean value.
func (v Value) Bool() bool { return v.boolean }

// Date returns the date of a date value.
func (v Value) Date() time.Time { return v.date }

// List returns a copy of the items of a list value.
func (v Value) List() []string { return append([]string(nil), v.list...) }

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindText:
		return v.text == o.text
	case KindInt:
		return v.integer == o.integer
	case KindDecimal:
		return v.decimal == o.decimal
	case KindBool:
		return v.boolean == o.boolean
	case KindDate:
		return v.date.Equal(o.date)
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	}
	return false
}

// String renders the unescaped textual form of the value.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindInt:
		return strconv.FormatInt(v.integer, 10)
	case KindDecimal:
		return strconv.FormatFloat(v.decimal, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.boolean)
	case KindDate:
		return v.date.Format(DateLayout)
	case KindList:
		return strings.Join(v.list, ListDelimiter)
	}
	return ""
}

// validate checks that a value can survive a serialize/parse round trip.
func (v Value) validate() error {
	switch v.kind {
	case KindText:
		if v.text == "" {
			return fmt.Errorf("%w: text", ErrEmptyValue)
		}
		if strings.ContainsAny(v.text, "\r\n") {
			return fmt.Errorf("%w: text contains a line break", ErrInvalidValue)
		}
	case KindDecimal:
		if math.IsNaN(v.decimal) || math.IsInf(v.decimal, 0) {
			return fmt.Errorf("%w: decimal must be finite", ErrInvalidValue)
		}
	case KindList:
		if len(v.list) == 0 {
			return fmt.Errorf("%w: list", ErrEmptyValue)
		}
		for _, item := range v.list {
			if item == "" || strings.ContainsAny(item, " \t\r\n"+ListDelimiter) {
				return fmt.Errorf("%w: list item %q", ErrInvalidValue, item)
			}
		}
	case KindInt, KindBool, KindDate:
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidValue, int(v.kind))
	}
	return nil
}

// parseValue converts one unescaped token into a value of the given kind.
func parseValue(kind Kind, token string) (Value, error) {
	switch kind {
	case KindText:
		return Text(token), nil
	case KindInt:
		n, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("not an integer: %w", err)
		}
		return Int(n), nil
	case KindDecimal:
		f, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return Value{}, fmt.Errorf("not a number: %w", err)
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, fmt.Errorf("not a finite number: %s", token)
		}
		return Decimal(f), nil
	case KindBool:
		b, err := strconv.ParseBool(token)
		if err != nil {
			return Value{}, fmt.Errorf("not a boolean: %w", err)
		}
		return Bool(b), nil
	case KindDate:
		t, err := time.Parse(DateLayout, token)
		if err != nil {
			return Value{}, fmt.Errorf("not a date (want YYYY-MM-DD): %w", err)
		}
		return Date(t), nil
	case KindList:
		var items []string
		for _, item := range strings.Split(token, ListDelimiter) {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		if len(items) == 0 {
			return Value{}, fmt.Errorf("empty list")
		}
		return List(items...), nil
	}
	return Value{}, fmt.Errorf("unknown slot kind %d", int(kind))
}
