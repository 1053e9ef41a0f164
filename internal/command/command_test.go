package command

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpec = NewSpec("everything", "one slot of every kind",
	Slot{Placeholder: "<name>", Kind: KindText},
	Slot{Placeholder: "<count>", Kind: KindInt},
	Slot{Placeholder: "<amount>", Kind: KindDecimal},
	Slot{Placeholder: "<confirm>", Kind: KindBool},
	Slot{Placeholder: "<date>", Kind: KindDate},
	Slot{Placeholder: "<words>", Kind: KindList},
)

func fullValues() []Value {
	return []Value{
		Text(`My \ Lunch  at "Joe's"`),
		Int(-42),
		Decimal(12.75),
		Bool(true),
		Date(time.Date(2024, 10, 5, 13, 30, 0, 0, time.UTC)),
		List("coffee", "tea", `c\d`),
	}
}

func TestEscape_RoundTrip(t *testing.T) {
	tests := []string{
		"",
		" ",
		"  ",
		`\`,
		`\\`,
		`\ `,
		`a\ b`,
		"plain",
		"two words",
		` leading and trailing `,
		`ends with backslash\`,
		"Кофе с молоком",
		"tab\tinside",
		"caf\xe9 au lait",
	}

	for _, s := range tests {
		t.Run(s, func(t *testing.T) {
			escaped := Escape(s)
			assert.Equal(t, s, Unescape(escaped))
			assert.False(t, hasUnescapedSpace(escaped), "escaped %q contains a bare space", escaped)
		})
	}
}

func TestEscape_RandomStrings(t *testing.T) {
	alphabet := []string{"a", "b", " ", "\\", "é", "|", "\t", "\xe9"}
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		var sb strings.Builder
		for j := rng.Intn(12); j > 0; j-- {
			sb.WriteString(alphabet[rng.Intn(len(alphabet))])
		}
		s := sb.String()
		escaped := Escape(s)
		require.Equal(t, s, Unescape(escaped), "escaped form %q", escaped)
		require.False(t, hasUnescapedSpace(escaped))
	}
}

func hasUnescapedSpace(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case ' ':
			return true
		}
	}
	return false
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "empty", in: "", want: nil},
		{name: "separators only", in: "   ", want: nil},
		{name: "simple", in: "a b c", want: []string{"a", "b", "c"}},
		{name: "escaped space", in: `My\ Lunch 12`, want: []string{"My Lunch", "12"}},
		{name: "escaped backslash", in: `a\\ b`, want: []string{`a\`, "b"}},
		{name: "lone backslash kept", in: `\d+ x`, want: []string{`\d+`, "x"}},
		{name: "only first line", in: "a b\nc d", want: []string{"a", "b"}},
		{name: "repeated separators", in: "a   b", want: []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.in))
		})
	}
}

func TestCommand_MinimalRoundTrip(t *testing.T) {
	values := fullValues()

	for k := 0; k <= len(values); k++ {
		cmd, err := testSpec.New(values[:k]...)
		require.NoError(t, err)

		line := cmd.Minimal()
		assert.True(t, strings.HasPrefix(line, "/everything"))
		if k < len(values) {
			assert.True(t, strings.HasSuffix(line, " "), "partial command %q needs a trailing space", line)
		}

		registry := NewRegistry(testSpec)
		parsed, err := registry.Parse(line, "")
		require.NoError(t, err, "line %q", line)
		assert.True(t, cmd.Equal(parsed), "k=%d: %q parsed to %q", k, line, parsed.Minimal())
		assert.Equal(t, k, parsed.Populated())
	}
}

func TestCommand_Usage(t *testing.T) {
	cmd := testSpec.MustNew(Text("Food"), Int(3))

	assert.Equal(t, "/everything Food 3 <amount> <confirm> <date> <words>", cmd.Usage())
	assert.Equal(t, "/everything Food 3 ", cmd.Minimal())
	assert.Equal(t, "/everything Food 3", cmd.String())

	full := testSpec.MustNew(fullValues()...)
	assert.Equal(t, full.Minimal(), full.Usage())
	assert.False(t, strings.HasSuffix(full.Minimal(), " "))
}

func TestCommand_EscapedTrailingSpaceSurvivesString(t *testing.T) {
	spec := NewSpec("note", "", Slot{Placeholder: "<text>", Kind: KindText}, Slot{Placeholder: "<n>", Kind: KindInt})
	cmd := spec.MustNew(Text("ends with space "))

	assert.Equal(t, `/note ends\ with\ space\ `, cmd.String())
	parsed, err := spec.Parse(strings.TrimPrefix(cmd.String(), "/note"))
	require.NoError(t, err)
	assert.True(t, cmd.Equal(parsed))
}

func TestCommand_InvalidUTF8SurvivesString(t *testing.T) {
	spec := NewSpec("note", "", Slot{Placeholder: "<text>", Kind: KindText})
	cmd := spec.MustNew(Text("caf\xe9 au lait"))

	parsed, err := NewRegistry(spec).Parse(cmd.String(), "")
	require.NoError(t, err)
	assert.True(t, cmd.Equal(parsed), "parsed to %q", parsed.String())
	assert.Equal(t, "caf\xe9 au lait", parsed.Values()[0].Text())
}

func TestSpec_FromSlotsRejectsGaps(t *testing.T) {
	name := Text("Food")
	amount := Decimal(1.5)

	_, err := testSpec.FromSlots(&name, nil, &amount)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNonContiguous)

	cmd, err := testSpec.FromSlots(&name, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, cmd.Populated())
}

func TestSpec_NewValidation(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		values  []Value
	}{
		{name: "kind mismatch", values: []Value{Int(1)}, wantErr: ErrKindMismatch},
		{name: "empty text", values: []Value{Text("")}, wantErr: ErrEmptyValue},
		{name: "text with newline", values: []Value{Text("a\nb")}, wantErr: ErrInvalidValue},
		{name: "list item with space", values: []Value{Text("x"), Int(1), Decimal(1), Bool(true), Date(time.Now()), List("a b")}, wantErr: ErrInvalidValue},
		{name: "empty list", values: []Value{Text("x"), Int(1), Decimal(1), Bool(true), Date(time.Now()), List()}, wantErr: ErrEmptyValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testSpec.New(tt.values...)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := testSpec.New(append(fullValues(), Text("extra"))...)
	var tooMany *TooManyArgumentsError
	assert.True(t, errors.As(err, &tooMany))
}

func TestSpec_ParseErrors(t *testing.T) {
	t.Run("too many arguments", func(t *testing.T) {
		_, err := testSpec.Parse("a 1 2 true 2024-01-01 x|y surplus")
		var tooMany *TooManyArgumentsError
		require.True(t, errors.As(err, &tooMany))
		assert.Equal(t, 6, tooMany.Expected)
		assert.Equal(t, 7, tooMany.Found)
	})

	t.Run("bad integer names slot", func(t *testing.T) {
		_, err := testSpec.Parse("Food many")
		var argErr *ArgumentError
		require.True(t, errors.As(err, &argErr))
		assert.Equal(t, 1, argErr.Slot)
		assert.Equal(t, "<count>", argErr.Placeholder)
		assert.Contains(t, err.Error(), "<count>")
	})

	t.Run("bad date", func(t *testing.T) {
		_, err := testSpec.Parse("Food 1 2.5 false 05/10/2024")
		var argErr *ArgumentError
		require.True(t, errors.As(err, &argErr))
		assert.Equal(t, 4, argErr.Slot)
	})

	t.Run("non-finite decimal", func(t *testing.T) {
		_, err := testSpec.Parse("Food 1 NaN")
		var argErr *ArgumentError
		require.True(t, errors.As(err, &argErr))
		assert.Equal(t, 2, argErr.Slot)
	})
}

func TestRegistry_Parse(t *testing.T) {
	registry := NewRegistry(testSpec)

	cmd, err := registry.Parse("/everything@LedgerBot Food", "ledgerbot")
	require.NoError(t, err)
	assert.Equal(t, 1, cmd.Populated())

	_, err = registry.Parse("/everything@OtherBot Food", "ledgerbot")
	assert.Error(t, err)

	_, err = registry.Parse("/nothing", "")
	var unknown *UnknownCommandError
	assert.True(t, errors.As(err, &unknown))

	_, err = registry.Parse("Coffee 5", "")
	assert.ErrorIs(t, err, ErrNotCommand)

	assert.Len(t, registry.Specs(), 1)
}

func TestNewSpec_TooManySlotsPanics(t *testing.T) {
	slots := make([]Slot, MaxSlots+1)
	assert.Panics(t, func() { NewSpec("huge", "", slots...) })
}
