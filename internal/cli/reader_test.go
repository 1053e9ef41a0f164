package cli

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLineReader_ReadLine(t *testing.T) {
	reader := NewLineReader(strings.NewReader("line1\r\n  padded\\ \n\nlast"))
	ctx := context.Background()

	for _, want := range []string{"line1", `  padded\ `, "", "last"} {
		got, err := reader.ReadLine(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := reader.ReadLine(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestLineReader_Cancellation(t *testing.T) {
	t.Run("already canceled", func(t *testing.T) {
		reader := NewLineReader(strings.NewReader("ignored\n"))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := reader.ReadLine(ctx)
		assert.ErrorIs(t, err, ErrInputCancelled)
	})

	t.Run("canceled while waiting", func(t *testing.T) {
		pr, pw := io.Pipe()
		defer func() { _ = pw.Close() }()

		reader := NewLineReader(pr)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := reader.ReadLine(ctx)
		assert.ErrorIs(t, err, ErrInputCancelled)
	})
}

func TestLineReader_CloseStopsGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	pr, pw := io.Pipe()
	reader := NewLineReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := reader.ReadLine(ctx)
	require.ErrorIs(t, err, ErrInputCancelled)

	reader.Close()
	reader.Close()

	// Nobody reads this line; the goroutine must still exit.
	_, err = io.WriteString(pw, "late line\n")
	require.NoError(t, err)

	select {
	case <-reader.stopped:
	case <-time.After(time.Second):
		t.Fatal("reader goroutine still running after Close")
	}
	_ = pw.Close()
}
