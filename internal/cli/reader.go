package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

// ErrInputCancelled is returned when a read is abandoned because ctx ended.
var ErrInputCancelled = errors.New("input canceled")

type line struct {
	err  error
	text string
}

// LineReader reads lines on a background goroutine so callers can stop
// waiting when their context ends.
type LineReader struct {
	lines     chan line
	done      chan struct{}
	stopped   chan struct{}
	src       *bufio.Scanner
	once      sync.Once
	closeOnce sync.Once
}

// NewLineReader wraps r. Reading starts on the first call to ReadLine.
func NewLineReader(r io.Reader) *LineReader {
	if r == nil {
		panic("reader cannot be nil")
	}
	return &LineReader{
		lines:   make(chan line),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		src:     bufio.NewScanner(r),
	}
}

func (r *LineReader) start() {
	go func() {
		defer close(r.stopped)
		defer close(r.lines)
		for r.src.Scan() {
			if !r.send(line{text: r.src.Text()}) {
				return
			}
		}
		if err := r.src.Err(); err != nil {
			r.send(line{err: err})
		}
	}()
}

func (r *LineReader) send(l line) bool {
	select {
	case r.lines <- l:
		return true
	case <-r.done:
		return false
	}
}

// Close stops the background goroutine. A read already blocked on the
// underlying reader finishes first, and its line is discarded.
func (r *LineReader) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// ReadLine returns the next line without its line ending, io.EOF at end of
// input, or ErrInputCancelled if ctx ends first. Other whitespace is kept so
// escaped trailing spaces survive.
func (r *LineReader) ReadLine(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ErrInputCancelled
	}
	r.once.Do(r.start)

	select {
	case <-ctx.Done():
		return "", ErrInputCancelled
	case l, ok := <-r.lines:
		if !ok {
			return "", io.EOF
		}
		if l.err != nil {
			return "", l.err
		}
		return strings.TrimRight(l.text, "\r"), nil
	}
}
