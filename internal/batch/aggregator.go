// Package batch coalesces bursts of same-chat input into one deferred execution
// followed by a single summary.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/ledgerbot/internal/command"
	"github.com/Veraticus/ledgerbot/internal/common"
)

// DefaultDelay is how long a batch stays open after its first item.
const DefaultDelay = 2 * time.Second

// Item is one parsed line: a command, or the error that prevented parsing it.
type Item struct {
	Err     error
	Command command.Command
}

// Outcome tells the submitter whether it opened a batch or joined one.
type Outcome int

const (
	// Opened means the submission started a new batch and armed its timer.
	Opened Outcome = iota
	// Continued means the submission joined a batch that was already open.
	Continued
)

func (o Outcome) String() string {
	if o == Opened {
		return "opened"
	}
	return "continued"
}

// Summary is emitted once per drained batch.
type Summary struct {
	ChatID int64
	// Count and Total cover every parsed entry-creating command, whether or
	// not it then executed.
	Count  int
	Total  float64
	Items  int
	Failed int
}

// Executor carries out drained items for a chat.
type Executor interface {
	// ExecuteSilent dispatches cmd with normal confirmations suppressed.
	ExecuteSilent(ctx context.Context, chatID int64, cmd command.Command) error
	// ReportError surfaces a parse error for one item.
	ReportError(ctx context.Context, chatID int64, err error)
	// Summarize sends the batch summary.
	Summarize(ctx context.Context, summary Summary)
}

// AmountFunc reports the amount of an entry-creating command.
type AmountFunc func(cmd command.Command) (float64, bool)

type chatQueue struct {
	items []Item
	mu    sync.Mutex
	open  bool
}

// Aggregator holds at most one pending queue per chat.
type Aggregator struct {
	executor Executor
	amount   AmountFunc
	queues   sync.Map // int64 -> *chatQueue
	wg       sync.WaitGroup
	delay    time.Duration
}

// NewAggregator creates an aggregator that drains each batch delay after it opens.
func NewAggregator(executor Executor, amount AmountFunc, delay time.Duration) *Aggregator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Aggregator{executor: executor, amount: amount, delay: delay}
}

func (a *Aggregator) queue(chatID int64) *chatQueue {
	q, _ := a.queues.LoadOrStore(chatID, &chatQueue{})
	return q.(*chatQueue)
}

// Submit appends items to the chat's queue. The first submission after a drain
// opens a new batch and arms exactly one timer; later ones only append.
// The timer is not cancellable; the drain runs on a context detached from ctx.
func (a *Aggregator) Submit(ctx context.Context, chatID int64, items ...Item) Outcome {
	q := a.queue(chatID)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, items...)
	if q.open {
		common.LogDebug("Batch continued", common.ChatFields(chatID).With("queued", len(q.items)))
		return Continued
	}

	q.open = true
	a.wg.Add(1)
	drainCtx := context.WithoutCancel(ctx)
	time.AfterFunc(a.delay, func() {
		defer a.wg.Done()
		a.drain(drainCtx, chatID, q)
	})

	common.LogDebug("Batch opened", common.ChatFields(chatID).With("queued", len(q.items)))
	return Opened
}

// Wait blocks until every armed timer has fired and its drain has finished.
func (a *Aggregator) Wait() {
	a.wg.Wait()
}

func (a *Aggregator) drain(ctx context.Context, chatID int64, q *chatQueue) {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.open = false
	q.mu.Unlock()

	summary := Summary{ChatID: chatID, Items: len(items)}
	for i, item := range items {
		if item.Err != nil {
			summary.Failed++
			a.executor.ReportError(ctx, chatID, item.Err)
			continue
		}

		if amount, ok := a.amount(item.Command); ok {
			summary.Count++
			summary.Total += amount
		}

		if err := a.executor.ExecuteSilent(ctx, chatID, item.Command); err != nil {
			summary.Failed++
			common.LogError(err, "Batch item failed", common.ChatFields(chatID).
				With("item", i).
				With("command", item.Command.String()))
		}
	}

	common.LogInfo("Batch drained", common.ChatFields(chatID).
		With("items", summary.Items).
		With("entries", summary.Count).
		With("failed", summary.Failed))
	a.executor.Summarize(ctx, summary)
}
