// Package query holds view state for backend calls: the data last fetched,
// the last error, and whether a call is in flight.
//
// SEMANTICS:
//   - Loading is true strictly between issuing a call and the latest issued
//     call settling.
//   - Success stores the data and clears Err.
//   - Failure stores Err and keeps the previous data (stale-while-error).
//   - Last issued wins: a response for a call that has since been superseded
//     is discarded, whenever it arrives. The superseded call's context is
//     cancelled.
package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/sakif/xeenux-portal/internal/apperror"
)

// Notifier receives user-visible messages (the portal's flash banner, the
// CLI's stderr).
type Notifier interface {
	Error(message string)
	Success(message string)
}

// Option configures a Query, Paged or Mutation.
type Option func(*options)

type options struct {
	name     string
	notifier Notifier
	logger   *slog.Logger
	success  string
}

// WithName labels log lines.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithNotifier reports failures (and Mutation successes) to n.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSuccessMessage is shown through the Notifier after a Mutation succeeds.
func WithSuccessMessage(msg string) Option {
	return func(o *options) { o.success = msg }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

func (o options) reportError(err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	o.logger.Warn("query failed", slog.String("query", o.name), slog.String("error", err.Error()))
	if o.notifier != nil {
		o.notifier.Error(apperror.UserMessage(err))
	}
}

// State is a snapshot of a Query.
type State[T any] struct {
	Data    T
	HasData bool
	Err     error
	Loading bool
}

// Fetcher performs one backend call.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Query tracks one fetchable value.
type Query[T any] struct {
	fetch Fetcher[T]
	opts  options

	mu     sync.Mutex
	state  State[T]
	issued uint64
	cancel context.CancelFunc
}

func New[T any](fetch Fetcher[T], opts ...Option) *Query[T] {
	return &Query[T]{fetch: fetch, opts: buildOptions(opts)}
}

// State returns a snapshot.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Refresh issues a fetch and waits for it. The returned values are this
// call's own result, even when a newer call has superseded it in State.
func (q *Query[T]) Refresh(ctx context.Context) (T, error) {
	seq, ctx := q.begin(ctx)
	data, err := q.fetch(ctx)
	q.finish(seq, data, err)
	return data, err
}

// Ensure fetches only when nothing has been loaded yet and no call is in
// flight, like a view that loads on first display.
func (q *Query[T]) Ensure(ctx context.Context) State[T] {
	q.mu.Lock()
	idle := !q.state.HasData && !q.state.Loading && q.state.Err == nil
	q.mu.Unlock()

	if idle {
		q.Refresh(ctx)
	}
	return q.State()
}

// Close cancels any call in flight.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
}

func (q *Query[T]) begin(ctx context.Context) (uint64, context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancel != nil {
		q.cancel()
	}
	ctx, q.cancel = context.WithCancel(ctx)

	q.issued++
	q.state.Loading = true
	return q.issued, ctx
}

func (q *Query[T]) finish(seq uint64, data T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if seq != q.issued {
		q.opts.logger.Debug("discarding superseded response", slog.String("query", q.opts.name))
		return
	}

	q.state.Loading = false
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}

	if err != nil {
		q.state.Err = err
		q.opts.reportError(err)
		return
	}
	q.state.Data = data
	q.state.HasData = true
	q.state.Err = nil
}
