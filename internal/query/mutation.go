package query

import (
	"context"
	"sync"
)

// Mutation is an imperative call (purchase, withdraw, update a setting). It
// never fetches on its own.
type Mutation[In, Out any] struct {
	run  func(ctx context.Context, in In) (Out, error)
	opts options

	mu       sync.Mutex
	state    State[Out]
	inflight int
}

func NewMutation[In, Out any](run func(ctx context.Context, in In) (Out, error), opts ...Option) *Mutation[In, Out] {
	return &Mutation[In, Out]{run: run, opts: buildOptions(opts)}
}

func (m *Mutation[In, Out]) State() State[Out] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Submit runs the mutation. Loading stays true while any submission is in
// flight.
func (m *Mutation[In, Out]) Submit(ctx context.Context, in In) (Out, error) {
	m.mu.Lock()
	m.inflight++
	m.state.Loading = true
	m.mu.Unlock()

	out, err := m.run(ctx, in)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
	m.state.Loading = m.inflight > 0

	if err != nil {
		m.state.Err = err
		m.opts.reportError(err)
		return out, err
	}
	m.state.Data = out
	m.state.HasData = true
	m.state.Err = nil
	if m.opts.notifier != nil && m.opts.success != "" {
		m.opts.notifier.Success(m.opts.success)
	}
	return out, nil
}
