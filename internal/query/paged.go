package query

import (
	"context"
	"sync"
)

// PageFetcher fetches one page of a list filtered by filter.
type PageFetcher[T any] func(ctx context.Context, page int, filter string) (T, error)

// Paged is a Query whose dependencies are a page number and a filter.
// Changing either fetches again.
type Paged[T any] struct {
	q     *Query[T]
	fetch PageFetcher[T]

	mu     sync.Mutex
	page   int
	filter string
}

func NewPaged[T any](fetch PageFetcher[T], filter string, opts ...Option) *Paged[T] {
	p := &Paged[T]{fetch: fetch, page: 1, filter: filter}
	p.q = New(func(ctx context.Context) (T, error) {
		page, f := p.Current()
		return fetch(ctx, page, f)
	}, opts...)
	return p
}

// Current returns the page and filter last requested.
func (p *Paged[T]) Current() (page int, filter string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.page, p.filter
}

func (p *Paged[T]) State() State[T] { return p.q.State() }

// Refresh refetches the current page.
func (p *Paged[T]) Refresh(ctx context.Context) (T, error) { return p.q.Refresh(ctx) }

func (p *Paged[T]) Ensure(ctx context.Context) State[T] { return p.q.Ensure(ctx) }

func (p *Paged[T]) Close() { p.q.Close() }

// SetPage moves to page and fetches it. Pages below 1 are clamped to 1.
func (p *Paged[T]) SetPage(ctx context.Context, page int) (T, error) {
	if page < 1 {
		page = 1
	}
	return p.change(ctx, func() {
		p.page = page
	})
}

// SetFilter changes the filter, goes back to page 1 and fetches.
func (p *Paged[T]) SetFilter(ctx context.Context, filter string) (T, error) {
	return p.change(ctx, func() {
		p.filter = filter
		p.page = 1
	})
}

// Select sets page and filter together and fetches once.
func (p *Paged[T]) Select(ctx context.Context, page int, filter string) (T, error) {
	if page < 1 {
		page = 1
	}
	return p.change(ctx, func() {
		p.page = page
		p.filter = filter
	})
}

// change applies a dependency update and issues the fetch under one lock,
// so the order of issued calls is the order of requested changes.
func (p *Paged[T]) change(ctx context.Context, apply func()) (T, error) {
	p.mu.Lock()
	apply()
	page, filter := p.page, p.filter
	seq, ctx := p.q.begin(ctx)
	p.mu.Unlock()

	data, err := p.fetch(ctx, page, filter)
	p.q.finish(seq, data, err)
	return data, err
}
