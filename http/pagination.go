package http

import "context"

// PageFetcher fetches the page identified by cursor. The first call gets an
// empty cursor; an empty next cursor ends iteration.
type PageFetcher[T any] func(ctx context.Context, cursor string) (items []T, next string, err error)

// PageIterator lazily walks cursor-paginated API results.
type PageIterator[T any] struct {
	fetch   PageFetcher[T]
	cursor  string
	started bool
	buffer  []T
	done    bool
	err     error
	pages   int

	// maxPages guards against servers that keep returning the same cursor.
	maxPages int
}

// NewPageIterator returns an iterator that has not fetched anything yet.
func NewPageIterator[T any](fetch PageFetcher[T]) *PageIterator[T] {
	return &PageIterator[T]{
		fetch:    fetch,
		maxPages: 1000,
	}
}

// Next returns the next item from the iterator.
// When iteration is complete, returns (zero, false, nil).
func (p *PageIterator[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T

	if p.err != nil {
		return zero, false, p.err
	}

	for len(p.buffer) == 0 && !p.done {
		if p.pages >= p.maxPages {
			p.done = true
			break
		}
		items, next, err := p.fetch(ctx, p.cursor)
		if err != nil {
			p.err = err
			return zero, false, err
		}
		p.pages++
		p.buffer = items
		p.done = next == "" || (p.started && next == p.cursor)
		p.started = true
		p.cursor = next
	}

	if len(p.buffer) == 0 {
		return zero, false, nil
	}

	item := p.buffer[0]
	p.buffer = p.buffer[1:]

	return item, true, nil
}

// All drains the iterator.
func (p *PageIterator[T]) All(ctx context.Context) ([]T, error) {
	var all []T
	for {
		item, ok, err := p.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		all = append(all, item)
	}
	return all, nil
}
