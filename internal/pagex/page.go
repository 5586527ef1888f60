// Package pagex implements offset pagination with a one-row peek-ahead:
// a listing asks the store for Limit+1 rows, shows Limit of them and uses the
// extra row only to learn whether a next page exists. No COUNT query is needed.
package pagex

// Window is the slice of an ordered listing a caller asks for.
type Window struct {
	Offset int
	Limit  int
}

// NewWindow returns a window starting at offset. A negative offset is clamped
// to zero and a non-positive limit falls back to defaultLimit.
func NewWindow(offset, limit, defaultLimit int) Window {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	return Window{Offset: offset, Limit: limit}
}

// Fetch is the number of rows a store must be asked for.
func (w Window) Fetch() int {
	return w.Limit + 1
}

// Page is one window of results.
type Page[T any] struct {
	Items   []T
	Offset  int
	Limit   int
	HasMore bool
}

// Trim turns up to w.Fetch() rows into a page. The peeked row is dropped and
// only flips HasMore.
func Trim[T any](rows []T, w Window) Page[T] {
	p := Page[T]{Offset: w.Offset, Limit: w.Limit}
	if len(rows) > w.Limit {
		p.HasMore = true
		rows = rows[:w.Limit]
	}
	p.Items = rows
	return p
}

// HasPrev reports whether a previous page exists.
func (p Page[T]) HasPrev() bool {
	return p.Offset > 0
}

// Next is the window of the following page.
func (p Page[T]) Next() Window {
	return Window{Offset: p.Offset + p.Limit, Limit: p.Limit}
}

// Prev is the window of the preceding page.
func (p Page[T]) Prev() Window {
	offset := p.Offset - p.Limit
	if offset < 0 {
		offset = 0
	}
	return Window{Offset: offset, Limit: p.Limit}
}

// Map converts page items while keeping the paging state.
func Map[T, U any](p Page[T], fn func(T) (U, error)) (Page[U], error) {
	out := Page[U]{Offset: p.Offset, Limit: p.Limit, HasMore: p.HasMore, Items: make([]U, 0, len(p.Items))}
	for _, it := range p.Items {
		u, err := fn(it)
		if err != nil {
			return Page[U]{}, err
		}
		out.Items = append(out.Items, u)
	}
	return out, nil
}
