package core

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

type Page struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

// Clean clamps the page to sane values (1-based page, limit in [1, MaxPageLimit]).
func (p *Page) Clean() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	} else if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
}

// Bounds returns the [start, end) slice bounds of the page over n items.
func (p Page) Bounds(n int) (int, int) {
	p.Clean()
	start := (p.Page - 1) * p.Limit
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

// Paginated is a page of results.
type Paginated[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Paginate slices items according to p.
func Paginate[T any](items []T, p Page) Paginated[T] {
	p.Clean()
	start, end := p.Bounds(len(items))
	data := make([]T, 0, end-start)
	data = append(data, items[start:end]...)
	return Paginated[T]{Data: data, Total: len(items), Page: p.Page, Limit: p.Limit}
}
