package pagination

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Request is a 1-based page request.
type Request struct {
	Page    int
	PerPage int
}

// Normalize clamps the request: page >= 1, 1 <= per_page <= MaxPerPage.
func (r Request) Normalize() Request {
	if r.Page <= 0 {
		r.Page = 1
	}
	if r.PerPage <= 0 {
		r.PerPage = DefaultPerPage
	}
	if r.PerPage > MaxPerPage {
		r.PerPage = MaxPerPage
	}
	return r
}

func (r Request) Offset() int {
	n := r.Normalize()
	return (n.Page - 1) * n.PerPage
}

func (r Request) Limit() int {
	return r.Normalize().PerPage
}

// Page is one page of items plus navigation metadata.
type Page[T any] struct {
	Items   []T  `json:"items"`
	Page    int  `json:"page"`
	PerPage int  `json:"per_page"`
	Total   int  `json:"total"`
	Pages   int  `json:"pages"`
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// New wraps an already sliced page of items fetched with r.Offset/r.Limit.
func New[T any](items []T, r Request, total int) Page[T] {
	r = r.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := (total + r.PerPage - 1) / r.PerPage
	return Page[T]{
		Items:   items,
		Page:    r.Page,
		PerPage: r.PerPage,
		Total:   total,
		Pages:   pages,
		HasNext: r.Page*r.PerPage < total,
		HasPrev: r.Page > 1,
	}
}

// Paginate slices a fully loaded result set in memory.
func Paginate[T any](items []T, r Request) Page[T] {
	r = r.Normalize()
	total := len(items)

	start := (r.Page - 1) * r.PerPage
	if start > total {
		start = total
	}
	end := start + r.PerPage
	if end > total {
		end = total
	}
	return New(items[start:end], r, total)
}
