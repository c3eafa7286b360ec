package pagination

const (
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 25
	// MaxPageSize caps how many rows any page query can request.
	MaxPageSize = 100
)

// Params holds page-number pagination inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Meta describes a rendered page for response envelopes.
type Meta struct {
	TotalObjects int64 `json:"total_objects"`
	TotalPages   int   `json:"total_pages"`
	CurrentPage  int   `json:"current_page"`
}

// Normalize enforces the configured defaults and maximums.
func Normalize(p Params) Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset returns the row offset for the normalized params.
func (p Params) Offset() int {
	n := Normalize(p)
	return (n.Page - 1) * n.PageSize
}

// MetaFor computes page metadata from a total row count.
func MetaFor(p Params, total int64) Meta {
	n := Normalize(p)
	pages := int((total + int64(n.PageSize) - 1) / int64(n.PageSize))
	if pages < 1 {
		pages = 1
	}
	return Meta{
		TotalObjects: total,
		TotalPages:   pages,
		CurrentPage:  n.Page,
	}
}
