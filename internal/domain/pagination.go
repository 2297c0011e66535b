package domain

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// WindowParams addresses one page of root comments. Pages are zero-based;
// the visible window after n loads is the prefix of (n+1)*PageSize roots.
type WindowParams struct {
	Page     int `json:"page" query:"page"`
	PageSize int `json:"page_size" query:"page_size"`
}

func DefaultWindow() WindowParams {
	return WindowParams{Page: 0, PageSize: DefaultPageSize}
}

func (p *WindowParams) Validate() {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

func (p *WindowParams) Offset() int {
	return p.Page * p.PageSize
}

// WindowLimit is the row count that re-derives everything visible through
// the given page in a single fetch.
func (p *WindowParams) WindowLimit() int {
	return (p.Page + 1) * p.PageSize
}
