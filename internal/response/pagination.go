package response

// ListWindow is a clamped list query: page at least 1, per_page
// defaulted and capped at 100. Services hand PerPage and Offset to the
// repository and attach Result to the response.
type ListWindow struct {
	Page    int
	PerPage int
}

func Window(page, perPage, defaultPerPage int) ListWindow {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > 100 {
		perPage = 100
	}
	return ListWindow{Page: page, PerPage: perPage}
}

func (w ListWindow) Offset() int {
	return (w.Page - 1) * w.PerPage
}

// Result builds the pagination block once the total row count is known.
func (w ListWindow) Result(total int) *Pagination {
	return &Pagination{
		Page:       w.Page,
		PerPage:    w.PerPage,
		TotalItems: total,
		TotalPages: (total + w.PerPage - 1) / w.PerPage,
	}
}
