package feed

// PageWindow is the offset/limit pair a 1-based page number maps onto.
type PageWindow struct {
	Offset int64
	Limit  int64
}

// Window converts a 1-based page into a skip/limit window. Page numbers at or
// below zero are treated as page 1 so the offset can never go negative;
// pageSize at or below zero falls back to the given default.
func Window(page, pageSize, defaultPageSize int) PageWindow {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page < 1 {
		page = 1
	}

	return PageWindow{
		Offset: int64(page-1) * int64(pageSize),
		Limit:  int64(pageSize),
	}
}
