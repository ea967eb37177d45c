package model

// PageRequest is the page-based form of a skip/limit window.
type PageRequest struct {
	Page     int
	PageSize int
}

// DefaultLimit applies when a caller asks for a non-positive limit.
const DefaultLimit = 20

// ToPage translates skip/limit into page/page_size using page = floor(skip/limit) + 1.
// A skip that is not a multiple of limit lands on the page containing it.
func ToPage(skip, limit int) PageRequest {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if skip < 0 {
		skip = 0
	}
	return PageRequest{Page: skip/limit + 1, PageSize: limit}
}

// FromPage translates page/page_size back into skip/limit using skip = (page-1) * page_size.
func FromPage(page, pageSize int) (skip, limit int) {
	if pageSize <= 0 {
		pageSize = DefaultLimit
	}
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize, pageSize
}
