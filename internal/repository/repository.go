package repository

// PageQuery holds LIMIT/OFFSET pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a page of items plus the total number of matching rows.
type PageResult[T any] struct {
	Items []T
	Total int
}
