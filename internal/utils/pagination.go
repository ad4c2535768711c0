package utils

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// NormalizePage clamps page and pageSize to usable values.
func NormalizePage(page, pageSize int32) (int32, int32) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
