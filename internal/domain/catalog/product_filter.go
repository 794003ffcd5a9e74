package catalog

import "strings"

// Paging defaults for product listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// productSortColumns whitelists the columns a listing may be ordered by
var productSortColumns = map[string]bool{
	"id":         true,
	"created_at": true,
	"updated_at": true,
	"name":       true,
	"sku":        true,
	"price":      true,
}

// ProductFilter selects one page of products
type ProductFilter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	// Search matches name or SKU, case-insensitively
	Search string
}

// DefaultProductFilter returns the first page, newest first
func DefaultProductFilter() ProductFilter {
	return ProductFilter{
		Page:     1,
		PageSize: DefaultPageSize,
		OrderBy:  "created_at",
		OrderDir: "desc",
	}
}

// Offset returns the row offset of the filter's page
func (f ProductFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// OrderClause returns an ORDER BY expression built only from whitelisted
// tokens. Unknown columns fall back to created_at; anything but asc sorts
// descending.
func (f ProductFilter) OrderClause() string {
	column := strings.TrimSpace(f.OrderBy)
	if !productSortColumns[column] {
		column = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(strings.TrimSpace(f.OrderDir), "asc") {
		dir = "ASC"
	}
	return column + " " + dir
}
