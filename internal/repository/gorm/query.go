package gorm

import (
	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
)

// orderClause builds an ORDER BY from the filter. Unknown sort columns fall
// back to created_at so user input never reaches the SQL text.
func orderClause(f *types.QueryFilter, allowed []string) string {
	sort := f.GetSort()
	if !lo.Contains(allowed, sort) {
		sort = types.FILTER_DEFAULT_SORT
	}
	order := f.GetOrder()
	if order != types.OrderAsc {
		order = types.OrderDesc
	}
	return sort + " " + order + ", id " + order
}
