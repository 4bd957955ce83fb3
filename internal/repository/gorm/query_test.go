package gorm

import (
	"testing"

	"github.com/flexprice/invoicer/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestOrderClause(t *testing.T) {
	allowed := []string{"created_at", "name"}

	assert.Equal(t, "created_at desc, id desc", orderClause(nil, allowed))
	assert.Equal(t, "name asc, id asc", orderClause(&types.QueryFilter{Sort: lo.ToPtr("name"), Order: lo.ToPtr("asc")}, allowed))
	assert.Equal(t, "created_at desc, id desc", orderClause(&types.QueryFilter{Sort: lo.ToPtr("name; DROP TABLE invoices")}, allowed))
}
