package customer

import (
	"testing"

	ierr "github.com/flexprice/invoicer/internal/errors"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestApplyPatch(t *testing.T) {
	c := &Customer{Name: "Acme", Email: "billing@acme.test", Phone: "123"}

	c.ApplyPatch(Patch{Email: lo.ToPtr("ap@acme.test"), Company: lo.ToPtr("Acme Inc")})

	assert.Equal(t, "Acme", c.Name)
	assert.Equal(t, "ap@acme.test", c.Email)
	assert.Equal(t, "Acme Inc", c.Company)
	assert.Equal(t, "123", c.Phone)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, (&Customer{Name: "a", Email: "a@b.c"}).Validate())
	assert.True(t, ierr.IsValidation((&Customer{Email: "a@b.c"}).Validate()))
	assert.True(t, ierr.IsValidation((&Customer{Name: "a"}).Validate()))
}
