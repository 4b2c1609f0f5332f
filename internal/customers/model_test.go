package customers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertRequestValidate(t *testing.T) {
	req := UpsertRequest{FirstName: "  Laura ", LastName: " Gómez ", Phone: " 573001112233 "}
	require.NoError(t, req.Validate())
	assert.Equal(t, "Laura", req.FirstName)
	assert.Equal(t, "Gómez", req.LastName)
	assert.Equal(t, "573001112233", req.Phone)

	missing := UpsertRequest{FirstName: "Laura"}
	assert.ErrorIs(t, missing.Validate(), ErrInvalidPhone)

	noName := UpsertRequest{Phone: "573001112233", FirstName: "   "}
	assert.ErrorIs(t, noName.Validate(), ErrInvalidName)
}

func TestCustomerFullName(t *testing.T) {
	c := Customer{FirstName: "Laura", LastName: "Gómez"}
	assert.Equal(t, "Laura Gómez", c.FullName())

	onlyFirst := Customer{FirstName: "573001112233"}
	assert.Equal(t, "573001112233", onlyFirst.FullName())
}
