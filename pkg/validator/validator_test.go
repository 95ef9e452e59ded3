package validator

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=999"`
	Source    string `json:"source" validate:"omitempty,oneof=cart api"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(itemInput{ProductID: "A1", Quantity: 2}))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	err := Validate(itemInput{Quantity: 0})
	require.Error(t, err)

	var valErr *ValidationError
	require.True(t, errors.As(err, &valErr))

	fields := valErr.Fields()
	assert.Equal(t, "is required", fields["product_id"])
	assert.Equal(t, "must be greater than or equal to 1", fields["quantity"])
}

func TestValidate_OneOf(t *testing.T) {
	err := Validate(itemInput{ProductID: "A1", Quantity: 1, Source: "fax"})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be one of: cart api", valErr.Fields()["source"])
}

func TestValidationError_ErrorString(t *testing.T) {
	err := Validate(itemInput{ProductID: "A1", Quantity: 1000})
	require.Error(t, err)
	assert.Equal(t, "field 'quantity' must be less than or equal to 999", err.Error())
}

func TestValidate_Slice(t *testing.T) {
	type batch struct {
		Items []itemInput `json:"items" validate:"required,min=1,dive"`
	}
	assert.NoError(t, Validate(batch{Items: []itemInput{{ProductID: "A", Quantity: 1}}}))
	assert.Error(t, Validate(batch{Items: []itemInput{{Quantity: 1}}}))
	assert.Error(t, Validate(batch{}))
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"product_id":"A1","quantity":2}`))
		var in itemInput
		require.NoError(t, DecodeAndValidate(req, &in))
		assert.Equal(t, "A1", in.ProductID)
	})

	t.Run("invalid json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		var in itemInput
		err := DecodeAndValidate(req, &in)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode request body")
	})

	t.Run("validation fails", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":2}`))
		var in itemInput
		var valErr *ValidationError
		assert.ErrorAs(t, DecodeAndValidate(req, &in), &valErr)
	})
}
