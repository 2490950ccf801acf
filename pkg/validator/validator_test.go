package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type indexRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Price    float64 `json:"price" validate:"gte=0"`
	Category string  `json:"category" validate:"required,oneof=T-shirts Shorts"`
}

func TestValidate_Fields(t *testing.T) {
	err := Validate(indexRequest{Price: -1, Category: "Hats"})
	require.Error(t, err)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	fields := vErr.Fields()
	assert.Equal(t, "is required", fields["Name"])
	assert.Equal(t, "must be greater than or equal to 0", fields["Price"])
	assert.Equal(t, "must be one of: T-shirts Shorts", fields["Category"])
	assert.Contains(t, vErr.Error(), "field 'Name' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"name":"Tee","price":10,"category":"T-shirts"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst indexRequest
	require.NoError(t, DecodeAndValidate(req, &dst))
	assert.Equal(t, "Tee", dst.Name)
}

func TestDecodeAndValidate_UnknownField(t *testing.T) {
	body := `{"name":"Tee","category":"T-shirts","brand":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

	var dst indexRequest
	err := DecodeAndValidate(req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
