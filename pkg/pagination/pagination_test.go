package pagination

import (
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

var storefront = Limits{DefaultPerPage: 9, MaxPerPage: 100}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name          string
		page, perPage int
		want          Params
	}{
		{"defaults", 0, 0, Params{Page: 1, PerPage: 9, Offset: 0}},
		{"negative", -3, -1, Params{Page: 1, PerPage: 9, Offset: 0}},
		{"in range", 3, 20, Params{Page: 3, PerPage: 20, Offset: 40}},
		{"capped", 2, 500, Params{Page: 2, PerPage: 100, Offset: 100}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.page, tt.perPage, storefront))
		})
	}
}

func TestNormalize_DeepPages(t *testing.T) {
	windowed := storefront
	windowed.MaxWindow = 10000

	p := Normalize(1111, 9, windowed)
	assert.Equal(t, Params{Page: 1111, PerPage: 9, Offset: 9990}, p)

	p = Normalize(2000, 9, windowed)
	assert.Equal(t, Params{Page: 1112, PerPage: 9, Offset: 10008, Beyond: true}, p)

	p = Normalize(math.MaxInt, 9, storefront)
	assert.True(t, p.Beyond)
	assert.GreaterOrEqual(t, p.Offset, 0)
	assert.GreaterOrEqual(t, p.Offset+p.PerPage, p.Offset)
}

func TestFromRequest_IgnoresGarbage(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=abc&limit=12", nil)
	p := FromRequest(r, "limit", storefront)
	assert.Equal(t, Params{Page: 1, PerPage: 12, Offset: 0}, p)
}

func TestPages(t *testing.T) {
	assert.Equal(t, 0, Pages(0, 9))
	assert.Equal(t, 1, Pages(9, 9))
	assert.Equal(t, 2, Pages(10, 9))
	assert.Equal(t, 0, Pages(10, 0))
}
