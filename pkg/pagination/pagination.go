package pagination

import (
	"math"
	"net/http"
	"strconv"
)

// Limits bounds the page size accepted from callers.
type Limits struct {
	DefaultPerPage int
	MaxPerPage     int
	// MaxWindow is the deepest hit, counted from the first, a backend will
	// page to. Zero means unbounded.
	MaxWindow int
}

// Params holds normalized pagination parameters.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
	// Beyond is set when the page lies past MaxWindow and holds no hits.
	Beyond bool `json:"-"`
}

// Normalize coerces page and perPage into range: non-positive values take
// the defaults and perPage is capped at MaxPerPage. Page is capped so the
// offset cannot overflow; pages past MaxWindow collapse onto the first page
// beyond it. It never fails.
func Normalize(page, perPage int, lim Limits) Params {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = lim.DefaultPerPage
	}
	if lim.MaxPerPage > 0 && perPage > lim.MaxPerPage {
		perPage = lim.MaxPerPage
	}
	if perPage < 1 {
		perPage = 1
	}

	lastPage := math.MaxInt/perPage - 1
	if lim.MaxWindow > 0 {
		lastPage = lim.MaxWindow / perPage
	}
	beyond := page > lastPage
	if beyond {
		page = lastPage + 1
	}
	return Params{Page: page, PerPage: perPage, Offset: (page - 1) * perPage, Beyond: beyond}
}

// FromRequest reads page and the named size parameter from the query string.
// Unparsable values are treated as absent.
func FromRequest(r *http.Request, sizeParam string, lim Limits) Params {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get(sizeParam))
	return Normalize(page, perPage, lim)
}

// Pages returns ceil(total/perPage), or 0 when perPage is not positive.
func Pages(total, perPage int) int {
	if perPage <= 0 || total <= 0 {
		return 0
	}
	pages := total / perPage
	if total%perPage > 0 {
		pages++
	}
	return pages
}
