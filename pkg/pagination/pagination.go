// Package pagination reads limit/offset windows from list requests and writes
// paged JSON responses with RFC 8288 Link headers.
package pagination

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// Window bounds the page size an endpoint accepts.
type Window struct {
	Def int
	Max int
}

// Default is the window used by directory listings.
var Default = Window{Def: 20, Max: 100}

// Params is a parsed page request.
type Params struct {
	Limit  int
	Offset int
}

// Parse reads the limit and offset query parameters. Absent values take the
// window default and a limit above Max is clamped. Malformed or negative
// values answer 400.
func (w Window) Parse(c echo.Context) (Params, error) {
	p := Params{Limit: w.Def}
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return Params{}, echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		p.Limit = min(n, w.Max)
	}
	if raw := c.QueryParam("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return Params{}, echo.NewHTTPError(http.StatusBadRequest, "invalid offset")
		}
		p.Offset = n
	}
	return p, nil
}

// Page is the envelope of every list response.
type Page struct {
	Data       any  `json:"data"`
	Total      int  `json:"total"`
	Limit      int  `json:"limit"`
	Offset     int  `json:"offset"`
	HasMore    bool `json:"has_more"`
	NextOffset *int `json:"next_offset,omitempty"`
}

func NewPage(data any, total int, p Params) *Page {
	pg := &Page{Data: data, Total: total, Limit: p.Limit, Offset: p.Offset}
	if p.Offset+p.Limit < total {
		next := p.Offset + p.Limit
		pg.HasMore = true
		pg.NextOffset = &next
	}
	return pg
}

// Write answers 200 with the page and a Link header pointing at the
// neighbouring pages. Other query parameters, such as filters, are kept.
func Write(c echo.Context, data any, total int, p Params) error {
	if link := p.links(c.Request(), total); link != "" {
		c.Response().Header().Set("Link", link)
	}
	return c.JSON(http.StatusOK, NewPage(data, total, p))
}

func (p Params) links(r *http.Request, total int) string {
	var links []string
	if p.Offset+p.Limit < total {
		links = append(links, fmt.Sprintf(`<%s>; rel="next"`, pageURL(r, p.Offset+p.Limit, p.Limit)))
	}
	if p.Offset > 0 {
		links = append(links, fmt.Sprintf(`<%s>; rel="prev"`, pageURL(r, max(p.Offset-p.Limit, 0), p.Limit)))
	}
	return strings.Join(links, ", ")
}

func pageURL(r *http.Request, offset, limit int) string {
	q := r.URL.Query()
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	return r.URL.Path + "?" + q.Encode()
}
