package pagination

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	return e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec), rec
}

func TestWindow_Parse(t *testing.T) {
	audit := Window{Def: 100, Max: 1000}
	tests := []struct {
		name   string
		window Window
		query  string
		want   Params
	}{
		{"defaults", Default, "/", Params{Limit: 20}},
		{"explicit", Default, "/?limit=50&offset=10", Params{Limit: 50, Offset: 10}},
		{"clamped", Default, "/?limit=500", Params{Limit: 100}},
		{"wide window default", audit, "/", Params{Limit: 100}},
		{"wide window clamp", audit, "/?limit=5000&offset=3", Params{Limit: 1000, Offset: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.query)
			got, err := tt.window.Parse(c)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestWindow_ParseRejectsMalformed(t *testing.T) {
	for _, q := range []string{"/?limit=abc", "/?limit=0", "/?limit=-1", "/?offset=-5", "/?offset=x"} {
		c, _ := newContext(q)
		_, err := Default.Parse(c)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %v", q, err)
		}
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage([]string{"a", "b"}, 5, Params{Limit: 2, Offset: 2})
	if !p.HasMore || p.NextOffset == nil || *p.NextOffset != 4 {
		t.Errorf("expected next offset 4, got %+v", p)
	}

	last := NewPage([]string{"e"}, 5, Params{Limit: 2, Offset: 4})
	if last.HasMore || last.NextOffset != nil {
		t.Errorf("last page should not point further, got %+v", last)
	}
}

func TestWrite_LinkHeaderKeepsFilters(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		total  int
		want   string
	}{
		{"first page", Params{Limit: 10}, 25,
			`</api/v1/audit-logs?action=login&limit=10&offset=10>; rel="next"`},
		{"middle page", Params{Limit: 10, Offset: 10}, 25,
			`</api/v1/audit-logs?action=login&limit=10&offset=20>; rel="next", </api/v1/audit-logs?action=login&limit=10&offset=0>; rel="prev"`},
		{"last page", Params{Limit: 10, Offset: 20}, 25,
			`</api/v1/audit-logs?action=login&limit=10&offset=10>; rel="prev"`},
		{"short prev clamps to zero", Params{Limit: 10, Offset: 5}, 8,
			`</api/v1/audit-logs?action=login&limit=10&offset=0>; rel="prev"`},
		{"single page", Params{Limit: 10}, 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, rec := newContext("/api/v1/audit-logs?action=login")
			if err := Write(c, []int{}, tt.total, tt.params); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := rec.Header().Get("Link"); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrite_Body(t *testing.T) {
	c, rec := newContext("/api/v1/staff")
	if err := Write(c, []string{"x"}, 1, Params{Limit: 20}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Data    []string `json:"data"`
		Total   int      `json:"total"`
		HasMore bool     `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Total != 1 || body.HasMore || len(body.Data) != 1 {
		t.Errorf("unexpected body %+v", body)
	}
}
