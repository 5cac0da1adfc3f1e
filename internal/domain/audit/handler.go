package audit

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/middleware"
	"github.com/AminoVic23/PHC-4/pkg/pagination"
)

// exportCap bounds the rows a single CSV export may contain.
const exportCap = 50000

var listWindow = pagination.Window{Def: DefaultLimit, Max: MaxLimit}

type Handler struct {
	svc    *Service
	logger zerolog.Logger
}

func NewHandler(svc *Service, logger zerolog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger.With().Str("component", "audit_export").Logger()}
}

// RegisterRoutes mounts the query endpoints on read and the CSV export on
// export. The caller attaches the authorization guards to each group.
func (h *Handler) RegisterRoutes(read *echo.Group, export *echo.Group) {
	read.GET("/audit-logs", h.List)
	read.GET("/audit-logs/stats", h.Stats)
	read.GET("/audit-logs/:id", h.Get)
	export.GET("/audit-logs/export", h.Export)
}

func (h *Handler) List(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	pg, err := listWindow.Parse(c)
	if err != nil {
		return err
	}
	f.Limit, f.Offset = pg.Limit, pg.Offset

	entries, total, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return apperr.HTTP(err)
	}
	return pagination.Write(c, entries, total, pg)
}

func (h *Handler) Get(c echo.Context) error {
	e, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) Stats(c echo.Context) error {
	since := time.Now().UTC().Add(-30 * 24 * time.Hour)
	if v := c.QueryParam("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "since must be RFC 3339")
		}
		since = t
	}
	st, err := h.svc.Stats(c.Request().Context(), since)
	if err != nil {
		return apperr.HTTP(err)
	}
	return c.JSON(http.StatusOK, st)
}

var exportHeader = []string{
	"id", "timestamp", "actor_id", "action", "entity_type", "entity_id",
	"changed_keys", "ip", "user_agent", "session_id", "request_id", "note",
}

// Export streams the filtered audit log as CSV, newest first. The window is
// closed at the moment the export starts, so entries appended meanwhile do
// not shift the pages. A store failure after the first page aborts the
// connection rather than ending the file cleanly.
func (h *Handler) Export(c echo.Context) error {
	f, err := filterFromQuery(c)
	if err != nil {
		return apperr.HTTP(err)
	}
	ctx := c.Request().Context()

	started := time.Now().UTC()
	if f.Until == nil || f.Until.After(started) {
		f.Until = &started
	}

	// Fetch the first page before writing headers so store errors still
	// produce a JSON error response.
	f.Limit, f.Offset = MaxLimit, 0
	page, total, err := h.svc.List(ctx, f)
	if err != nil {
		return apperr.HTTP(err)
	}

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="audit-%s.csv"`, started.Format("20060102T150405Z")))
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	written := 0
	for len(page) > 0 && written < exportCap {
		for _, e := range page {
			if err := w.Write(exportRow(e)); err != nil {
				return err
			}
			written++
		}
		if f.Offset+len(page) >= total {
			break
		}
		f.Offset += len(page)
		if page, _, err = h.svc.List(ctx, f); err != nil {
			h.logger.Error().Err(err).
				Int("rows_written", written).
				Int("rows_expected", min(total, exportCap)).
				Str("request_id", middleware.RequestIDFromContext(ctx)).
				Msg("audit export aborted")
			// Headers are sent; dropping the connection is the only way to
			// tell the client the file is incomplete.
			panic(http.ErrAbortHandler)
		}
	}
	w.Flush()
	return w.Error()
}

func exportRow(e *Entry) []string {
	return []string{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.ActorID.String(),
		csvCell(e.Action),
		csvCell(e.EntityType),
		csvCell(e.EntityID),
		csvCell(strings.Join(e.ChangedKeys, ";")),
		csvCell(e.IP),
		csvCell(e.UserAgent),
		csvCell(e.SessionID),
		csvCell(e.RequestID),
		csvCell(e.Note),
	}
}

// csvCell quotes values a spreadsheet would evaluate as a formula.
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func filterFromQuery(c echo.Context) (Filter, error) {
	var f Filter
	if v := c.QueryParam("actor_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperr.Invalid("invalid actor_id")
		}
		f.ActorID = &id
	}
	f.EntityType = c.QueryParam("entity_type")
	f.EntityID = c.QueryParam("entity_id")
	f.Action = c.QueryParam("action")
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"since", &f.Since}, {"until", &f.Until}} {
		v := c.QueryParam(p.name)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, apperr.Invalid(p.name + " must be RFC 3339")
		}
		*p.dst = &t
	}
	if v := c.QueryParam("with_changes"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, apperr.Invalid("invalid with_changes")
		}
		f.WithChangesOnly = b
	}
	return f, nil
}
