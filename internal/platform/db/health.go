package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// Check is a dependency probed by the health endpoint, such as the session
// store.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type poolStats struct {
	Total    int32 `json:"total"`
	Idle     int32 `json:"idle"`
	Acquired int32 `json:"acquired"`
	Max      int32 `json:"max"`
}

// Report is the body of the health endpoint. Failures name the dependencies
// that did not answer; driver errors are not exposed because the route is
// public.
type Report struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
	Pool     *poolStats        `json:"pool,omitempty"`
}

// RunChecks pings each dependency and returns a report. It is healthy only
// when every check answered.
func RunChecks(ctx context.Context, checks []Check) Report {
	r := Report{Status: "healthy"}
	for _, chk := range checks {
		if err := chk.Ping(ctx); err != nil {
			if r.Failures == nil {
				r.Failures = make(map[string]string)
			}
			r.Failures[chk.Name] = "unavailable"
		}
	}
	if len(r.Failures) > 0 {
		r.Status = "unhealthy"
	}
	return r
}

// HealthHandler probes the database and the extra checks within five seconds
// and answers 503 when any of them fails.
func HealthHandler(pool *pgxpool.Pool, checks ...Check) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		r := RunChecks(ctx, append([]Check{{Name: "database", Ping: pool.Ping}}, checks...))
		st := pool.Stat()
		r.Pool = &poolStats{
			Total:    st.TotalConns(),
			Idle:     st.IdleConns(),
			Acquired: st.AcquiredConns(),
			Max:      st.MaxConns(),
		}
		if r.Status != "healthy" {
			return c.JSON(http.StatusServiceUnavailable, r)
		}
		return c.JSON(http.StatusOK, r)
	}
}
