package facility

import "context"

type contextKey string

const currentKey contextKey = "current_facility"

// WithCurrent stores the facility selected for the request's session.
func WithCurrent(ctx context.Context, f *Facility) context.Context {
	return context.WithValue(ctx, currentKey, f)
}

// CurrentFromContext returns the request's facility, or nil when none has
// been resolved.
func CurrentFromContext(ctx context.Context) *Facility {
	f, _ := ctx.Value(currentKey).(*Facility)
	return f
}
