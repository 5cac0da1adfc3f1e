package audit

import (
	"context"
	"time"
)

// Repository is append-only: there is no update or delete.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, f Filter) ([]*Entry, int, error)
	CountByAction(ctx context.Context, since time.Time) ([]ActionCount, error)
}
