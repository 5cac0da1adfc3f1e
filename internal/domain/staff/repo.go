package staff

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Actor) error
	GetByID(ctx context.Context, id uuid.UUID) (*Actor, error)
	GetByEmail(ctx context.Context, email string) (*Actor, error)
	// Update writes every field except the credential hash.
	Update(ctx context.Context, a *Actor) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	List(ctx context.Context, limit, offset int, activeOnly bool) ([]*Actor, int, error)
}
