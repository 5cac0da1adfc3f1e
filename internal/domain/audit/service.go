package audit

import (
	"context"
	"time"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
	"github.com/AminoVic23/PHC-4/internal/platform/ids"
)

// Service is the read side of the audit log.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Entry, int, error) {
	f.Normalize()
	if f.Since != nil && f.Until != nil && !f.Until.After(*f.Since) {
		return nil, 0, apperr.Invalid("until must be after since")
	}
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	if !ids.Valid(id) {
		return nil, apperr.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	counts, err := s.repo.CountByAction(ctx, since)
	if err != nil {
		return nil, err
	}
	st := &Stats{Since: since, ByAction: counts}
	for _, c := range counts {
		st.Total += c.Count
	}
	return st, nil
}
