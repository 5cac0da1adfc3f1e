package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AminoVic23/PHC-4/internal/platform/apperr"
)

// MemoryStore is the single-process store used when no Redis URL is
// configured.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	fc        FacilityContext
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: make(map[string]memoryItem), ttl: ttl, now: time.Now}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*FacilityContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[sessionID]
	if ok && !s.now().Before(item.expiresAt) {
		delete(s.items, sessionID)
		ok = false
	}
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, apperr.ErrNotFound)
	}
	fc := item.fc
	return &fc, nil
}

func (s *MemoryStore) Set(_ context.Context, fc *FacilityContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for id, item := range s.items {
		if !now.Before(item.expiresAt) {
			delete(s.items, id)
		}
	}
	s.items[fc.SessionID] = memoryItem{fc: *fc, expiresAt: now.Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, sessionID)
	return nil
}
