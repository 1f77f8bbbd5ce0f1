package onboarding

import (
	"context"
	"sync"
)

// Store persists sessions. Get and FindCurrentByOwner return
// ErrSessionNotFound when nothing matches.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	// Save writes s only if the stored version still equals s.Version (or
	// the session is new), then increments s.Version. A mismatch returns
	// ErrVersionConflict and leaves s untouched.
	Save(ctx context.Context, s *Session) error
	// FindCurrentByOwner returns the owner's most recent session whose
	// status is still Current.
	FindCurrentByOwner(ctx context.Context, ownerID string) (*Session, error)
}

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, s *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[s.ID]
	if (ok && current.Version != s.Version) || (!ok && s.Version != 0) {
		return ErrVersionConflict
	}
	s.Version++
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) FindCurrentByOwner(_ context.Context, ownerID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *Session
	for _, s := range m.sessions {
		if s.OwnerID != ownerID || !s.Status.Current() {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, ErrSessionNotFound
	}
	return latest.Clone(), nil
}
