package session

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and ephemeral runs.
//
// MemoryStore is safe for concurrent use by multiple goroutines.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	turns    map[uuid.UUID][]*Turn
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[uuid.UUID]*Session),
		turns:    make(map[uuid.UUID][]*Turn),
	}
}

var _ Store = (*MemoryStore)(nil)

// CreateSession creates a new conversation session.
func (m *MemoryStore) CreateSession(_ context.Context, title, entityID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	sess := &Session{
		ID:        uuid.New(),
		Title:     title,
		EntityID:  entityID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.sessions[sess.ID] = sess

	cp := *sess
	return &cp, nil
}

// GetSession retrieves a session by ID.
func (m *MemoryStore) GetSession(_ context.Context, sessionID uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

// ListSessions lists sessions ordered by updated_at descending.
func (m *MemoryStore) ListSessions(_ context.Context, limit, offset int32) ([]*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		cp := *sess
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].UpdatedAt.After(all[j].UpdatedAt) })

	start := int(offset)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(limit)
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

// DeleteSession deletes a session and its turns.
func (m *MemoryStore) DeleteSession(_ context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	delete(m.turns, sessionID)
	return nil
}

// AppendTurns atomically appends turns with consecutive sequence numbers.
func (m *MemoryStore) AppendTurns(_ context.Context, sessionID uuid.UUID, turns []*Turn) error {
	if len(turns) == 0 {
		return nil
	}
	if err := validateTurns(turns); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	seq := len(m.turns[sessionID])
	now := time.Now().UTC()
	for i, t := range turns {
		t.ID = uuid.New()
		t.SessionID = sessionID
		t.SequenceNumber = seq + i + 1
		t.CreatedAt = now

		cp := *t
		m.turns[sessionID] = append(m.turns[sessionID], &cp)
	}

	sess.TurnCount = seq + len(turns)
	sess.UpdatedAt = now
	return nil
}

// Turns retrieves turns ordered by sequence number ascending.
func (m *MemoryStore) Turns(_ context.Context, sessionID uuid.UUID, limit, offset int32) ([]*Turn, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.turns[sessionID]
	start := int(offset)
	if start > len(all) {
		start = len(all)
	}
	end := start + int(limit)
	if end > len(all) {
		end = len(all)
	}

	out := make([]*Turn, 0, end-start)
	for _, t := range all[start:end] {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}
