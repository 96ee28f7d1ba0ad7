// Package session manages conversation persistence.
//
// A session is an append-only log of turns. Turns carry monotonically
// increasing sequence numbers assigned at insert time; a user/assistant
// pair is always appended in one transaction so a crash never leaves a
// question without its answer or vice versa.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrSessionNotFound indicates the session does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a turn role outside the allowed set.
	ErrInvalidRole = errors.New("invalid turn role")
)

// Session is one conversation thread, optionally scoped to an entity.
type Session struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	EntityID  string    `json:"entity_id,omitempty"`
	TurnCount int       `json:"turn_count"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Turn is one message in a session's append-only log.
type Turn struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	SequenceNumber int       `json:"sequence_number"`
	CreatedAt      time.Time `json:"created_at"`
}

// Store is the persistence boundary for conversations. The production
// implementation is the PostgreSQL PGStore; MemoryStore backs tests and
// ephemeral runs.
type Store interface {
	// CreateSession creates a new conversation session.
	CreateSession(ctx context.Context, title, entityID string) (*Session, error)

	// GetSession retrieves a session, or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error)

	// ListSessions lists sessions ordered by updated_at descending.
	ListSessions(ctx context.Context, limit, offset int32) ([]*Session, error)

	// DeleteSession deletes a session and all its turns.
	DeleteSession(ctx context.Context, sessionID uuid.UUID) error

	// AppendTurns atomically appends turns with consecutive sequence
	// numbers. Either all turns land or none do.
	AppendTurns(ctx context.Context, sessionID uuid.UUID, turns []*Turn) error

	// Turns retrieves turns ordered by sequence number ascending.
	Turns(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]*Turn, error)
}

func validateTurns(turns []*Turn) error {
	for _, t := range turns {
		if t.Role != RoleUser && t.Role != RoleAssistant {
			return ErrInvalidRole
		}
	}
	return nil
}
