package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/esgpilot/internal/log"
)

// PGStore manages session persistence with a PostgreSQL backend.
//
// PGStore is safe for concurrent use by multiple goroutines. Appends to
// the same session serialize on a row lock; appends to distinct sessions
// proceed in parallel.
type PGStore struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewPGStore creates a new PGStore instance.
func NewPGStore(pool *pgxpool.Pool, logger log.Logger) *PGStore {
	if logger == nil {
		logger = log.NewNop()
	}
	return &PGStore{pool: pool, logger: logger}
}

var _ Store = (*PGStore)(nil)

// CreateSession creates a new conversation session.
func (s *PGStore) CreateSession(ctx context.Context, title, entityID string) (*Session, error) {
	const q = `INSERT INTO sessions (title, entity_id)
		VALUES ($1, $2)
		RETURNING id, title, entity_id, turn_count, created_at, updated_at`

	var sess Session
	err := s.pool.QueryRow(ctx, q, title, entityID).Scan(
		&sess.ID, &sess.Title, &sess.EntityID, &sess.TurnCount, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Debug("created session", "id", sess.ID, "entity_id", entityID)
	return &sess, nil
}

// GetSession retrieves a session by ID.
func (s *PGStore) GetSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	const q = `SELECT id, title, entity_id, turn_count, created_at, updated_at
		FROM sessions WHERE id = $1`

	var sess Session
	err := s.pool.QueryRow(ctx, q, sessionID).Scan(
		&sess.ID, &sess.Title, &sess.EntityID, &sess.TurnCount, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return nil, fmt.Errorf("getting session %s: %w", sessionID, err)
	}
	return &sess, nil
}

// ListSessions lists sessions ordered by updated_at descending.
func (s *PGStore) ListSessions(ctx context.Context, limit, offset int32) ([]*Session, error) {
	const q = `SELECT id, title, entity_id, turn_count, created_at, updated_at
		FROM sessions ORDER BY updated_at DESC LIMIT $1 OFFSET $2`

	rows, err := s.pool.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.Title, &sess.EntityID, &sess.TurnCount,
			&sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}

	s.logger.Debug("listed sessions", "count", len(sessions), "limit", limit, "offset", offset)
	return sessions, nil
}

// DeleteSession deletes a session and all its turns (CASCADE).
func (s *PGStore) DeleteSession(ctx context.Context, sessionID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	s.logger.Debug("deleted session", "id", sessionID)
	return nil
}

// AppendTurns atomically appends turns with consecutive sequence numbers.
//
// The session row is locked with SELECT ... FOR UPDATE so that only one
// transaction at a time assigns sequence numbers for a given session.
func (s *PGStore) AppendTurns(ctx context.Context, sessionID uuid.UUID, turns []*Turn) error {
	if len(turns) == 0 {
		return nil
	}
	if err := validateTurns(turns); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
		}
		return fmt.Errorf("locking session %s: %w", sessionID, err)
	}

	var maxSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(max(sequence_number), 0) FROM turns WHERE session_id = $1`,
		sessionID).Scan(&maxSeq)
	if err != nil {
		return fmt.Errorf("reading max sequence number: %w", err)
	}

	const insert = `INSERT INTO turns (session_id, role, content, sequence_number)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	for i, t := range turns {
		seq := maxSeq + i + 1
		if err := tx.QueryRow(ctx, insert, sessionID, t.Role, t.Content, seq).
			Scan(&t.ID, &t.CreatedAt); err != nil {
			return fmt.Errorf("inserting turn %d: %w", i, err)
		}
		t.SessionID = sessionID
		t.SequenceNumber = seq
	}

	_, err = tx.Exec(ctx,
		`UPDATE sessions SET turn_count = $1, updated_at = now() WHERE id = $2`,
		maxSeq+len(turns), sessionID)
	if err != nil {
		return fmt.Errorf("updating session metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("appended turns", "session_id", sessionID, "count", len(turns))
	return nil
}

// Turns retrieves turns ordered by sequence number ascending.
func (s *PGStore) Turns(ctx context.Context, sessionID uuid.UUID, limit, offset int32) ([]*Turn, error) {
	const q = `SELECT id, session_id, role, content, sequence_number, created_at
		FROM turns WHERE session_id = $1
		ORDER BY sequence_number ASC LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, q, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("getting turns for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var turns []*Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Role, &t.Content,
			&t.SequenceNumber, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		turns = append(turns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}

	s.logger.Debug("retrieved turns", "session_id", sessionID, "count", len(turns))
	return turns, nil
}
