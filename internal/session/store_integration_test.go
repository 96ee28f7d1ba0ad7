//go:build integration

package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenloop/esgpilot/internal/testutil"
)

func TestPGStore_CreateAndGet_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := NewPGStore(db.Pool, nil)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "Quarterly Review", "ent-001")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, "Quarterly Review", sess.Title)
	assert.Equal(t, "ent-001", sess.EntityID)
	assert.Zero(t, sess.TurnCount)

	retrieved, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, retrieved.ID)
	assert.Equal(t, sess.Title, retrieved.Title)
}

func TestPGStore_GetMissing_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := NewPGStore(db.Pool, nil)

	_, err := store.GetSession(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPGStore_AppendTurns_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := NewPGStore(db.Pool, nil)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "", "ent-001")
	require.NoError(t, err)

	err = store.AppendTurns(ctx, sess.ID, []*Turn{
		{Role: RoleUser, Content: "show me the data"},
		{Role: RoleAssistant, Content: "here it is"},
	})
	require.NoError(t, err)

	turns, err := store.Turns(ctx, sess.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, 1, turns[0].SequenceNumber)
	assert.Equal(t, 2, turns[1].SequenceNumber)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, RoleAssistant, turns[1].Role)

	updated, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.TurnCount)
}

func TestPGStore_AppendTurns_MissingSession_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := NewPGStore(db.Pool, nil)

	err := store.AppendTurns(context.Background(), uuid.New(),
		[]*Turn{{Role: RoleUser, Content: "hello"}})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPGStore_ConcurrentAppends_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := NewPGStore(db.Pool, nil)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "", "ent-001")
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- store.AppendTurns(ctx, sess.ID, []*Turn{
				{Role: RoleUser, Content: fmt.Sprintf("question %d", n)},
				{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", n)},
			})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	turns, err := store.Turns(ctx, sess.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, turns, writers*2)
	for i, turn := range turns {
		assert.Equal(t, i+1, turn.SequenceNumber)
	}
}

func TestPGStore_DeleteCascades_Integration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := NewPGStore(db.Pool, nil)
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "", "")
	require.NoError(t, err)
	require.NoError(t, store.AppendTurns(ctx, sess.ID,
		[]*Turn{{Role: RoleUser, Content: "hi"}}))

	require.NoError(t, store.DeleteSession(ctx, sess.ID))

	_, err = store.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	var count int
	err = db.Pool.QueryRow(ctx,
		"SELECT count(*) FROM turns WHERE session_id = $1", sess.ID).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}
