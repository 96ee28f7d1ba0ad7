package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestMemoryStoreSessionLifecycle(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "quarterly review", "ent-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if sess.ID == uuid.Nil {
		t.Fatal("expected generated session ID")
	}
	if sess.EntityID != "ent-1" {
		t.Errorf("EntityID = %q, want ent-1", sess.EntityID)
	}

	got, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Title != "quarterly review" {
		t.Errorf("Title = %q", got.Title)
	}

	if err := store.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := store.GetSession(ctx, sess.ID); err != ErrSessionNotFound {
		t.Errorf("after delete, err = %v, want ErrSessionNotFound", err)
	}
}

func TestMemoryStoreAppendTurns(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "", "ent-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	pair := []*Turn{
		{Role: RoleUser, Content: "show me the data"},
		{Role: RoleAssistant, Content: "here it is"},
	}
	if err := store.AppendTurns(ctx, sess.ID, pair); err != nil {
		t.Fatalf("AppendTurns: %v", err)
	}

	turns, err := store.Turns(ctx, sess.ID, 100, 0)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("len(turns) = %d, want 2", len(turns))
	}
	if turns[0].SequenceNumber != 1 || turns[1].SequenceNumber != 2 {
		t.Errorf("sequence numbers = %d, %d; want 1, 2",
			turns[0].SequenceNumber, turns[1].SequenceNumber)
	}
	if turns[0].Role != RoleUser || turns[1].Role != RoleAssistant {
		t.Errorf("roles = %q, %q", turns[0].Role, turns[1].Role)
	}

	updated, err := store.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if updated.TurnCount != 2 {
		t.Errorf("TurnCount = %d, want 2", updated.TurnCount)
	}
}

func TestMemoryStoreAppendTurnsValidation(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	sess, _ := store.CreateSession(ctx, "", "")

	err := store.AppendTurns(ctx, sess.ID, []*Turn{{Role: "system", Content: "x"}})
	if err != ErrInvalidRole {
		t.Errorf("err = %v, want ErrInvalidRole", err)
	}

	err = store.AppendTurns(ctx, uuid.New(), []*Turn{{Role: RoleUser, Content: "x"}})
	if err != ErrSessionNotFound {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}

	if err := store.AppendTurns(ctx, sess.ID, nil); err != nil {
		t.Errorf("empty append should be a no-op, got %v", err)
	}
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "", "ent-1")
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	const writers = 10
	var wg sync.WaitGroup
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.AppendTurns(ctx, sess.ID, []*Turn{
				{Role: RoleUser, Content: fmt.Sprintf("question %d", i)},
				{Role: RoleAssistant, Content: fmt.Sprintf("answer %d", i)},
			})
		}()
	}
	wg.Wait()

	turns, err := store.Turns(ctx, sess.ID, 100, 0)
	if err != nil {
		t.Fatalf("Turns: %v", err)
	}
	if len(turns) != writers*2 {
		t.Fatalf("len(turns) = %d, want %d", len(turns), writers*2)
	}
	for i, turn := range turns {
		if turn.SequenceNumber != i+1 {
			t.Fatalf("turn %d has sequence %d, want %d", i, turn.SequenceNumber, i+1)
		}
	}
}

func TestMemoryStoreListSessions(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	ctx := context.Background()

	for i := range 3 {
		if _, err := store.CreateSession(ctx, fmt.Sprintf("s%d", i), ""); err != nil {
			t.Fatalf("CreateSession: %v", err)
		}
	}

	all, err := store.ListSessions(ctx, 10, 0)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len = %d, want 3", len(all))
	}

	page, err := store.ListSessions(ctx, 2, 2)
	if err != nil {
		t.Fatalf("ListSessions paged: %v", err)
	}
	if len(page) != 1 {
		t.Errorf("paged len = %d, want 1", len(page))
	}
}
