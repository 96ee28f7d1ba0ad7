package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/greenloop/esgpilot/internal/config"
	"github.com/greenloop/esgpilot/internal/database"
	"github.com/greenloop/esgpilot/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage conversation sessions",
}

func init() {
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(cmd.Context(), runSessionsList)
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show the turns of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(cmd.Context(), func(ctx context.Context, store session.Store) error {
				return runSessionsShow(ctx, store, args[0])
			})
		},
	})
	sessionsCmd.AddCommand(&cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session and its turns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSessionStore(cmd.Context(), func(ctx context.Context, store session.Store) error {
				return runSessionsDelete(ctx, store, args[0])
			})
		},
	})
	rootCmd.AddCommand(sessionsCmd)
}

// withSessionStore opens the database pool for the duration of one
// session command. These commands don't need Genkit, so they skip the
// full application setup.
func withSessionStore(ctx context.Context, fn func(context.Context, session.Store) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, session.NewPGStore(pool, nil))
}

func runSessionsList(ctx context.Context, store session.Store) error {
	sessions, err := store.ListSessions(ctx, 100, 0)
	if err != nil {
		return fmt.Errorf("listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions yet.")
		return nil
	}

	for _, s := range sessions {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Printf("%s  %-30s  %2d turns  updated %s\n",
			s.ID, title, s.TurnCount, formatTime(s.UpdatedAt))
	}
	return nil
}

func runSessionsShow(ctx context.Context, store session.Store, rawID string) error {
	sessionID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	sess, err := store.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("getting session: %w", err)
	}

	turns, err := store.Turns(ctx, sessionID, 1000, 0)
	if err != nil {
		return fmt.Errorf("getting turns: %w", err)
	}

	fmt.Printf("Session: %s\n", sess.ID)
	fmt.Printf("Title: %s\n", sess.Title)
	if sess.EntityID != "" {
		fmt.Printf("Entity: %s\n", sess.EntityID)
	}
	fmt.Printf("Created: %s\n", formatTime(sess.CreatedAt))
	fmt.Printf("Turns: %d\n", len(turns))
	fmt.Println()

	for _, turn := range turns {
		role := "You"
		if turn.Role == session.RoleAssistant {
			role = "esgpilot"
		}
		fmt.Printf("%s> %s\n\n", role, turn.Content)
	}
	return nil
}

func runSessionsDelete(ctx context.Context, store session.Store, rawID string) error {
	sessionID, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid session ID: %s", rawID)
	}

	if err := store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}

	fmt.Printf("Session %s deleted\n", sessionID)
	return nil
}

// formatTime formats time in a human-readable format
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
