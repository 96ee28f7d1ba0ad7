package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/greenloop/esgpilot/internal/app"
	"github.com/greenloop/esgpilot/internal/config"
	"github.com/greenloop/esgpilot/internal/intent"
	"github.com/greenloop/esgpilot/internal/stream"
)

var (
	askEntity  string
	askSession string
	askIntent  string
	askPeriod  string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a one-shot question",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askEntity, "entity", "", "Entity ID to answer about")
	askCmd.Flags().StringVar(&askSession, "session", "", "Existing session ID to continue")
	askCmd.Flags().StringVar(&askIntent, "intent", "", "Force an intent instead of classifying the question")
	askCmd.Flags().StringVar(&askPeriod, "period", "", "Reporting period, e.g. 2024")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Please run:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		return fmt.Errorf("GEMINI_API_KEY not set")
	}

	a, err := app.Setup(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "shutdown error: %v\n", closeErr)
		}
	}()

	sessionID, err := resolveSession(ctx, a)
	if err != nil {
		return err
	}

	question := strings.Join(args, " ")

	result, err := a.Engine.ProcessMessage(ctx, sessionID, question, intent.Filters{
		SelectedIntent: askIntent,
		EntityID:       askEntity,
		Period:         askPeriod,
	})
	if err != nil {
		return fmt.Errorf("processing message: %w", err)
	}

	if err := stream.Each(ctx, result.Response, func(c rune) error {
		_, werr := fmt.Print(string(c))
		return werr
	}); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	fmt.Println()

	if result.ReportID != uuid.Nil {
		fmt.Printf("\nReport saved: %s\n", result.ReportID)
	}

	return nil
}

// resolveSession reuses the session given by --session or creates a
// fresh one for this question.
func resolveSession(ctx context.Context, a *app.App) (uuid.UUID, error) {
	if askSession != "" {
		id, err := uuid.Parse(askSession)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session ID: %s", askSession)
		}
		return id, nil
	}

	sess, err := a.SessionStore.CreateSession(ctx, "cli", askEntity)
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating session: %w", err)
	}
	return sess.ID, nil
}
