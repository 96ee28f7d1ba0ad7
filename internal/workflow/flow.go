package workflow

import (
	"context"

	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/greenloop/esgpilot/internal/intent"
	"github.com/greenloop/esgpilot/internal/stream"
)

// ChatInput is the flow-facing request for one turn.
type ChatInput struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Filters   intent.Filters `json:"filters,omitempty"`
}

// DefineChatFlow registers the streaming chat flow. The engine computes
// and persists the full turn first; the callback then receives the text
// one character at a time.
func DefineChatFlow(g *genkit.Genkit, engine *Engine) *core.Flow[ChatInput, string, string] {
	return genkit.DefineStreamingFlow(g, "chat",
		func(ctx context.Context, input ChatInput, callback core.StreamCallback[string]) (string, error) {
			sessionID, err := uuid.Parse(input.SessionID)
			if err != nil {
				return "", err
			}

			result, err := engine.ProcessMessage(ctx, sessionID, input.Message, input.Filters)
			if err != nil {
				return "", err
			}

			if callback != nil {
				err := stream.Each(ctx, result.Response, func(r rune) error {
					return callback(ctx, string(r))
				})
				if err != nil {
					return "", err
				}
			}
			return result.Response, nil
		})
}
