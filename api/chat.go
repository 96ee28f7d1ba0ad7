package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/greenloop/esgpilot/internal/intent"
	"github.com/greenloop/esgpilot/internal/log"
	"github.com/greenloop/esgpilot/internal/stream"
	"github.com/greenloop/esgpilot/internal/workflow"
)

// TurnProcessor runs one conversational turn. Satisfied by
// workflow.Engine; tests substitute fakes.
type TurnProcessor interface {
	ProcessMessage(ctx context.Context, sessionID uuid.UUID, input string, filters intent.Filters) (*workflow.Result, error)
}

// chatHandler serves the chat surface: one-shot JSON and SSE streaming.
type chatHandler struct {
	engine TurnProcessor
	logger log.Logger
}

type chatRequest struct {
	SessionID string         `json:"session_id"`
	Message   string         `json:"message"`
	Filters   intent.Filters `json:"filters"`
}

func (h *chatHandler) parse(w http.ResponseWriter, r *http.Request) (uuid.UUID, *chatRequest, bool) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return uuid.Nil, nil, false
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return uuid.Nil, nil, false
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid session id")
		return uuid.Nil, nil, false
	}
	return sessionID, &req, true
}

// send processes one turn and returns the full response as JSON.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	sessionID, req, ok := h.parse(w, r)
	if !ok {
		return
	}

	result, err := h.engine.ProcessMessage(r.Context(), sessionID, req.Message, req.Filters)
	if err != nil {
		h.logger.Error("turn failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "turn_failed", "could not process message")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// streamChat processes one turn, then streams the already-persisted
// response text as SSE character events. Client disconnects stop the
// stream; the stored turn is unaffected.
func (h *chatHandler) streamChat(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	sessionID, req, ok := h.parse(w, r)
	if !ok {
		return
	}

	result, err := h.engine.ProcessMessage(r.Context(), sessionID, req.Message, req.Filters)
	if err != nil {
		h.logger.Error("turn failed", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "turn_failed", "could not process message")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	streamErr := stream.Each(r.Context(), result.Response, func(c rune) error {
		return writeEvent(w, flusher, "chunk", map[string]string{"text": string(c)})
	})
	if streamErr != nil {
		h.logger.Debug("stream interrupted", "session_id", sessionID, "error", streamErr)
		return
	}

	_ = writeEvent(w, flusher, "done", map[string]any{
		"session_id": result.SessionID,
		"intent":     result.Intent,
		"report_id":  result.ReportID,
	})
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent(w io.Writer, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
