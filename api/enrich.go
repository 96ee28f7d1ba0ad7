package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/greenloop/esgpilot/internal/esg"
	"github.com/greenloop/esgpilot/internal/log"
)

// Enricher produces the merged enrichment document for raw metrics.
// Satisfied by enrich.Coordinator.
type Enricher interface {
	Enrich(ctx context.Context, snapshot *esg.MetricsSnapshot) ([]byte, error)
}

// enrichHandler exposes section enrichment to report assembly callers
// outside the chat turn.
type enrichHandler struct {
	enricher Enricher
	logger   log.Logger
}

func (h *enrichHandler) enrich(w http.ResponseWriter, r *http.Request) {
	var snapshot esg.MetricsSnapshot
	if err := json.NewDecoder(r.Body).Decode(&snapshot); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed metrics payload")
		return
	}

	doc, err := h.enricher.Enrich(r.Context(), &snapshot)
	if err != nil {
		h.logger.Error("enrichment failed", "entity_id", snapshot.Entity.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "enrich_failed", "could not enrich metrics")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		h.logger.Debug("failed to write enrichment response", "error", err)
	}
}
