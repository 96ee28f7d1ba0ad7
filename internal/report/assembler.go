// Package report assembles narrative ESG reports.
//
// Assembly is snapshot -> concurrent enrichment -> persisted report
// record. The stored content is the merged enrichment document: raw
// metrics with the model narrative layered on, never replacing them.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/greenloop/esgpilot/internal/esg"
	"github.com/greenloop/esgpilot/internal/log"
)

// Enricher produces the merged enrichment document for a snapshot.
// Satisfied by enrich.Coordinator.
type Enricher interface {
	Enrich(ctx context.Context, snapshot *esg.MetricsSnapshot) ([]byte, error)
}

// Assembler builds and persists reports.
type Assembler struct {
	data     esg.DataService
	enricher Enricher
	logger   log.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(data esg.DataService, enricher Enricher, logger log.Logger) *Assembler {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Assembler{data: data, enricher: enricher, logger: logger}
}

// Assemble builds a report for the entity and returns the persisted
// report's identifier.
func (a *Assembler) Assemble(ctx context.Context, entityID, reportType string) (uuid.UUID, error) {
	snapshot, err := a.data.MetricsSnapshot(ctx, entityID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading metrics for report: %w", err)
	}

	content, err := a.enricher.Enrich(ctx, snapshot)
	if err != nil {
		return uuid.Nil, fmt.Errorf("enriching report sections: %w", err)
	}

	rpt := &esg.Report{
		EntityID:    entityID,
		Title:       fmt.Sprintf("%s ESG Report %d", snapshot.Entity.Name, time.Now().Year()),
		ReportType:  reportType,
		Format:      "json",
		Content:     content,
		GeneratedBy: "chatbot",
	}

	id, err := a.data.SaveReport(ctx, rpt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving report: %w", err)
	}

	a.logger.Info("assembled report",
		"report_id", id, "entity_id", entityID, "type", reportType)
	return id, nil
}
