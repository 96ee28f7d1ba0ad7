package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/greenloop/esgpilot/internal/esg"
	"github.com/greenloop/esgpilot/internal/intent"
)

// ToolName identifies one capability in the closed registry.
type ToolName string

const (
	ToolFetchMetrics   ToolName = "fetch_metrics"
	ToolAnalyzeTrends  ToolName = "analyze_trends"
	ToolFindGaps       ToolName = "find_gaps"
	ToolGenerateReport ToolName = "generate_report"
)

// ToolErrorKind classifies tool failures.
type ToolErrorKind string

const (
	// ErrKindInsufficientData means the entity lacks the data points the
	// tool needs (e.g. trend analysis over a single year).
	ErrKindInsufficientData ToolErrorKind = "insufficient_data"

	// ErrKindCollaboratorFailure means the data collaborator itself failed.
	ErrKindCollaboratorFailure ToolErrorKind = "collaborator_failure"
)

// ToolError is a typed tool failure. It is recorded in the agent's tool
// outputs and never aborts the turn.
type ToolError struct {
	Tool ToolName
	Kind ToolErrorKind
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %s: %v", e.Tool, e.Kind, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// ToolRequest carries the parameters a tool invocation needs.
type ToolRequest struct {
	EntityID   string
	Category   string
	Period     string
	ReportType string
}

// MetricsOutput is the fetch_metrics payload.
type MetricsOutput struct {
	Snapshot          *esg.MetricsSnapshot `json:"snapshot"`
	RequestedCategory string               `json:"requested_category,omitempty"`
	RequestedPeriod   string               `json:"requested_period,omitempty"`
}

// TrendsOutput is the analyze_trends payload.
type TrendsOutput struct {
	Summary           *esg.TrendSummary `json:"summary"`
	RequestedCategory string            `json:"requested_category,omitempty"`
	RequestedPeriod   string            `json:"requested_period,omitempty"`
}

// GapsOutput is the find_gaps payload.
type GapsOutput struct {
	Gaps *esg.GapReport `json:"gaps"`
}

// ReportOutput is the generate_report payload. The report record is the
// only tool side effect.
type ReportOutput struct {
	ReportID   uuid.UUID `json:"report_id"`
	ReportType string    `json:"report_type"`
}

// ReportAssembler builds and persists a narrative report. Implemented
// by report.Assembler.
type ReportAssembler interface {
	Assemble(ctx context.Context, entityID, reportType string) (uuid.UUID, error)
}

type toolFunc func(ctx context.Context, req ToolRequest) (any, *ToolError)

// Registry is the closed lookup table of tools, built once at startup.
type Registry struct {
	tools map[ToolName]toolFunc
}

// NewRegistry wires the four tools over the data service and report
// assembler.
func NewRegistry(data esg.DataService, reports ReportAssembler) *Registry {
	r := &Registry{tools: make(map[ToolName]toolFunc, 4)}

	r.tools[ToolFetchMetrics] = func(ctx context.Context, req ToolRequest) (any, *ToolError) {
		snapshot, err := data.MetricsSnapshot(ctx, req.EntityID)
		if err != nil {
			return nil, classify(ToolFetchMetrics, err)
		}
		return &MetricsOutput{
			Snapshot:          snapshot,
			RequestedCategory: req.Category,
			RequestedPeriod:   req.Period,
		}, nil
	}

	r.tools[ToolAnalyzeTrends] = func(ctx context.Context, req ToolRequest) (any, *ToolError) {
		summary, err := data.TrendSummary(ctx, req.EntityID)
		if err != nil {
			return nil, classify(ToolAnalyzeTrends, err)
		}
		return &TrendsOutput{
			Summary:           summary,
			RequestedCategory: req.Category,
			RequestedPeriod:   req.Period,
		}, nil
	}

	r.tools[ToolFindGaps] = func(ctx context.Context, req ToolRequest) (any, *ToolError) {
		gaps, err := data.GapReport(ctx, req.EntityID)
		if err != nil {
			return nil, classify(ToolFindGaps, err)
		}
		return &GapsOutput{Gaps: gaps}, nil
	}

	r.tools[ToolGenerateReport] = func(ctx context.Context, req ToolRequest) (any, *ToolError) {
		reportType := req.ReportType
		if reportType == "" {
			reportType = "comprehensive"
		}
		id, err := reports.Assemble(ctx, req.EntityID, reportType)
		if err != nil {
			return nil, classify(ToolGenerateReport, err)
		}
		return &ReportOutput{ReportID: id, ReportType: reportType}, nil
	}

	return r
}

// Invoke runs one named tool. Unknown names are a collaborator failure
// so a bad mapping surfaces in tool outputs instead of panicking.
func (r *Registry) Invoke(ctx context.Context, name ToolName, req ToolRequest) (any, *ToolError) {
	fn, ok := r.tools[name]
	if !ok {
		return nil, &ToolError{
			Tool: name,
			Kind: ErrKindCollaboratorFailure,
			Err:  fmt.Errorf("unknown tool %q", name),
		}
	}
	return fn(ctx, req)
}

// toolsByIntent is the closed intent-to-tools table. Benchmarking reuses
// fetch_metrics; comparison semantics live in the response generator.
var toolsByIntent = map[intent.Intent][]ToolName{
	intent.DataQuery:        {ToolFetchMetrics},
	intent.AnalysisRequest:  {ToolAnalyzeTrends, ToolFindGaps},
	intent.ReportGeneration: {ToolGenerateReport},
	intent.Benchmarking:     {ToolFetchMetrics},
	intent.GeneralQuery:     nil,
}

// ToolsFor returns the tools to run for an intent, in order.
func ToolsFor(i intent.Intent) []ToolName {
	return toolsByIntent[i]
}

func classify(tool ToolName, err error) *ToolError {
	kind := ErrKindCollaboratorFailure
	if errors.Is(err, esg.ErrInsufficientData) {
		kind = ErrKindInsufficientData
	}
	return &ToolError{Tool: tool, Kind: kind, Err: err}
}
