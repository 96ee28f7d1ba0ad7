package esg

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrEntityNotFound indicates the requested entity does not exist.
	ErrEntityNotFound = errors.New("entity not found")

	// ErrInsufficientData indicates a computation needs more data points
	// than the entity has (e.g. trend analysis over a single year).
	ErrInsufficientData = errors.New("insufficient data")
)

// DataService is the read/write boundary the workflow engine and report
// assembler depend on. The production implementation is the PostgreSQL
// Store; tests substitute fakes.
type DataService interface {
	// EntityInfo returns entity metadata, or ErrEntityNotFound.
	EntityInfo(ctx context.Context, entityID string) (*Entity, error)

	// Availability probes whether any social or environmental data exists.
	Availability(ctx context.Context, entityID string) (*Availability, error)

	// MetricsSnapshot returns the full structured ESG state of an entity.
	MetricsSnapshot(ctx context.Context, entityID string) (*MetricsSnapshot, error)

	// TrendSummary analyzes the environmental time series. Returns
	// ErrInsufficientData when fewer than two yearly records exist.
	TrendSummary(ctx context.Context, entityID string) (*TrendSummary, error)

	// GapReport identifies missing categories and thin data areas.
	GapReport(ctx context.Context, entityID string) (*GapReport, error)

	// SaveReport persists a generated report and returns its identifier.
	// This is the only write operation on the boundary.
	SaveReport(ctx context.Context, report *Report) (uuid.UUID, error)
}
