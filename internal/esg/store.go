package esg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/greenloop/esgpilot/internal/log"
)

// Store is the PostgreSQL implementation of DataService.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a new Store instance.
// A nil logger defaults to slog.Default() via log.Logger semantics.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{pool: pool, logger: logger}
}

var _ DataService = (*Store)(nil)

// EntityInfo returns entity metadata, or ErrEntityNotFound.
func (s *Store) EntityInfo(ctx context.Context, entityID string) (*Entity, error) {
	const q = `SELECT entity_id, name, industry, sector, address
		FROM entities WHERE entity_id = $1`

	var e Entity
	err := s.pool.QueryRow(ctx, q, entityID).Scan(&e.ID, &e.Name, &e.Industry, &e.Sector, &e.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entity %s: %w", entityID, ErrEntityNotFound)
		}
		return nil, fmt.Errorf("querying entity %s: %w", entityID, err)
	}
	return &e, nil
}

// Availability probes whether any social or environmental data exists.
func (s *Store) Availability(ctx context.Context, entityID string) (*Availability, error) {
	const q = `SELECT
		(SELECT count(*) FROM employees WHERE entity_id = $1),
		(SELECT count(*) FROM environmental_records WHERE entity_id = $1),
		(SELECT COALESCE(max(year), 0) FROM environmental_records WHERE entity_id = $1)`

	var av Availability
	err := s.pool.QueryRow(ctx, q, entityID).Scan(&av.EmployeeCount, &av.EnvironmentalYears, &av.LatestEnvYear)
	if err != nil {
		return nil, fmt.Errorf("probing availability for %s: %w", entityID, err)
	}
	av.HasData = av.EmployeeCount > 0 || av.EnvironmentalYears > 0
	return &av, nil
}

// MetricsSnapshot returns the full structured ESG state of an entity.
func (s *Store) MetricsSnapshot(ctx context.Context, entityID string) (*MetricsSnapshot, error) {
	entity, err := s.EntityInfo(ctx, entityID)
	if err != nil {
		return nil, err
	}

	envYears, err := s.environmentalYears(ctx, entityID)
	if err != nil {
		return nil, err
	}

	employees, err := s.employeeRows(ctx, entityID)
	if err != nil {
		return nil, err
	}

	gov, err := s.governance(ctx, entityID)
	if err != nil {
		return nil, err
	}

	snapshot := &MetricsSnapshot{
		Entity:      *entity,
		Environment: computeEnvironmentMetrics(envYears),
		Social:      computeSocialMetrics(employees),
		Governance:  gov,
		GeneratedAt: time.Now().UTC(),
	}

	s.logger.Debug("built metrics snapshot",
		"entity_id", entityID,
		"env_years", len(envYears),
		"employees", len(employees))
	return snapshot, nil
}

// TrendSummary analyzes the environmental time series.
func (s *Store) TrendSummary(ctx context.Context, entityID string) (*TrendSummary, error) {
	envYears, err := s.environmentalYears(ctx, entityID)
	if err != nil {
		return nil, err
	}
	if len(envYears) < 2 {
		return nil, fmt.Errorf("trend analysis needs at least 2 yearly records, have %d: %w",
			len(envYears), ErrInsufficientData)
	}

	summary := computeTrendSummary(envYears)
	return &summary, nil
}

// GapReport identifies missing categories and thin data areas.
func (s *Store) GapReport(ctx context.Context, entityID string) (*GapReport, error) {
	av, err := s.Availability(ctx, entityID)
	if err != nil {
		return nil, err
	}
	gov, err := s.governance(ctx, entityID)
	if err != nil {
		return nil, err
	}

	report := computeGapReport(*av, gov)
	return &report, nil
}

// SaveReport persists a generated report and returns its identifier.
func (s *Store) SaveReport(ctx context.Context, report *Report) (uuid.UUID, error) {
	const q = `INSERT INTO reports (entity_id, title, report_type, format, content, generated_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	var id uuid.UUID
	var createdAt time.Time
	err := s.pool.QueryRow(ctx, q,
		report.EntityID, report.Title, report.ReportType, report.Format,
		report.Content, report.GeneratedBy,
	).Scan(&id, &createdAt)
	if err != nil {
		return uuid.Nil, fmt.Errorf("saving report for %s: %w", report.EntityID, err)
	}

	report.ID = id
	report.CreatedAt = createdAt
	s.logger.Debug("saved report", "id", id, "entity_id", report.EntityID, "type", report.ReportType)
	return id, nil
}

func (s *Store) environmentalYears(ctx context.Context, entityID string) ([]EnvYear, error) {
	const q = `SELECT year, energy_use, ghg_emissions, renewable_ratio
		FROM environmental_records WHERE entity_id = $1 ORDER BY year`

	rows, err := s.pool.Query(ctx, q, entityID)
	if err != nil {
		return nil, fmt.Errorf("querying environmental records for %s: %w", entityID, err)
	}
	defer rows.Close()

	var years []EnvYear
	for rows.Next() {
		var y EnvYear
		if err := rows.Scan(&y.Year, &y.EnergyUse, &y.GHGEmissions, &y.RenewableRatio); err != nil {
			return nil, fmt.Errorf("scanning environmental record: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating environmental records: %w", err)
	}
	return years, nil
}

func (s *Store) employeeRows(ctx context.Context, entityID string) ([]employeeRow, error) {
	const q = `SELECT gender, board_member, accident_count
		FROM employees WHERE entity_id = $1`

	rows, err := s.pool.Query(ctx, q, entityID)
	if err != nil {
		return nil, fmt.Errorf("querying employees for %s: %w", entityID, err)
	}
	defer rows.Close()

	var result []employeeRow
	for rows.Next() {
		var r employeeRow
		if err := rows.Scan(&r.Gender, &r.BoardMember, &r.AccidentCount); err != nil {
			return nil, fmt.Errorf("scanning employee record: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating employees: %w", err)
	}
	return result, nil
}

func (s *Store) governance(ctx context.Context, entityID string) (GovernanceMetrics, error) {
	const q = `SELECT outside_directors, ethics_policy, compliance_policy
		FROM entities WHERE entity_id = $1`

	var g GovernanceMetrics
	err := s.pool.QueryRow(ctx, q, entityID).Scan(&g.OutsideDirectors, &g.EthicsPolicy, &g.CompliancePolicy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return GovernanceMetrics{}, fmt.Errorf("entity %s: %w", entityID, ErrEntityNotFound)
		}
		return GovernanceMetrics{}, fmt.Errorf("querying governance attributes for %s: %w", entityID, err)
	}
	return g, nil
}
