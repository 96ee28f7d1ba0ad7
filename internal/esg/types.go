// Package esg provides the data-processing boundary for ESG metrics.
//
// The package exposes read-only queries (entity info, metrics snapshot,
// trend series, gap analysis) and one write operation (report persistence)
// over the entity/employee/environmental tables. The conversational
// workflow and the report assembler consume it through the DataService
// interface.
package esg

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the business record a conversation or report is scoped to.
type Entity struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Sector   string `json:"sector"`
	Address  string `json:"address"`
}

// Availability summarizes whether enough underlying data exists to answer
// questions about an entity. HasData is true when at least one employee
// record or one environmental record exists.
type Availability struct {
	HasData            bool `json:"has_data"`
	EmployeeCount      int  `json:"employee_count"`
	EnvironmentalYears int  `json:"environmental_years"`
	LatestEnvYear      int  `json:"latest_env_year,omitempty"`
}

// EnvYear is one year of environmental measurements.
type EnvYear struct {
	Year           int     `json:"year"`
	EnergyUse      float64 `json:"energy_use"`
	GHGEmissions   float64 `json:"ghg_emissions"`
	RenewableRatio float64 `json:"renewable_ratio"`
}

// EnvironmentMetrics aggregates the environment pillar.
type EnvironmentMetrics struct {
	LatestYear     int       `json:"latest_year,omitempty"`
	EnergyUse      float64   `json:"energy_use"`
	GHGEmissions   float64   `json:"ghg_emissions"`
	RenewableRatio float64   `json:"renewable_ratio"`
	Trends         []EnvYear `json:"trends,omitempty"`
}

// SocialMetrics aggregates the social pillar from workforce records.
type SocialMetrics struct {
	EmployeeCount    int     `json:"employee_count"`
	FemaleRatio      float64 `json:"female_ratio"`
	BoardMembers     int     `json:"board_members"`
	AccidentCount    int     `json:"accident_count"`
	AccidentFreeRate float64 `json:"accident_free_rate"`
}

// GovernanceMetrics aggregates the governance pillar from entity attributes.
type GovernanceMetrics struct {
	OutsideDirectors int  `json:"outside_directors"`
	EthicsPolicy     bool `json:"ethics_policy"`
	CompliancePolicy bool `json:"compliance_policy"`
}

// MetricsSnapshot is the structured ESG state of one entity at query time.
type MetricsSnapshot struct {
	Entity      Entity             `json:"entity"`
	Environment EnvironmentMetrics `json:"environment"`
	Social      SocialMetrics      `json:"social"`
	Governance  GovernanceMetrics  `json:"governance"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Trend direction labels.
const (
	TrendImproving     = "improving"
	TrendDeteriorating = "deteriorating"
	TrendStable        = "stable"
)

// TrendSummary describes the direction of the environmental time series.
// Percentages compare the newest year against the oldest.
type TrendSummary struct {
	Years              int       `json:"years"`
	EnergyChangePct    float64   `json:"energy_change_pct"`
	GHGChangePct       float64   `json:"ghg_change_pct"`
	RenewableChangePct float64   `json:"renewable_change_pct"`
	Direction          string    `json:"direction"`
	Points             []EnvYear `json:"points"`
}

// GapReport lists missing or thin areas of an entity's ESG data.
type GapReport struct {
	MissingCategories []string `json:"missing_categories"`
	LowQualityAreas   []string `json:"low_quality_areas"`
	Recommendations   []string `json:"recommendations"`
}

// Report is a persisted generated report record.
type Report struct {
	ID          uuid.UUID `json:"id"`
	EntityID    string    `json:"entity_id"`
	Title       string    `json:"title"`
	ReportType  string    `json:"report_type"`
	Format      string    `json:"format"`
	Content     []byte    `json:"-"`
	GeneratedBy string    `json:"generated_by"`
	CreatedAt   time.Time `json:"created_at"`
}
