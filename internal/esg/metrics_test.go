package esg

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeEnvironmentMetrics(t *testing.T) {
	t.Parallel()

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		got := computeEnvironmentMetrics(nil)
		if got.LatestYear != 0 || got.Trends != nil {
			t.Errorf("expected zero value, got %+v", got)
		}
	})

	t.Run("latest year wins regardless of input order", func(t *testing.T) {
		t.Parallel()
		years := []EnvYear{
			{Year: 2024, EnergyUse: 900, GHGEmissions: 450, RenewableRatio: 0.2},
			{Year: 2022, EnergyUse: 1000, GHGEmissions: 500, RenewableRatio: 0.1},
			{Year: 2023, EnergyUse: 950, GHGEmissions: 480, RenewableRatio: 0.15},
		}
		got := computeEnvironmentMetrics(years)

		if got.LatestYear != 2024 {
			t.Errorf("LatestYear = %d, want 2024", got.LatestYear)
		}
		if got.GHGEmissions != 450 {
			t.Errorf("GHGEmissions = %v, want 450", got.GHGEmissions)
		}
		if len(got.Trends) != 3 {
			t.Fatalf("Trends length = %d, want 3", len(got.Trends))
		}
		if got.Trends[0].Year != 2022 || got.Trends[2].Year != 2024 {
			t.Errorf("Trends not sorted ascending: %+v", got.Trends)
		}
	})

	t.Run("input slice not mutated", func(t *testing.T) {
		t.Parallel()
		years := []EnvYear{{Year: 2024}, {Year: 2022}}
		computeEnvironmentMetrics(years)
		if years[0].Year != 2024 {
			t.Errorf("input reordered in place")
		}
	})
}

func TestComputeSocialMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rows []employeeRow
		want SocialMetrics
	}{
		{
			name: "no employees",
			rows: nil,
			want: SocialMetrics{},
		},
		{
			name: "mixed workforce",
			rows: []employeeRow{
				{Gender: "F", BoardMember: true, AccidentCount: 0},
				{Gender: "M", BoardMember: false, AccidentCount: 2},
				{Gender: "female", BoardMember: false, AccidentCount: 0},
				{Gender: "M", BoardMember: true, AccidentCount: 0},
			},
			want: SocialMetrics{
				EmployeeCount:    4,
				FemaleRatio:      0.5,
				BoardMembers:     2,
				AccidentCount:    2,
				AccidentFreeRate: 0.75,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := computeSocialMetrics(tt.rows)
			if got != tt.want {
				t.Errorf("computeSocialMetrics() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestComputeTrendSummary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		years         []EnvYear
		wantDirection string
		wantGHGPct    float64
	}{
		{
			name: "falling emissions improve",
			years: []EnvYear{
				{Year: 2022, EnergyUse: 1000, GHGEmissions: 500, RenewableRatio: 0.1},
				{Year: 2024, EnergyUse: 900, GHGEmissions: 400, RenewableRatio: 0.1},
			},
			wantDirection: TrendImproving,
			wantGHGPct:    -20,
		},
		{
			name: "rising renewables improve even with rising emissions",
			years: []EnvYear{
				{Year: 2022, GHGEmissions: 400, RenewableRatio: 0.1},
				{Year: 2023, GHGEmissions: 450, RenewableRatio: 0.3},
			},
			wantDirection: TrendImproving,
			wantGHGPct:    12.5,
		},
		{
			name: "rising emissions deteriorate",
			years: []EnvYear{
				{Year: 2022, GHGEmissions: 400, RenewableRatio: 0.2},
				{Year: 2023, GHGEmissions: 480, RenewableRatio: 0.2},
			},
			wantDirection: TrendDeteriorating,
			wantGHGPct:    20,
		},
		{
			name: "flat series is stable",
			years: []EnvYear{
				{Year: 2022, GHGEmissions: 400, RenewableRatio: 0.2},
				{Year: 2023, GHGEmissions: 400, RenewableRatio: 0.2},
			},
			wantDirection: TrendStable,
			wantGHGPct:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := computeTrendSummary(tt.years)
			if got.Direction != tt.wantDirection {
				t.Errorf("Direction = %q, want %q", got.Direction, tt.wantDirection)
			}
			if !almostEqual(got.GHGChangePct, tt.wantGHGPct) {
				t.Errorf("GHGChangePct = %v, want %v", got.GHGChangePct, tt.wantGHGPct)
			}
			if got.Years != len(tt.years) {
				t.Errorf("Years = %d, want %d", got.Years, len(tt.years))
			}
		})
	}

	t.Run("zero baseline yields zero pct", func(t *testing.T) {
		t.Parallel()
		got := computeTrendSummary([]EnvYear{
			{Year: 2022, GHGEmissions: 0},
			{Year: 2023, GHGEmissions: 100},
		})
		if got.GHGChangePct != 0 {
			t.Errorf("GHGChangePct = %v, want 0 for zero baseline", got.GHGChangePct)
		}
	})
}

func TestComputeGapReport(t *testing.T) {
	t.Parallel()

	t.Run("nothing recorded", func(t *testing.T) {
		t.Parallel()
		got := computeGapReport(Availability{}, GovernanceMetrics{})

		if len(got.MissingCategories) != 2 {
			t.Errorf("MissingCategories = %v, want environment and social", got.MissingCategories)
		}
		if len(got.Recommendations) == 0 {
			t.Error("expected recommendations for missing data")
		}
	})

	t.Run("single environmental year flags low quality", func(t *testing.T) {
		t.Parallel()
		got := computeGapReport(
			Availability{HasData: true, EmployeeCount: 10, EnvironmentalYears: 1},
			GovernanceMetrics{OutsideDirectors: 3, EthicsPolicy: true, CompliancePolicy: true},
		)

		if len(got.MissingCategories) != 0 {
			t.Errorf("MissingCategories = %v, want none", got.MissingCategories)
		}
		if len(got.LowQualityAreas) != 1 {
			t.Errorf("LowQualityAreas = %v, want single-year environment flag", got.LowQualityAreas)
		}
	})

	t.Run("complete data yields empty report", func(t *testing.T) {
		t.Parallel()
		got := computeGapReport(
			Availability{HasData: true, EmployeeCount: 10, EnvironmentalYears: 3},
			GovernanceMetrics{OutsideDirectors: 2, EthicsPolicy: true, CompliancePolicy: true},
		)

		if len(got.MissingCategories)+len(got.LowQualityAreas)+len(got.Recommendations) != 0 {
			t.Errorf("expected empty gap report, got %+v", got)
		}
	})
}
