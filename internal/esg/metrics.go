package esg

import "sort"

// employeeRow is the subset of an employee record the social metrics need.
type employeeRow struct {
	Gender        string
	BoardMember   bool
	AccidentCount int
}

// computeEnvironmentMetrics aggregates yearly records into the environment
// pillar. The latest year's values become the headline numbers; the full
// series is kept as trends. Records are sorted by year ascending.
func computeEnvironmentMetrics(years []EnvYear) EnvironmentMetrics {
	if len(years) == 0 {
		return EnvironmentMetrics{}
	}

	sorted := make([]EnvYear, len(years))
	copy(sorted, years)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	latest := sorted[len(sorted)-1]
	return EnvironmentMetrics{
		LatestYear:     latest.Year,
		EnergyUse:      latest.EnergyUse,
		GHGEmissions:   latest.GHGEmissions,
		RenewableRatio: latest.RenewableRatio,
		Trends:         sorted,
	}
}

// computeSocialMetrics aggregates workforce records into the social pillar.
func computeSocialMetrics(rows []employeeRow) SocialMetrics {
	m := SocialMetrics{EmployeeCount: len(rows)}
	if len(rows) == 0 {
		return m
	}

	female := 0
	accidentFree := 0
	for _, r := range rows {
		if r.Gender == "F" || r.Gender == "female" {
			female++
		}
		if r.BoardMember {
			m.BoardMembers++
		}
		m.AccidentCount += r.AccidentCount
		if r.AccidentCount == 0 {
			accidentFree++
		}
	}

	m.FemaleRatio = float64(female) / float64(len(rows))
	m.AccidentFreeRate = float64(accidentFree) / float64(len(rows))
	return m
}

// computeTrendSummary compares the newest environmental record against the
// oldest. Callers must ensure at least two records exist.
func computeTrendSummary(years []EnvYear) TrendSummary {
	sorted := make([]EnvYear, len(years))
	copy(sorted, years)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	first, last := sorted[0], sorted[len(sorted)-1]
	s := TrendSummary{
		Years:              len(sorted),
		EnergyChangePct:    changePct(first.EnergyUse, last.EnergyUse),
		GHGChangePct:       changePct(first.GHGEmissions, last.GHGEmissions),
		RenewableChangePct: changePct(first.RenewableRatio, last.RenewableRatio),
		Points:             sorted,
	}

	// Falling emissions or rising renewables count as improvement.
	switch {
	case s.GHGChangePct < 0 || s.RenewableChangePct > 0:
		s.Direction = TrendImproving
	case s.GHGChangePct > 0:
		s.Direction = TrendDeteriorating
	default:
		s.Direction = TrendStable
	}
	return s
}

func changePct(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

// computeGapReport derives diagnostics from the availability probe and the
// latest governance attributes.
func computeGapReport(av Availability, gov GovernanceMetrics) GapReport {
	var g GapReport

	if av.EnvironmentalYears == 0 {
		g.MissingCategories = append(g.MissingCategories, "environment")
		g.Recommendations = append(g.Recommendations,
			"Register yearly energy use, greenhouse gas emissions and renewable ratio.")
	} else if av.EnvironmentalYears < 2 {
		g.LowQualityAreas = append(g.LowQualityAreas, "environment: single year only, trends unavailable")
		g.Recommendations = append(g.Recommendations,
			"Add at least one more year of environmental data to enable trend analysis.")
	}

	if av.EmployeeCount == 0 {
		g.MissingCategories = append(g.MissingCategories, "social")
		g.Recommendations = append(g.Recommendations,
			"Register employee records (gender, board participation, workplace accidents).")
	}

	if gov.OutsideDirectors == 0 {
		g.LowQualityAreas = append(g.LowQualityAreas, "governance: no outside directors recorded")
	}
	if !gov.EthicsPolicy {
		g.Recommendations = append(g.Recommendations, "Document an ethics management policy.")
	}
	if !gov.CompliancePolicy {
		g.Recommendations = append(g.Recommendations, "Document a compliance policy.")
	}

	return g
}
