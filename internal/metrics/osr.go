package metrics

import (
	"math"
	"strings"

	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

const minIndicatorWeight = 0.1

// issueColumns mark a row as an OSR issue when any of them is present.
var issueColumns = []string{
	schema.ColSeverity,
	schema.ColImpact,
	schema.ColEffort,
	schema.ColUrgency,
	schema.ColRiskLevel,
	schema.ColDescription,
}

type issueClass int

const (
	classMinor issueClass = iota
	classMajor
	classCritical
)

// OSRCalculator derives OSRMetrics from OSR sheets. Missing impact and
// effort scores fall back to the configured defaults.
type OSRCalculator struct {
	defaults schema.MetricsDefaults
}

// NewOSRCalculator creates a calculator with the given fallbacks
func NewOSRCalculator(defaults schema.MetricsDefaults) OSRCalculator {
	return OSRCalculator{defaults: defaults}
}

// Calculate computes health, severity, recovery potential and risk.
func (c OSRCalculator) Calculate(sheets []domain.NormalizedSheet) domain.OSRMetrics {
	all := rows(sheets)

	var issues, indicators []domain.Row
	for _, r := range all {
		if isIssue(r) {
			issues = append(issues, r)
		}
		if has(r, schema.ColHealth) {
			indicators = append(indicators, r)
		}
	}

	severity := c.severityScore(issues)

	return domain.OSRMetrics{
		HealthPercentage:  round2(healthPercentage(indicators, severity)),
		SeverityScore:     severity,
		RecoveryPotential: c.recoveryPotential(issues),
		RiskAssessment:    c.riskAssessment(issues, all),
	}
}

func isIssue(r domain.Row) bool {
	for _, col := range issueColumns {
		if has(r, col) {
			return true
		}
	}
	return false
}

func healthPercentage(indicators []domain.Row, severity domain.SeverityScore) float64 {
	if len(indicators) == 0 {
		return clamp(100 -
			10*float64(severity.CriticalIssues) -
			5*float64(severity.MajorIssues) -
			1*float64(severity.MinorIssues))
	}

	weights := make([]float64, len(indicators))
	totalWeight, weighted := 0.0, 0.0
	for i, r := range indicators {
		w := math.Max(minIndicatorWeight, numberOr(r, schema.ColWeight, 1))
		weights[i] = w
		totalWeight += w
		h, _ := number(r, schema.ColHealth)
		weighted += w * clamp(h)
	}

	health := clamp(weighted / totalWeight)
	for i, r := range indicators {
		trend, _ := text(r, schema.ColTrend)
		nw := weights[i] / totalWeight
		switch ClassifyTrend(trend) {
		case domain.TrendImproving:
			health += 2 * nw
		case domain.TrendDegrading:
			health -= 3 * nw
		}
	}
	return clamp(health)
}

func (c OSRCalculator) classify(r domain.Row) issueClass {
	if s, ok := text(r, schema.ColSeverity); ok {
		switch strings.ToLower(s) {
		case "critical":
			return classCritical
		case "major", "high":
			return classMajor
		case "minor", "medium", "low":
			return classMinor
		}
	}

	impact := numberOr(r, schema.ColImpact, c.defaults.DefaultImpact)
	switch {
	case impact >= 8:
		return classCritical
	case impact >= 5:
		return classMajor
	default:
		return classMinor
	}
}

func (c OSRCalculator) severityScore(issues []domain.Row) domain.SeverityScore {
	var s domain.SeverityScore
	for _, r := range issues {
		switch c.classify(r) {
		case classCritical:
			s.CriticalIssues++
		case classMajor:
			s.MajorIssues++
		default:
			s.MinorIssues++
		}
	}
	s.OverallSeverity = OverallSeverity(s.CriticalIssues, s.MajorIssues, s.MinorIssues)
	return s
}

// OverallSeverity grades issue counts. Every combination has a grade.
func OverallSeverity(critical, major, minor int) domain.Severity {
	switch {
	case critical >= 3:
		return domain.SeverityCritical
	case critical > 0 || major > 5:
		return domain.SeverityHigh
	case major > 0 || minor > 10:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func (c OSRCalculator) recoveryPotential(issues []domain.Row) domain.RecoveryPotential {
	var rp domain.RecoveryPotential
	if len(issues) == 0 {
		rp.RecoverabilityScore = 100
		return rp
	}

	for _, r := range issues {
		impact := numberOr(r, schema.ColImpact, c.defaults.DefaultImpact)
		effort := numberOr(r, schema.ColEffort, c.defaults.DefaultEffort)
		switch {
		case impact >= 6 && effort <= 4:
			rp.QuickWins++
		case effort >= 8 || (impact >= 8 && effort >= 6):
			rp.LongTermStrategic++
		case impact >= 4 && effort < 8:
			rp.MediumTermActions++
		}
	}

	points := 3*rp.QuickWins + 2*rp.MediumTermActions + rp.LongTermStrategic
	rp.RecoverabilityScore = round2(clamp(float64(points) / float64(3*len(issues)) * 100))
	return rp
}

func (c OSRCalculator) riskAssessment(issues, all []domain.Row) domain.RiskAssessment {
	var ra domain.RiskAssessment
	for _, r := range issues {
		level, ok := number(r, schema.ColRiskLevel)
		if !ok {
			level = numberOr(r, schema.ColImpact, c.defaults.DefaultImpact)
		}
		urgency, _ := text(r, schema.ColUrgency)

		switch {
		case containsAny(urgency, "immediate", "urgent") || level >= 7:
			ra.ImmediateRisks++
		case containsAny(urgency, "moderate", "soon", "medium") || level >= 4:
			ra.EmergingRisks++
		}
	}

	improving, degrading := 0, 0
	for _, r := range all {
		trend, ok := text(r, schema.ColTrend)
		if !ok {
			continue
		}
		switch ClassifyTrend(trend) {
		case domain.TrendImproving:
			improving++
		case domain.TrendDegrading:
			degrading++
		}
	}
	ra.RiskTrend = RiskTrendFor(improving, degrading)
	return ra
}

// ClassifyTrend reads free-text trend descriptions. Text that names no
// direction is stable.
func ClassifyTrend(s string) domain.RiskTrend {
	switch {
	case containsAny(s, "improv", "better", "decreas"):
		return domain.TrendImproving
	case containsAny(s, "degrad", "worse", "declin", "increas"):
		return domain.TrendDegrading
	default:
		return domain.TrendStable
	}
}

// RiskTrendFor compares improving and degrading trend counts.
func RiskTrendFor(improving, degrading int) domain.RiskTrend {
	switch {
	case float64(improving) > 1.5*float64(degrading):
		return domain.TrendImproving
	case float64(degrading) > 1.2*float64(improving):
		return domain.TrendDegrading
	default:
		return domain.TrendStable
	}
}
