package metrics

import (
	"math"

	apperrors "stockpulse/internal/errors"
	"stockpulse/pkg/contracts/domain"
)

var severityBase = map[domain.Severity]float64{
	domain.SeverityLow:      10,
	domain.SeverityMedium:   35,
	domain.SeverityHigh:     65,
	domain.SeverityCritical: 90,
}

// TrendMultiplier scales OSR risk by its direction.
func TrendMultiplier(t domain.RiskTrend) float64 {
	switch t {
	case domain.TrendDegrading:
		return 1.2
	case domain.TrendImproving:
		return 0.8
	default:
		return 1.0
	}
}

// InventoryRiskScore combines concentration and regional imbalance.
func InventoryRiskScore(inv domain.InventoryMetrics) float64 {
	return clamp(0.5*inv.PortfolioConcentration.TopItemsPercentage +
		0.5*(100-inv.GeographicDistribution.DistributionBalance))
}

// OSRRiskScore combines OSR health and overall severity.
func OSRRiskScore(osr domain.OSRMetrics) float64 {
	return clamp(0.6*(100-osr.HealthPercentage) + 0.4*severityBase[osr.SeverityScore.OverallSeverity])
}

func criticalPenalty(osr domain.OSRMetrics) float64 {
	return math.Min(15, 5*float64(osr.SeverityScore.CriticalIssues))
}

// CombinedCalculator merges inventory and OSR metrics. Either input may be
// nil; the scores then use the reduced formulas for the source present.
type CombinedCalculator struct{}

// Calculate returns ErrNoMetricsData when both inputs are nil.
func (CombinedCalculator) Calculate(inv *domain.InventoryMetrics, osr *domain.OSRMetrics) (domain.CombinedMetrics, error) {
	var out domain.CombinedMetrics

	switch {
	case inv != nil && osr != nil:
		gradeScore := GradeScore(inv.PlantEfficiency.EfficiencyGrade)
		recov := osr.RecoveryPotential.RecoverabilityScore
		critical := float64(osr.SeverityScore.CriticalIssues)
		major := float64(osr.SeverityScore.MajorIssues)

		out.OverallPortfolioHealth = clamp(0.6*inv.OverallHealth + 0.4*osr.HealthPercentage - criticalPenalty(*osr))
		out.RiskExposure = clamp(0.4*InventoryRiskScore(*inv) +
			0.6*OSRRiskScore(*osr)*TrendMultiplier(osr.RiskAssessment.RiskTrend))
		out.OperationalEfficiency = clamp(0.7*gradeScore +
			0.3*(0.3*recov+0.4*osr.HealthPercentage-8*critical-3*major))
		out.AlignmentBreakdown = domain.StrategicAlignment{
			InventoryOptimization: clamp(0.5*inv.PortfolioConcentration.DiversificationIndex + 0.5*inv.OverallHealth),
			GrowthReadiness:       clamp(0.5*recov + 0.5*inv.GeographicDistribution.DistributionBalance),
		}

	case inv != nil:
		out.OverallPortfolioHealth = clamp(inv.OverallHealth)
		out.RiskExposure = InventoryRiskScore(*inv)
		out.OperationalEfficiency = GradeScore(inv.PlantEfficiency.EfficiencyGrade)
		out.AlignmentBreakdown = domain.StrategicAlignment{
			InventoryOptimization: clamp(0.5*inv.PortfolioConcentration.DiversificationIndex + 0.5*inv.OverallHealth),
			GrowthReadiness:       clamp(inv.GeographicDistribution.DistributionBalance),
		}

	case osr != nil:
		recov := osr.RecoveryPotential.RecoverabilityScore
		critical := float64(osr.SeverityScore.CriticalIssues)
		major := float64(osr.SeverityScore.MajorIssues)

		out.OverallPortfolioHealth = clamp(osr.HealthPercentage - criticalPenalty(*osr))
		out.RiskExposure = clamp(OSRRiskScore(*osr) * TrendMultiplier(osr.RiskAssessment.RiskTrend))
		out.OperationalEfficiency = clamp(0.5*recov + 0.5*osr.HealthPercentage - 8*critical - 3*major)
		out.AlignmentBreakdown = domain.StrategicAlignment{
			InventoryOptimization: clamp(osr.HealthPercentage),
			GrowthReadiness:       clamp(recov),
		}

	default:
		return out, apperrors.ErrNoMetricsData
	}

	out.AlignmentBreakdown.RiskMitigation = clamp(100 - out.RiskExposure)
	out.AlignmentBreakdown.OperationalExcellence = out.OperationalEfficiency
	b := out.AlignmentBreakdown
	out.StrategicAlignment = clamp(calculateMean([]float64{
		b.InventoryOptimization, b.RiskMitigation, b.OperationalExcellence, b.GrowthReadiness,
	}))

	out.OverallPortfolioHealth = round2(out.OverallPortfolioHealth)
	out.RiskExposure = round2(out.RiskExposure)
	out.OperationalEfficiency = round2(out.OperationalEfficiency)
	out.StrategicAlignment = round2(out.StrategicAlignment)
	out.AlignmentBreakdown = domain.StrategicAlignment{
		InventoryOptimization: round2(b.InventoryOptimization),
		RiskMitigation:        round2(b.RiskMitigation),
		OperationalExcellence: round2(b.OperationalExcellence),
		GrowthReadiness:       round2(b.GrowthReadiness),
	}
	out.RecommendedActions = Recommend(inv, osr)

	return out, nil
}
