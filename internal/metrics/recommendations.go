package metrics

import (
	"fmt"

	"stockpulse/pkg/contracts/domain"
)

// MaxRecommendations caps the recommended actions list.
const MaxRecommendations = 8

const (
	msgInventoryMissing   = "Inventory data is not available: scores are based on OSR data only. Upload an inventory workbook for a complete assessment."
	msgOSRMissing         = "OSR data is not available: scores are based on inventory data only. Upload an OSR workbook for a complete assessment."
	msgContinueMonitoring = "No immediate action required: continue monitoring inventory and OSR indicators."
)

// recommendationRule contributes at most one message.
type recommendationRule func(inv *domain.InventoryMetrics, osr *domain.OSRMetrics) (string, bool)

var recommendationRules = []recommendationRule{
	func(_ *domain.InventoryMetrics, osr *domain.OSRMetrics) (string, bool) {
		if osr == nil || osr.SeverityScore.CriticalIssues == 0 {
			return "", false
		}
		return fmt.Sprintf("Resolve %d critical OSR issue(s) immediately.", osr.SeverityScore.CriticalIssues), true
	},
	func(inv *domain.InventoryMetrics, _ *domain.OSRMetrics) (string, bool) {
		if inv == nil {
			return "", false
		}
		pc := inv.PortfolioConcentration
		switch pc.ConcentrationRisk {
		case domain.ConcentrationHigh:
			return fmt.Sprintf("High portfolio concentration: the top 20%% of items hold %.1f%% of value. Diversify inventory holdings.", pc.TopItemsPercentage), true
		case domain.ConcentrationMedium:
			return fmt.Sprintf("Moderate portfolio concentration: the top 20%% of items hold %.1f%% of value. Review reliance on high-value items.", pc.TopItemsPercentage), true
		}
		return "", false
	},
	func(_ *domain.InventoryMetrics, osr *domain.OSRMetrics) (string, bool) {
		if osr == nil || osr.RecoveryPotential.QuickWins == 0 {
			return "", false
		}
		return fmt.Sprintf("Pursue %d quick win(s): high-impact OSR actions with low effort.", osr.RecoveryPotential.QuickWins), true
	},
	func(inv *domain.InventoryMetrics, _ *domain.OSRMetrics) (string, bool) {
		if inv == nil {
			return "", false
		}
		switch inv.PlantEfficiency.EfficiencyGrade {
		case domain.GradeF:
			return "Plant efficiency grade F: review utilization and throughput at every plant.", true
		case domain.GradeD:
			return "Plant efficiency grade D: target the lowest-utilization plants for improvement.", true
		}
		return "", false
	},
	func(_ *domain.InventoryMetrics, osr *domain.OSRMetrics) (string, bool) {
		if osr == nil || osr.RiskAssessment.RiskTrend != domain.TrendDegrading {
			return "", false
		}
		return "Risk trend is degrading: escalate mitigation of open OSR issues.", true
	},
	func(_ *domain.InventoryMetrics, osr *domain.OSRMetrics) (string, bool) {
		if osr == nil || osr.RiskAssessment.ImmediateRisks == 0 {
			return "", false
		}
		return fmt.Sprintf("Address %d immediate risk(s) flagged as urgent or high level.", osr.RiskAssessment.ImmediateRisks), true
	},
	func(inv *domain.InventoryMetrics, _ *domain.OSRMetrics) (string, bool) {
		if inv == nil || inv.GeographicDistribution.RegionCount == 0 ||
			inv.GeographicDistribution.RiskSpread != domain.SpreadConcentrated {
			return "", false
		}
		return "Inventory value is geographically concentrated: spread stock across more regions.", true
	},
	func(_ *domain.InventoryMetrics, osr *domain.OSRMetrics) (string, bool) {
		if osr == nil || osr.SeverityScore.MajorIssues <= 5 {
			return "", false
		}
		return fmt.Sprintf("Plan remediation for %d major OSR issues.", osr.SeverityScore.MajorIssues), true
	},
	func(_ *domain.InventoryMetrics, osr *domain.OSRMetrics) (string, bool) {
		if osr == nil || osr.RecoveryPotential.RecoverabilityScore >= 50 {
			return "", false
		}
		return fmt.Sprintf("Recoverability is low (%.0f/100): break long-term issues into smaller actions.", osr.RecoveryPotential.RecoverabilityScore), true
	},
	func(_ *domain.InventoryMetrics, osr *domain.OSRMetrics) (string, bool) {
		if osr == nil || osr.HealthPercentage >= 60 {
			return "", false
		}
		return fmt.Sprintf("OSR health is %.0f%%: review the weakest health indicators.", osr.HealthPercentage), true
	},
}

// Recommend returns the ordered action list for the given metrics. A
// missing source is disclosed first. The list never exceeds
// MaxRecommendations and is never empty.
func Recommend(inv *domain.InventoryMetrics, osr *domain.OSRMetrics) []string {
	var out []string
	switch {
	case inv == nil && osr != nil:
		out = append(out, msgInventoryMissing)
	case osr == nil && inv != nil:
		out = append(out, msgOSRMissing)
	}

	fired := 0
	for _, rule := range recommendationRules {
		if msg, ok := rule(inv, osr); ok {
			out = append(out, msg)
			fired++
		}
	}
	if fired == 0 {
		out = append(out, msgContinueMonitoring)
	}

	if len(out) > MaxRecommendations {
		out = out[:MaxRecommendations]
	}
	return out
}
