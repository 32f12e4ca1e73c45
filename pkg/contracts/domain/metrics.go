package domain

import "time"

// ConcentrationRisk grades how much of the portfolio value sits in its
// largest items.
type ConcentrationRisk string

const (
	ConcentrationLow    ConcentrationRisk = "low"
	ConcentrationMedium ConcentrationRisk = "medium"
	ConcentrationHigh   ConcentrationRisk = "high"
)

// EfficiencyGrade is a letter grade from A to F.
type EfficiencyGrade string

const (
	GradeA EfficiencyGrade = "A"
	GradeB EfficiencyGrade = "B"
	GradeC EfficiencyGrade = "C"
	GradeD EfficiencyGrade = "D"
	GradeF EfficiencyGrade = "F"
)

// RiskSpread describes how inventory value is spread across regions.
type RiskSpread string

const (
	SpreadConcentrated RiskSpread = "concentrated"
	SpreadBalanced     RiskSpread = "balanced"
	SpreadDistributed  RiskSpread = "distributed"
)

// Severity is the overall severity of open OSR issues.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// RiskTrend is the direction OSR risk is moving in.
type RiskTrend string

const (
	TrendImproving RiskTrend = "improving"
	TrendStable    RiskTrend = "stable"
	TrendDegrading RiskTrend = "degrading"
)

type PortfolioConcentration struct {
	TopItemsPercentage   float64           `json:"top_items_percentage"`
	DiversificationIndex float64           `json:"diversification_index"`
	ConcentrationRisk    ConcentrationRisk `json:"concentration_risk"`
}

type PlantEfficiency struct {
	UtilizationRate float64         `json:"utilization_rate"`
	ThroughputScore float64         `json:"throughput_score"`
	EfficiencyGrade EfficiencyGrade `json:"efficiency_grade"`
}

type GeographicDistribution struct {
	RegionCount         int        `json:"region_count"`
	DistributionBalance float64    `json:"distribution_balance"`
	RiskSpread          RiskSpread `json:"risk_spread"`
}

// InventoryMetrics is derived from the inventory sheets of a dataset.
type InventoryMetrics struct {
	PortfolioConcentration PortfolioConcentration `json:"portfolio_concentration"`
	PlantEfficiency        PlantEfficiency        `json:"plant_efficiency"`
	GeographicDistribution GeographicDistribution `json:"geographic_distribution"`
	OverallHealth          float64                `json:"overall_health"`
}

type SeverityScore struct {
	CriticalIssues  int      `json:"critical_issues"`
	MajorIssues     int      `json:"major_issues"`
	MinorIssues     int      `json:"minor_issues"`
	OverallSeverity Severity `json:"overall_severity"`
}

type RecoveryPotential struct {
	QuickWins           int     `json:"quick_wins"`
	MediumTermActions   int     `json:"medium_term_actions"`
	LongTermStrategic   int     `json:"long_term_strategic"`
	RecoverabilityScore float64 `json:"recoverability_score"`
}

type RiskAssessment struct {
	ImmediateRisks int       `json:"immediate_risks"`
	EmergingRisks  int       `json:"emerging_risks"`
	RiskTrend      RiskTrend `json:"risk_trend"`
}

// OSRMetrics is derived from the OSR sheets of a dataset.
type OSRMetrics struct {
	HealthPercentage  float64           `json:"health_percentage"`
	SeverityScore     SeverityScore     `json:"severity_score"`
	RecoveryPotential RecoveryPotential `json:"recovery_potential"`
	RiskAssessment    RiskAssessment    `json:"risk_assessment"`
}

// StrategicAlignment holds the four components averaged into
// CombinedMetrics.StrategicAlignment.
type StrategicAlignment struct {
	InventoryOptimization float64 `json:"inventory_optimization"`
	RiskMitigation        float64 `json:"risk_mitigation"`
	OperationalExcellence float64 `json:"operational_excellence"`
	GrowthReadiness       float64 `json:"growth_readiness"`
}

// CombinedMetrics merges inventory and OSR metrics into portfolio scores.
type CombinedMetrics struct {
	OverallPortfolioHealth float64            `json:"overall_portfolio_health"`
	RiskExposure           float64            `json:"risk_exposure"`
	OperationalEfficiency  float64            `json:"operational_efficiency"`
	StrategicAlignment     float64            `json:"strategic_alignment"`
	AlignmentBreakdown     StrategicAlignment `json:"alignment_breakdown"`
	RecommendedActions     []string           `json:"recommended_actions"`
}

// MetricsReport is the full output of the metrics engine. Inventory or OSR
// is nil when that source had no data.
type MetricsReport struct {
	Inventory   *InventoryMetrics `json:"inventory,omitempty"`
	OSR         *OSRMetrics       `json:"osr,omitempty"`
	Combined    CombinedMetrics   `json:"combined"`
	Sources     []Category        `json:"sources"`
	Partial     bool              `json:"partial"`
	GeneratedAt time.Time         `json:"generated_at"`
}
