package metrics

import (
	"math"
	"sort"

	"stockpulse/internal/schema"
	"stockpulse/pkg/contracts/domain"
)

// topItemsShare is the fraction of items counted as the portfolio top.
const topItemsShare = 0.2

var gradeScores = map[domain.EfficiencyGrade]float64{
	domain.GradeA: 95,
	domain.GradeB: 85,
	domain.GradeC: 75,
	domain.GradeD: 65,
	domain.GradeF: 45,
}

// GradeScore converts an efficiency grade to the score used in health
// formulas.
func GradeScore(g domain.EfficiencyGrade) float64 {
	if s, ok := gradeScores[g]; ok {
		return s
	}
	return gradeScores[domain.GradeF]
}

// InventoryCalculator derives InventoryMetrics from inventory sheets.
type InventoryCalculator struct{}

// Calculate computes concentration, plant efficiency and regional spread.
func (InventoryCalculator) Calculate(sheets []domain.NormalizedSheet) domain.InventoryMetrics {
	all := rows(sheets)

	conc := portfolioConcentration(all)
	eff := plantEfficiency(all)
	geo := geographicDistribution(all)

	health := 0.4*GradeScore(eff.EfficiencyGrade) + 0.3*geo.DistributionBalance + 0.3*conc.DiversificationIndex

	return domain.InventoryMetrics{
		PortfolioConcentration: conc,
		PlantEfficiency:        eff,
		GeographicDistribution: geo,
		OverallHealth:          round2(clamp(health)),
	}
}

func portfolioConcentration(all []domain.Row) domain.PortfolioConcentration {
	var values []float64
	total := 0.0
	for _, r := range all {
		if v, ok := number(r, schema.ColValue); ok && v > 0 {
			values = append(values, v)
			total += v
		}
	}
	if len(values) == 0 || total <= 0 {
		return domain.PortfolioConcentration{ConcentrationRisk: domain.ConcentrationLow}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(values)))

	topN := int(math.Ceil(topItemsShare * float64(len(values))))
	top := 0.0
	for _, v := range values[:topN] {
		top += v
	}
	topPct := clamp(top / total * 100)

	hhi := 0.0
	for _, v := range values {
		share := v / total
		hhi += share * share
	}
	hhi *= 10000

	return domain.PortfolioConcentration{
		TopItemsPercentage:   round2(topPct),
		DiversificationIndex: round2(clamp(100 - hhi/100)),
		ConcentrationRisk:    ConcentrationRiskFor(topPct),
	}
}

// ConcentrationRiskFor grades a top-items percentage. It is monotone in
// its input.
func ConcentrationRiskFor(topItemsPct float64) domain.ConcentrationRisk {
	switch {
	case topItemsPct > 80:
		return domain.ConcentrationHigh
	case topItemsPct > 60:
		return domain.ConcentrationMedium
	default:
		return domain.ConcentrationLow
	}
}

type plantTotals struct {
	utilization []float64
	throughput  []float64
}

func plantEfficiency(all []domain.Row) domain.PlantEfficiency {
	plants := make(map[string]*plantTotals)
	var order []string
	for _, r := range all {
		name, ok := text(r, schema.ColPlant)
		if !ok {
			continue
		}
		p, seen := plants[name]
		if !seen {
			p = &plantTotals{}
			plants[name] = p
			order = append(order, name)
		}
		if u, ok := number(r, schema.ColUtilization); ok {
			p.utilization = append(p.utilization, math.Min(100, u))
		}
		if tp, ok := number(r, schema.ColThroughput); ok {
			p.throughput = append(p.throughput, tp)
		}
	}

	var utilMeans, throughputMeans []float64
	for _, name := range order {
		p := plants[name]
		if len(p.utilization) > 0 {
			utilMeans = append(utilMeans, calculateMean(p.utilization))
		}
		if len(p.throughput) > 0 {
			throughputMeans = append(throughputMeans, calculateMean(p.throughput))
		}
	}

	util := clamp(calculateMean(utilMeans))
	throughput := math.Min(100, calculateMean(throughputMeans)/10)

	return domain.PlantEfficiency{
		UtilizationRate: round2(util),
		ThroughputScore: round2(clamp(throughput)),
		EfficiencyGrade: GradeFor((util + throughput) / 2),
	}
}

// GradeFor maps an efficiency score to a letter grade. Every input has a
// grade.
func GradeFor(score float64) domain.EfficiencyGrade {
	switch {
	case score >= 90:
		return domain.GradeA
	case score >= 80:
		return domain.GradeB
	case score >= 70:
		return domain.GradeC
	case score >= 60:
		return domain.GradeD
	default:
		return domain.GradeF
	}
}

func geographicDistribution(all []domain.Row) domain.GeographicDistribution {
	totals := make(map[string]float64)
	var order []string
	for _, r := range all {
		region, ok := text(r, schema.ColRegion)
		if !ok {
			continue
		}
		if _, seen := totals[region]; !seen {
			order = append(order, region)
		}
		v, _ := number(r, schema.ColValue)
		totals[region] += math.Max(0, v)
	}

	if len(order) == 0 {
		return domain.GeographicDistribution{RiskSpread: domain.SpreadConcentrated}
	}

	values := make([]float64, len(order))
	for i, region := range order {
		values[i] = totals[region]
	}

	balance := 0.0
	if mean := calculateMean(values); mean > 0 {
		cov := calculateStdDev(values, mean) / mean
		balance = clamp(100 - cov*100)
	}

	return domain.GeographicDistribution{
		RegionCount:         len(order),
		DistributionBalance: round2(balance),
		RiskSpread:          RiskSpreadFor(len(order), balance),
	}
}

// RiskSpreadFor classifies regional spread from the region count and
// distribution balance.
func RiskSpreadFor(regions int, balance float64) domain.RiskSpread {
	switch {
	case regions <= 1 || balance < 40:
		return domain.SpreadConcentrated
	case regions <= 3 || balance < 70:
		return domain.SpreadBalanced
	default:
		return domain.SpreadDistributed
	}
}
