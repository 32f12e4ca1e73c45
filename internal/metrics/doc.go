// Package metrics derives business-health scores from normalized inventory
// and OSR sheets.
//
// InventoryCalculator reports portfolio concentration, plant efficiency and
// geographic distribution. OSRCalculator reports health, issue severity,
// recovery potential and risk trend. CombinedCalculator merges both into
// portfolio scores and an ordered list of recommended actions; when only
// one source is present it uses reduced formulas and says so in the first
// recommendation.
//
// All percentages are clamped to [0,100] and rounded to two decimals.
// Calculations are deterministic: missing impact and effort scores use the
// schema's configured defaults.
package metrics
