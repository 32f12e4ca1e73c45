package metrics

import (
	"math"
	"strings"

	"stockpulse/pkg/contracts/domain"
)

// clamp limits v to [0,100]
func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// round2 keeps reported scores stable across runs and platforms
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func calculateMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// calculateStdDev returns the population standard deviation
func calculateStdDev(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// number reads a numeric field. Rows produced by the pipeline hold float64
// for number columns.
func number(row domain.Row, col string) (float64, bool) {
	switch v := row[col].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func numberOr(row domain.Row, col string, def float64) float64 {
	if v, ok := number(row, col); ok {
		return v
	}
	return def
}

// text reads a string field, trimmed. Empty strings count as absent.
func text(row domain.Row, col string) (string, bool) {
	s, ok := row[col].(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

func has(row domain.Row, col string) bool {
	v, ok := row[col]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// rows flattens the rows of several sheets.
func rows(sheets []domain.NormalizedSheet) []domain.Row {
	var out []domain.Row
	for _, s := range sheets {
		out = append(out, s.Rows...)
	}
	return out
}

func containsAny(s string, words ...string) bool {
	s = strings.ToLower(s)
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
