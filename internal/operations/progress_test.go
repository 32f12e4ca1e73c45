package operations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressChannelEmit(t *testing.T) {
	var got []ProgressEvent
	pc := NewProgressChannel(func(ev ProgressEvent) { got = append(got, ev) })

	assert.True(t, pc.Emit(PhaseReading, 5, "opening"))
	assert.True(t, pc.Emit(PhaseParsing, 20, "parsing"))
	assert.False(t, pc.Emit(PhaseParsing, 15, "regressed percent"))
	assert.False(t, pc.Emit(PhaseReading, 30, "regressed phase"))
	assert.False(t, pc.Emit(Phase("unknown"), 50, "unknown phase"))
	assert.True(t, pc.Emit(PhaseParsing, 20, "same percent"))
	assert.True(t, pc.Emit(PhaseComplete, 250, "clamped"))

	require.Len(t, got, 4)
	assert.Equal(t, 100, got[3].Percent)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i].Percent, got[i-1].Percent)
	}

	last, ok := pc.Last()
	require.True(t, ok)
	assert.Equal(t, PhaseComplete, last.Phase)
}

func TestProgressChannelReport(t *testing.T) {
	tests := []struct {
		phase    Phase
		fraction float64
		want     int
	}{
		{PhaseReading, 0, 0},
		{PhaseReading, 1, 10},
		{PhaseParsing, 0.5, 25},
		{PhaseValidating, 1, 50},
		{PhaseProcessing, 2, 95},
	}

	pc := NewProgressChannel(nil)
	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			require.True(t, pc.Report(tt.phase, tt.fraction, ""))
			last, _ := pc.Last()
			assert.Equal(t, tt.want, last.Percent)
		})
	}
}

func TestPhaseRange(t *testing.T) {
	start, end, ok := PhaseRange(PhaseProcessing)
	require.True(t, ok)
	assert.Equal(t, 50, start)
	assert.Equal(t, 95, end)

	_, _, ok = PhaseRange(Phase("nope"))
	assert.False(t, ok)
}

func TestProgressTracker(t *testing.T) {
	tracker := NewProgressTracker(StageIDProcessing, 4)
	assert.Equal(t, "calculating...", tracker.GetETA())
	assert.Equal(t, 0.0, tracker.Fraction())

	tracker.Update(2, "half")
	assert.Equal(t, 0.5, tracker.Fraction())

	tracker.Update(9, "overshoot")
	assert.Equal(t, 1.0, tracker.Fraction())

	assert.Equal(t, 1.0, NewProgressTracker("empty", 0).Fraction())
}
