package operations

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// Phase names a step of an ingestion run as seen by the uploader.
type Phase string

const (
	PhaseReading    Phase = StageIDReading
	PhaseParsing    Phase = StageIDParsing
	PhaseValidating Phase = StageIDValidating
	PhaseProcessing Phase = StageIDProcessing
	PhaseComplete   Phase = "complete"
)

var phaseOrder = []Phase{PhaseReading, PhaseParsing, PhaseValidating, PhaseProcessing, PhaseComplete}

var phaseRanges = map[Phase][2]int{
	PhaseReading:    {0, 10},
	PhaseParsing:    {10, 40},
	PhaseValidating: {40, 50},
	PhaseProcessing: {50, 95},
	PhaseComplete:   {100, 100},
}

// PhaseRange returns the percentage span a phase reports within.
func PhaseRange(p Phase) (start, end int, ok bool) {
	r, ok := phaseRanges[p]
	return r[0], r[1], ok
}

func phaseIndex(p Phase) int {
	for i, q := range phaseOrder {
		if q == p {
			return i
		}
	}
	return -1
}

// ProgressEvent is one step forward of a run.
type ProgressEvent struct {
	Phase   Phase     `json:"phase"`
	Percent int       `json:"percent"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// ProgressChannel delivers progress events of one run to a sink, in order.
// Events that would move the phase or the percentage backwards are dropped.
type ProgressChannel struct {
	mu      sync.Mutex
	sink    func(ProgressEvent)
	last    ProgressEvent
	emitted bool
}

// NewProgressChannel creates a channel delivering to sink. A nil sink
// only records the last event.
func NewProgressChannel(sink func(ProgressEvent)) *ProgressChannel {
	return &ProgressChannel{sink: sink}
}

// Emit delivers an event and reports whether it was accepted.
func (c *ProgressChannel) Emit(phase Phase, percent int, message string) bool {
	idx := phaseIndex(phase)
	if idx < 0 {
		return false
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.emitted && (percent < c.last.Percent || idx < phaseIndex(c.last.Phase)) {
		return false
	}

	ev := ProgressEvent{Phase: phase, Percent: percent, Message: message, Time: time.Now()}
	c.last = ev
	c.emitted = true
	if c.sink != nil {
		c.sink(ev)
	}
	return true
}

// Report maps fraction, the share of phase already done, onto the phase's
// percentage span and emits it.
func (c *ProgressChannel) Report(phase Phase, fraction float64, message string) bool {
	start, end, ok := PhaseRange(phase)
	if !ok {
		return false
	}
	if fraction < 0 || math.IsNaN(fraction) {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	percent := start + int(math.Round(fraction*float64(end-start)))
	return c.Emit(phase, percent, message)
}

// Last returns the most recent accepted event
func (c *ProgressChannel) Last() (ProgressEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last, c.emitted
}

// ProgressTracker tracks item progress inside a long-running stage
type ProgressTracker struct {
	Step      string
	Total     int
	Current   int
	StartTime time.Time
	Message   string
	mu        sync.Mutex
}

// NewProgressTracker creates a new progress tracker
func NewProgressTracker(step string, total int) *ProgressTracker {
	return &ProgressTracker{
		Step:      step,
		Total:     total,
		StartTime: time.Now(),
	}
}

// Update updates the current progress
func (p *ProgressTracker) Update(current int, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Current = current
	p.Message = message
}

// Fraction returns the share of items done, in [0,1]
func (p *ProgressTracker) Fraction() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Total <= 0 {
		return 1
	}
	return math.Min(1, float64(p.Current)/float64(p.Total))
}

// GetETA calculates the estimated time remaining
func (p *ProgressTracker) GetETA() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Current == 0 || p.Total == 0 {
		return "calculating..."
	}

	elapsed := time.Since(p.StartTime)
	rate := float64(p.Current) / elapsed.Seconds()

	if rate == 0 || math.IsInf(rate, 0) {
		return "calculating..."
	}

	remaining := float64(p.Total-p.Current) / rate

	if remaining < 60 {
		return fmt.Sprintf("%.0f seconds", remaining)
	} else if remaining < 3600 {
		return fmt.Sprintf("%.1f minutes", remaining/60)
	}
	return fmt.Sprintf("%.1f hours", remaining/3600)
}
