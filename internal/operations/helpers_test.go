package operations

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"stockpulse/internal/dataprocessing"
	"stockpulse/internal/shared/testutil"
	"stockpulse/pkg/contracts/domain"
)

// recordingHub captures every broadcast
type recordingHub struct {
	mu        sync.Mutex
	snapshots []*OperationSnapshot
}

func (h *recordingHub) BroadcastUpdate(eventType, step, status string, metadata interface{}) {
	snap, ok := metadata.(*OperationSnapshot)
	if !ok || eventType != EventTypeOperationSnapshot {
		return
	}
	h.mu.Lock()
	h.snapshots = append(h.snapshots, snap)
	h.mu.Unlock()
}

func (h *recordingHub) all() []*OperationSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*OperationSnapshot(nil), h.snapshots...)
}

func (h *recordingHub) last() *OperationSnapshot {
	all := h.all()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// blockingStep waits for its context to end and signals when it starts
type blockingStep struct {
	BaseStage
	started chan struct{}
	once    sync.Once
}

func newBlockingStep(id string) *blockingStep {
	return &blockingStep{
		BaseStage: NewBaseStage(id, "Blocking "+id, nil),
		started:   make(chan struct{}),
	}
}

func (s *blockingStep) Execute(ctx context.Context, state *OperationState) error {
	s.once.Do(func() { close(s.started) })
	<-ctx.Done()
	return ctx.Err()
}

// funcStep runs fn as its Execute
type funcStep struct {
	BaseStage
	fn func(ctx context.Context, state *OperationState) error
}

func newFuncStep(id string, deps []string, fn func(ctx context.Context, state *OperationState) error) *funcStep {
	return &funcStep{BaseStage: NewBaseStage(id, "Func "+id, deps), fn: fn}
}

func (s *funcStep) Execute(ctx context.Context, state *OperationState) error {
	if s.fn == nil {
		return nil
	}
	return s.fn(ctx, state)
}

func inventoryRows(n int) [][]interface{} {
	rows := [][]interface{}{{"Material", "Description", "Plant", "FG Value"}}
	for i := 1; i <= n; i++ {
		rows = append(rows, []interface{}{fmt.Sprintf("MAT-%03d", i), "Widget", "P1", float64(i * 100)})
	}
	return rows
}

func inventoryUpload(t *testing.T, rows int) dataprocessing.Upload {
	t.Helper()
	return dataprocessing.Upload{
		FileName: "stock.xlsx",
		Category: domain.CategoryInventory,
		Content:  testutil.WorkbookBytes(t, testutil.SheetFixture{Name: "FG Value", Rows: inventoryRows(rows)}),
	}
}

func newTestManager(t *testing.T, hub WebSocketHub, registry *Registry) *Manager {
	t.Helper()
	m, err := NewManager(hub, registry, nil, NewConfig(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(m.GetBroadcaster().Stop)
	return m
}
