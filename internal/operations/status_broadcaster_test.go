package operations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusBroadcasterLifecycle(t *testing.T) {
	hub := &recordingHub{}
	sb := NewStatusBroadcaster(hub, discardLogger())
	t.Cleanup(sb.Stop)

	sb.CreateOperation("op-1", StageIDs)
	sb.DescribeOperation("op-1", "stock.xlsx", "inventory")
	sb.StartOperation("op-1")

	sb.UpdateProgress("op-1", ProgressEvent{Phase: PhaseParsing, Percent: 25, Message: "parsing"})
	snap, ok := sb.GetSnapshot("op-1")
	require.True(t, ok)
	assert.Equal(t, string(OperationStatusRunning), snap.Status)
	assert.Equal(t, 25, snap.Progress)
	assert.Equal(t, StageNameParsing, snap.CurrentStep)
	assert.Equal(t, 50, snap.Steps[1].Progress)
	assert.Equal(t, "running", snap.Steps[1].Status)

	sb.UpdateProgress("op-1", ProgressEvent{Phase: PhaseParsing, Percent: 12, Message: "late"})
	snap, _ = sb.GetSnapshot("op-1")
	assert.Equal(t, 25, snap.Progress)

	sb.CompleteStep("op-1", StageIDReading, "done", map[string]interface{}{"file_size": 10})
	sb.CompleteOperation("op-1", "1 sheets, 10 rows processed")

	snap, _ = sb.GetSnapshot("op-1")
	assert.Equal(t, string(OperationStatusCompleted), snap.Status)
	assert.Equal(t, 100, snap.Progress)
	assert.Equal(t, PhaseComplete, snap.Phase)
	require.NotNil(t, snap.CompletedAt)
	for _, step := range snap.Steps {
		assert.Equal(t, string(StepStatusCompleted), step.Status, step.ID)
	}
	assert.Equal(t, 10, snap.Steps[0].Metadata["file_size"])

	last := hub.last()
	require.NotNil(t, last)
	assert.Equal(t, "op-1", last.OperationID)
	assert.Equal(t, string(OperationStatusCompleted), last.Status)
	assert.Equal(t, "stock.xlsx", last.FileName)
}

func TestStatusBroadcasterFailAndCancel(t *testing.T) {
	sb := NewStatusBroadcaster(nil, discardLogger())
	t.Cleanup(sb.Stop)

	sb.CreateOperation("failed", StageIDs)
	sb.FailStep("failed", StageIDReading, "file too large")
	sb.FailOperation("failed", "file too large")

	snap, ok := sb.GetSnapshot("failed")
	require.True(t, ok)
	assert.Equal(t, string(OperationStatusFailed), snap.Status)
	assert.Equal(t, "file too large", snap.Error)
	assert.Equal(t, string(StepStatusFailed), snap.Steps[0].Status)
	for _, step := range snap.Steps[1:] {
		assert.Equal(t, string(StepStatusSkipped), step.Status)
	}

	sb.CreateOperation("cancelled", StageIDs)
	sb.CancelOperation("cancelled")
	snap, _ = sb.GetSnapshot("cancelled")
	assert.Equal(t, string(OperationStatusCancelled), snap.Status)

	assert.Len(t, sb.GetAllSnapshots(), 2)
}

func TestStatusBroadcasterSnapshotsAreCopies(t *testing.T) {
	sb := NewStatusBroadcaster(nil, discardLogger())
	t.Cleanup(sb.Stop)

	sb.CreateOperation("op", StageIDs)
	snap, _ := sb.GetSnapshot("op")
	snap.Status = "tampered"
	snap.Steps[0].Status = "tampered"

	again, _ := sb.GetSnapshot("op")
	assert.Equal(t, string(OperationStatusPending), again.Status)
	assert.Equal(t, string(StepStatusPending), again.Steps[0].Status)
}

func TestStatusBroadcasterCleanup(t *testing.T) {
	sb := NewStatusBroadcaster(nil, discardLogger())
	t.Cleanup(sb.Stop)

	sb.CreateOperation("done", StageIDs)
	sb.CompleteOperation("done", "ok")
	sb.CreateOperation("running", StageIDs)
	sb.StartOperation("running")

	time.Sleep(5 * time.Millisecond)

	assert.Equal(t, 0, sb.CleanupOldOperations(context.Background(), time.Hour))
	assert.Equal(t, 1, sb.CleanupOldOperations(context.Background(), time.Millisecond))

	_, ok := sb.GetSnapshot("done")
	assert.False(t, ok)
	_, ok = sb.GetSnapshot("running")
	assert.True(t, ok)
}

func TestStatusBroadcasterStop(t *testing.T) {
	sb := NewStatusBroadcaster(nil, discardLogger())
	sb.Stop()
	sb.Stop()

	done := make(chan struct{})
	go func() {
		sb.CreateOperation("after-stop", StageIDs)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("update blocked after Stop")
	}
}
