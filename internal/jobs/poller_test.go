package jobs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

// pollUntilFinished drives the poller like the app ticker would.
func pollUntilFinished(t *testing.T, p *Poller) domain.BatchProgress {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for {
		progress := p.Poll()
		if progress.Finished {
			return progress
		}
		if time.Now().After(deadline) {
			t.Fatalf("batch never finished, progress = %+v", progress)
		}
		time.Sleep(time.Millisecond)
	}
}

// TestPollerResolvesMixedOutcomes checks per-task status and log flow.
func TestPollerResolvesMixedOutcomes(t *testing.T) {
	m := NewManager()
	batch := newTestBatch(3)
	batch.Tasks[0].InputPath = "/in/good-1.cr3"
	batch.Tasks[1].InputPath = "/in/bad.cr3"
	batch.Tasks[2].InputPath = "/in/good-2.cr3"
	if err := m.Begin(batch); err != nil {
		t.Fatalf("begin: %v", err)
	}

	snapshot, _ := m.Snapshot()
	invoke := func(ctx context.Context, in, out string) TaskResult {
		if strings.Contains(in, "bad") {
			return TaskResult{Success: false, Output: "decode error"}
		}
		return TaskResult{Success: true, Output: "converted"}
	}
	handle := Dispatch(context.Background(), snapshot.Tasks, 2, invoke)

	var statuses []domain.TaskStatus
	var logs []string
	finishedCalls := 0
	p := NewPoller(m, handle, Callbacks{
		OnTaskStatusChanged: func(task domain.Task) { statuses = append(statuses, task.Status) },
		OnLogLine:           func(line string) { logs = append(logs, line) },
		OnBatchFinished:     func() { finishedCalls++ },
	})

	progress := pollUntilFinished(t, p)
	if progress.Completed != 3 || progress.Percent != 100 {
		t.Fatalf("progress = %+v", progress)
	}
	if finishedCalls != 1 {
		t.Fatalf("finished callbacks = %d, want 1", finishedCalls)
	}

	final, _ := m.Snapshot()
	if final.Tasks[0].Status != domain.TaskStatusDone ||
		final.Tasks[1].Status != domain.TaskStatusFailed ||
		final.Tasks[2].Status != domain.TaskStatusDone {
		t.Fatalf("final statuses: %+v", final.Tasks)
	}
	if final.Tasks[1].OutputLog != "decode error" {
		t.Fatalf("failed task log = %q", final.Tasks[1].OutputLog)
	}

	sawRunning := false
	for _, status := range statuses {
		if status == domain.TaskStatusRunning {
			sawRunning = true
		}
	}
	if !sawRunning {
		t.Fatalf("no running status observed: %v", statuses)
	}

	foundFailLog := false
	for _, line := range logs {
		if strings.HasPrefix(line, "Failed: bad.cr3") {
			foundFailLog = true
		}
	}
	if !foundFailLog {
		t.Fatalf("missing failure log line: %v", logs)
	}
	if logs[len(logs)-1] != "All tasks finished." {
		t.Fatalf("last log = %q", logs[len(logs)-1])
	}
}

// TestPollerProgressMonotonic checks percent never decreases and lands
// at exactly 100.
func TestPollerProgressMonotonic(t *testing.T) {
	m := NewManager()
	if err := m.Begin(newTestBatch(5)); err != nil {
		t.Fatalf("begin: %v", err)
	}

	snapshot, _ := m.Snapshot()
	invoke := func(ctx context.Context, in, out string) TaskResult {
		time.Sleep(2 * time.Millisecond)
		return TaskResult{Success: true}
	}
	handle := Dispatch(context.Background(), snapshot.Tasks, 2, invoke)

	var percents []int
	p := NewPoller(m, handle, Callbacks{
		OnProgressChanged: func(percent int) { percents = append(percents, percent) },
	})

	progress := pollUntilFinished(t, p)
	if progress.Percent != 100 {
		t.Fatalf("final percent = %d", progress.Percent)
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress went backwards: %v", percents)
		}
	}
	if percents[len(percents)-1] != 100 {
		t.Fatalf("last reported percent = %d", percents[len(percents)-1])
	}
}

// TestPollerFailsUnresolvableEventAfterRetries checks the bounded-retry
// policy for a worker event that cannot be resolved.
func TestPollerFailsUnresolvableEventAfterRetries(t *testing.T) {
	m := NewManager()
	if err := m.Begin(newTestBatch(1)); err != nil {
		t.Fatalf("begin: %v", err)
	}

	snapshot, _ := m.Snapshot()
	invoke := func(ctx context.Context, in, out string) TaskResult {
		panic("worker exploded")
	}
	handle := Dispatch(context.Background(), snapshot.Tasks, 1, invoke)

	p := NewPoller(m, handle, Callbacks{})
	progress := pollUntilFinished(t, p)
	if !progress.Finished {
		t.Fatalf("progress = %+v", progress)
	}

	task, err := m.Task(0)
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if task.Status != domain.TaskStatusFailed {
		t.Fatalf("status = %s, want failed", task.Status)
	}
	if !strings.Contains(task.OutputLog, "internal error resolving task result") {
		t.Fatalf("output log = %q", task.OutputLog)
	}
}

// TestPollerFinishIsOneShot checks repeated polls after completion.
func TestPollerFinishIsOneShot(t *testing.T) {
	m := NewManager()
	if err := m.Begin(newTestBatch(1)); err != nil {
		t.Fatalf("begin: %v", err)
	}

	snapshot, _ := m.Snapshot()
	invoke := func(ctx context.Context, in, out string) TaskResult {
		return TaskResult{Success: true}
	}
	handle := Dispatch(context.Background(), snapshot.Tasks, 1, invoke)

	finishedCalls := 0
	p := NewPoller(m, handle, Callbacks{
		OnBatchFinished: func() { finishedCalls++ },
	})

	pollUntilFinished(t, p)
	for i := 0; i < 5; i++ {
		progress := p.Poll()
		if !progress.Finished || progress.Percent != 100 {
			t.Fatalf("post-finish progress = %+v", progress)
		}
	}
	if finishedCalls != 1 {
		t.Fatalf("finished callbacks = %d, want exactly 1", finishedCalls)
	}
	if m.IsRunning() {
		t.Fatal("manager should be released after finish")
	}
	if errors.Is(m.Begin(newTestBatch(1)), ErrBatchAlreadyRunning) {
		t.Fatal("new batch should be accepted after finish")
	}
}
