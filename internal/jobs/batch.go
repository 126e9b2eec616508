// Package jobs coordinates batch execution: a single active batch, a
// fixed-size worker pool, and a poll-driven completion collector. Workers
// never touch the shared task table; they report back over a channel and
// the poller applies every mutation on the coordination side.
package jobs

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

// ErrBatchAlreadyRunning is returned when starting a second active batch.
var ErrBatchAlreadyRunning = errors.New("batch already running")

// ErrNoActiveBatch is returned for task operations outside a batch.
var ErrNoActiveBatch = errors.New("no active batch")

// Manager owns the single allowed active batch and validates that every
// task only ever moves forward: pending -> queued -> running -> done/failed.
type Manager struct {
	mu      sync.RWMutex
	batch   *domain.Batch
	running bool
}

// NewManager creates a manager with no batch.
func NewManager() *Manager {
	return &Manager{}
}

// Begin installs a new batch and marks every task queued. A batch that is
// still running is left untouched and the new one is rejected.
func (m *Manager) Begin(batch domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrBatchAlreadyRunning
	}

	for i := range batch.Tasks {
		batch.Tasks[i].Index = i
		batch.Tasks[i].Status = domain.TaskStatusQueued
		batch.Tasks[i].OutputLog = ""
	}
	m.batch = &batch
	m.running = true
	return nil
}

// MarkRunning moves one queued task to running and returns its snapshot.
func (m *Manager) MarkRunning(index int) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.taskLocked(index)
	if err != nil {
		return domain.Task{}, err
	}
	if err := validateTransition(task.Status, domain.TaskStatusRunning); err != nil {
		return domain.Task{}, err
	}

	m.batch.Tasks[index].Status = domain.TaskStatusRunning
	return m.batch.Tasks[index], nil
}

// Complete applies a terminal status plus the captured converter output.
func (m *Manager) Complete(index int, success bool, output string) (domain.Task, error) {
	status := domain.TaskStatusDone
	if !success {
		status = domain.TaskStatusFailed
	}
	return m.finalize(index, status, output)
}

// Fail forces one non-terminal task into failed state with a reason.
func (m *Manager) Fail(index int, reason string) (domain.Task, error) {
	return m.finalize(index, domain.TaskStatusFailed, reason)
}

// finalize validates and applies a terminal transition.
func (m *Manager) finalize(index int, status domain.TaskStatus, output string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.taskLocked(index)
	if err != nil {
		return domain.Task{}, err
	}
	if err := validateTransition(task.Status, status); err != nil {
		return domain.Task{}, err
	}

	m.batch.Tasks[index].Status = status
	m.batch.Tasks[index].OutputLog = output
	return m.batch.Tasks[index], nil
}

// Task returns a snapshot of one task.
func (m *Manager) Task(index int) (domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.taskLocked(index)
}

// Snapshot returns a copy of the current batch, if any.
func (m *Manager) Snapshot() (domain.Batch, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.batch == nil {
		return domain.Batch{}, false
	}

	batch := *m.batch
	batch.Tasks = append([]domain.Task(nil), m.batch.Tasks...)
	return batch, true
}

// Progress computes completion as a percentage of terminal tasks.
// An empty batch counts as fully complete.
func (m *Manager) Progress() domain.BatchProgress {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.batch == nil || len(m.batch.Tasks) == 0 {
		return domain.BatchProgress{Percent: 100, Finished: true}
	}

	completed := 0
	for _, task := range m.batch.Tasks {
		if task.Status.IsTerminal() {
			completed++
		}
	}

	total := len(m.batch.Tasks)
	return domain.BatchProgress{
		Completed: completed,
		Total:     total,
		Percent:   completed * 100 / total,
		Finished:  completed == total,
	}
}

// Finish releases the running guard so the next batch can start.
// The finished batch stays readable until it is superseded.
func (m *Manager) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
}

// IsRunning reports whether a batch is still executing.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// taskLocked fetches one task; callers hold the lock.
func (m *Manager) taskLocked(index int) (domain.Task, error) {
	if m.batch == nil {
		return domain.Task{}, ErrNoActiveBatch
	}
	if index < 0 || index >= len(m.batch.Tasks) {
		return domain.Task{}, fmt.Errorf("task index %d out of range (%d tasks)", index, len(m.batch.Tasks))
	}
	return m.batch.Tasks[index], nil
}

// validateTransition enforces forward-only task state machine edges.
func validateTransition(from, to domain.TaskStatus) error {
	ok := false
	switch from {
	case domain.TaskStatusPending:
		ok = to == domain.TaskStatusQueued
	case domain.TaskStatusQueued:
		ok = to == domain.TaskStatusRunning || to == domain.TaskStatusDone || to == domain.TaskStatusFailed
	case domain.TaskStatusRunning:
		ok = to == domain.TaskStatusDone || to == domain.TaskStatusFailed
	}
	if !ok {
		return fmt.Errorf("invalid task transition: %s -> %s", from, to)
	}
	return nil
}
