package jobs

import (
	"fmt"
	"path/filepath"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

// maxResolveAttempts bounds retries for a worker event that cannot be
// resolved against the task table. After that the task is failed with a
// generic error instead of being left non-terminal forever.
const maxResolveAttempts = 3

// Callbacks carries UI notifications fired while polling. Nil fields are
// skipped. All callbacks run on the polling goroutine.
type Callbacks struct {
	OnTaskStatusChanged func(task domain.Task)
	OnProgressChanged   func(percent int)
	OnLogLine           func(line string)
	OnBatchFinished     func()
}

// Poller drains dispatcher events on a fixed cadence and applies them to
// the batch. It is the only writer of task state after dispatch, so the
// UI-facing table never races with workers.
type Poller struct {
	manager   *Manager
	handle    *Handle
	callbacks Callbacks

	finished bool
	attempts map[int]int
	deferred []TaskEvent
}

// NewPoller wires a poller to one dispatched batch.
func NewPoller(manager *Manager, handle *Handle, callbacks Callbacks) *Poller {
	return &Poller{
		manager:   manager,
		handle:    handle,
		callbacks: callbacks,
		attempts:  make(map[int]int),
	}
}

// Poll drains finished work, updates task statuses exactly once per task,
// and reports overall progress. Safe to call repeatedly; after the batch
// finishes it keeps returning the final progress.
func (p *Poller) Poll() domain.BatchProgress {
	if p.finished {
		return p.manager.Progress()
	}

	events := p.deferred
	p.deferred = nil
	events = append(events, p.handle.Drain()...)

	for _, event := range events {
		if err := p.apply(event); err != nil {
			p.retryLater(event, err)
		}
	}

	progress := p.manager.Progress()
	if p.callbacks.OnProgressChanged != nil {
		p.callbacks.OnProgressChanged(progress.Percent)
	}

	if progress.Finished {
		p.finished = true
		p.handle = nil
		p.deferred = nil
		p.manager.Finish()
		p.emitLog("All tasks finished.")
		if p.callbacks.OnBatchFinished != nil {
			p.callbacks.OnBatchFinished()
		}
	}

	return progress
}

// Finished reports whether the batch has reached its terminal state.
func (p *Poller) Finished() bool {
	return p.finished
}

// apply resolves one worker event against the batch table.
func (p *Poller) apply(event TaskEvent) error {
	if event.Err != nil {
		return fmt.Errorf("task %d: %w", event.Index, event.Err)
	}

	switch event.Kind {
	case TaskEventStarted:
		task, err := p.manager.MarkRunning(event.Index)
		if err != nil {
			return err
		}
		p.notifyStatus(task)
		return nil

	case TaskEventFinished:
		task, err := p.manager.Complete(event.Index, event.Result.Success, event.Result.Output)
		if err != nil {
			return err
		}
		p.notifyStatus(task)
		if task.Status == domain.TaskStatusDone {
			p.emitLog(fmt.Sprintf("Done: %s -> %s", filepath.Base(task.InputPath), filepath.Base(task.OutputPath)))
		} else {
			p.emitLog(fmt.Sprintf("Failed: %s. Output:\n%s", filepath.Base(task.InputPath), task.OutputLog))
		}
		return nil

	default:
		return fmt.Errorf("unknown task event kind: %q", event.Kind)
	}
}

// retryLater re-queues an unresolved event for the next poll tick, or
// fails the task outright once the retries are used up.
func (p *Poller) retryLater(event TaskEvent, cause error) {
	p.attempts[event.Index]++
	p.emitLog(fmt.Sprintf("Task event unresolved (attempt %d): %v", p.attempts[event.Index], cause))

	if p.attempts[event.Index] < maxResolveAttempts {
		p.deferred = append(p.deferred, event)
		return
	}

	task, err := p.manager.Fail(event.Index, fmt.Sprintf("internal error resolving task result: %v", cause))
	if err != nil {
		// Already terminal or unknown index; nothing left to mark.
		return
	}
	p.notifyStatus(task)
}

func (p *Poller) notifyStatus(task domain.Task) {
	if p.callbacks.OnTaskStatusChanged != nil {
		p.callbacks.OnTaskStatusChanged(task)
	}
}

func (p *Poller) emitLog(line string) {
	if p.callbacks.OnLogLine != nil {
		p.callbacks.OnLogLine(line)
	}
}
