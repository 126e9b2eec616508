package jobs

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

// TaskResult is the outcome a worker reports for one task.
type TaskResult struct {
	Success bool
	Output  string
}

// InvokeFunc converts one input file into one output file.
type InvokeFunc func(ctx context.Context, inputPath, outputPath string) TaskResult

// TaskEventKind distinguishes worker notifications.
type TaskEventKind string

const (
	TaskEventStarted  TaskEventKind = "started"
	TaskEventFinished TaskEventKind = "finished"
)

// TaskEvent is the worker-to-coordinator handoff message. Workers emit
// exactly one started and one finished event per task, in that order.
type TaskEvent struct {
	Kind   TaskEventKind
	Index  int
	Result TaskResult
	Err    error
}

// Handle exposes non-blocking access to in-flight batch results.
type Handle struct {
	events chan TaskEvent
	done   chan struct{}
}

// Dispatch runs the batch tasks on a fixed-size worker pool and returns a
// handle for polling results. Admission is FIFO: tasks beyond the worker
// count wait their turn, but completion order is not guaranteed. A failed
// task never cancels or blocks the others.
func Dispatch(ctx context.Context, tasks []domain.Task, maxWorkers int, invoke InvokeFunc) *Handle {
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	h := &Handle{
		// Sized for one started plus one finished event per task so
		// workers never block on a slow poller.
		events: make(chan TaskEvent, 2*len(tasks)),
		done:   make(chan struct{}),
	}

	go func() {
		var group errgroup.Group
		group.SetLimit(maxWorkers)
		for _, task := range tasks {
			task := task
			group.Go(func() error {
				h.events <- TaskEvent{Kind: TaskEventStarted, Index: task.Index}
				result, err := runTask(ctx, invoke, task)
				h.events <- TaskEvent{Kind: TaskEventFinished, Index: task.Index, Result: result, Err: err}
				return nil
			})
		}
		_ = group.Wait()
		close(h.done)
	}()

	return h
}

// runTask invokes the converter for one task, converting panics into an
// event error so a misbehaving invocation cannot take the pool down.
func runTask(ctx context.Context, invoke InvokeFunc, task domain.Task) (result TaskResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("worker panic: %v", r)
		}
	}()

	result = invoke(ctx, task.InputPath, task.OutputPath)
	return result, nil
}

// Drain returns all queued worker events without blocking.
func (h *Handle) Drain() []TaskEvent {
	var out []TaskEvent
	for {
		select {
		case event := <-h.events:
			out = append(out, event)
		default:
			return out
		}
	}
}

// Idle reports whether every worker has returned.
func (h *Handle) Idle() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}
