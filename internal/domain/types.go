package domain

import "time"

// TaskStatus tracks the lifecycle of a single conversion task.
type TaskStatus string

const (
	TaskStatusPending TaskStatus = "pending"
	TaskStatusQueued  TaskStatus = "queued"
	TaskStatusRunning TaskStatus = "running"
	TaskStatusDone    TaskStatus = "done"
	TaskStatusFailed  TaskStatus = "failed"
)

// IsTerminal reports whether no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusDone || s == TaskStatusFailed
}

// Task is one input file scheduled for conversion within a batch.
type Task struct {
	Index       int        `json:"index"`
	InputPath   string     `json:"inputPath"`
	OutputPath  string     `json:"outputPath,omitempty"`
	Status      TaskStatus `json:"status"`
	OutputLog   string     `json:"outputLog,omitempty"`
	DisplayName string     `json:"displayName"`
	SizeLabel   string     `json:"sizeLabel,omitempty"`
}

// Batch is the ordered set of tasks submitted together via one start action.
type Batch struct {
	ID        string    `json:"id"`
	OutputDir string    `json:"outputDir"`
	BaseName  string    `json:"baseName"`
	CreatedAt time.Time `json:"createdAt"`
	Tasks     []Task    `json:"tasks"`
}

// BatchProgress summarizes how far a running batch has come.
type BatchProgress struct {
	Completed int  `json:"completed"`
	Total     int  `json:"total"`
	Percent   int  `json:"percent"`
	Finished  bool `json:"finished"`
}

// Settings contains user-selectable runtime configuration.
// JSON keys match the persisted preferences file format.
type Settings struct {
	OutputFolder  string `json:"output_folder"`
	ConverterPath string `json:"converter_path"`
	MaxWorkers    int    `json:"max_workers"`
}
