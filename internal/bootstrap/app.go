package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/config"
	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/convert"
	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/diagnostics"
	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/jobs"
	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/naming"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

// defaultPollInterval is the cadence of the completion poll loop.
const defaultPollInterval = 500 * time.Millisecond

var converterDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Executables",
		Pattern:     "*",
	},
}

// App wires configuration, the batch pipeline, and UI runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Batches     *jobs.Manager
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	events      *jobs.EventBus

	// newInvoke builds the per-batch converter function; replaced in tests.
	newInvoke    func(converterPath string) jobs.InvokeFunc
	pollInterval time.Duration

	mu         sync.Mutex
	runtimeCtx context.Context
	staged     []domain.Task
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	if err := ensureLocalBinOnPATH(); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	store := config.NewJSONStore(config.DefaultPath())
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	return &App{
		Settings:     settings,
		Store:        store,
		Batches:      jobs.NewManager(),
		Diagnostics:  report,
		assets:       assets,
		checker:      checker,
		events:       jobs.NewEventBus(1000),
		newInvoke:    newConverterInvoke,
		pollInterval: defaultPollInterval,
	}, nil
}

// newConverterInvoke adapts the converter invoker to the dispatcher.
func newConverterInvoke(converterPath string) jobs.InvokeFunc {
	invoker := convert.NewInvoker(converterPath)
	return func(ctx context.Context, inputPath, outputPath string) jobs.TaskResult {
		result := invoker.Invoke(ctx, inputPath, outputPath)
		return jobs.TaskResult{Success: result.Success, Output: result.Output}
	}
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "DNG Extractor",
		Width:       900,
		Height:      680,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := config.Normalize(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// AddFiles stages new input files as pending tasks, skipping duplicates.
func (a *App) AddFiles(paths []string) []domain.Task {
	var warnings []string

	a.mu.Lock()
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}
		path = filepath.Clean(path)
		if a.stagedIndexLocked(path) >= 0 {
			continue
		}

		task := domain.Task{
			Index:       len(a.staged),
			InputPath:   path,
			Status:      domain.TaskStatusPending,
			DisplayName: filepath.Base(path),
		}
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			task.SizeLabel = humanize.Bytes(uint64(info.Size()))
		}
		if !isRawCandidate(path) {
			warnings = append(warnings, fmt.Sprintf("%s has no known RAW extension, converting anyway", task.DisplayName))
		}
		a.staged = append(a.staged, task)
	}
	snapshot := append([]domain.Task(nil), a.staged...)
	a.mu.Unlock()

	for _, warning := range warnings {
		a.publishEvent(jobs.Event{Type: jobs.EventTypeLog, TaskIndex: -1, Message: warning})
	}
	return snapshot
}

// ClearFiles empties the staged file list. Rejected while a batch runs.
func (a *App) ClearFiles() error {
	if a.Batches.IsRunning() {
		return jobs.ErrBatchAlreadyRunning
	}

	a.mu.Lock()
	a.staged = nil
	a.mu.Unlock()
	return nil
}

// Tasks returns the current task table: the running batch when one is
// active, followed by any files staged after it started, otherwise the
// staged list with its last-known statuses.
func (a *App) Tasks() []domain.Task {
	var batchTasks []domain.Task
	if a.Batches.IsRunning() {
		if batch, ok := a.Batches.Snapshot(); ok {
			batchTasks = batch.Tasks
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if batchTasks == nil {
		return append([]domain.Task(nil), a.staged...)
	}

	inBatch := make(map[string]bool, len(batchTasks))
	for _, task := range batchTasks {
		inBatch[task.InputPath] = true
	}

	out := append([]domain.Task(nil), batchTasks...)
	for _, staged := range a.staged {
		if inBatch[staged.InputPath] {
			continue
		}
		staged.Index = len(out)
		out = append(out, staged)
	}
	return out
}

// CurrentBatch returns a snapshot of the most recent batch, if any.
func (a *App) CurrentBatch() (domain.Batch, bool) {
	return a.Batches.Snapshot()
}

// Progress returns overall completion of the most recent batch.
func (a *App) Progress() domain.BatchProgress {
	if _, ok := a.Batches.Snapshot(); !ok {
		return domain.BatchProgress{}
	}
	return a.Batches.Progress()
}

// BatchEvents returns all events with sequence greater than sinceSeq.
func (a *App) BatchEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// StartBatch builds output paths for the staged files and dispatches them
// to the worker pool. Configuration problems abort before any work starts;
// a batch that is already running rejects the new one untouched.
func (a *App) StartBatch(outputDir, baseName string) (domain.Batch, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Batch{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	staged := append([]domain.Task(nil), a.staged...)
	a.mu.Unlock()

	if len(staged) == 0 {
		return domain.Batch{}, errors.New("no input files: add files to process first")
	}

	dir := strings.TrimSpace(outputDir)
	if dir == "" {
		dir = settings.OutputFolder
	}
	if err := naming.EnsureOutputDir(dir); err != nil {
		return domain.Batch{}, err
	}

	inputs := make([]string, len(staged))
	for i, task := range staged {
		inputs[i] = task.InputPath
	}
	specs, err := naming.BuildTasks(inputs, dir, baseName)
	if err != nil {
		return domain.Batch{}, err
	}

	base := strings.TrimSpace(baseName)
	if base == "" {
		base = naming.DefaultBaseName
	}

	tasks := make([]domain.Task, len(staged))
	for i, src := range staged {
		tasks[i] = domain.Task{
			Index:       i,
			InputPath:   specs[i].InputPath,
			OutputPath:  specs[i].OutputPath,
			Status:      domain.TaskStatusPending,
			DisplayName: src.DisplayName,
			SizeLabel:   src.SizeLabel,
		}
	}

	batch := domain.Batch{
		ID:        uuid.NewString(),
		OutputDir: dir,
		BaseName:  base,
		CreatedAt: time.Now().UTC(),
		Tasks:     tasks,
	}
	if err := a.Batches.Begin(batch); err != nil {
		return domain.Batch{}, err
	}

	snapshot, _ := a.Batches.Snapshot()

	factory := a.newInvoke
	if factory == nil {
		factory = newConverterInvoke
	}
	handle := jobs.Dispatch(context.Background(), snapshot.Tasks, settings.MaxWorkers, factory(settings.ConverterPath))
	poller := jobs.NewPoller(a.Batches, handle, a.batchCallbacks(batch.ID))

	a.publishEvent(jobs.Event{
		BatchID:   batch.ID,
		Type:      jobs.EventTypeLog,
		TaskIndex: -1,
		Message:   fmt.Sprintf("Starting processing of %d file(s) with %d worker(s).", len(tasks), settings.MaxWorkers),
	})

	go a.pollLoop(poller)
	return snapshot, nil
}

// batchCallbacks maps poller notifications onto published UI events.
func (a *App) batchCallbacks(batchID string) jobs.Callbacks {
	lastPercent := -1
	return jobs.Callbacks{
		OnTaskStatusChanged: func(task domain.Task) {
			a.publishEvent(jobs.Event{
				BatchID:    batchID,
				Type:       jobs.EventTypeStatus,
				TaskIndex:  task.Index,
				Status:     task.Status,
				OutputPath: task.OutputPath,
			})
		},
		OnProgressChanged: func(percent int) {
			if percent == lastPercent {
				return
			}
			lastPercent = percent
			a.publishEvent(jobs.Event{
				BatchID:   batchID,
				Type:      jobs.EventTypeProgress,
				TaskIndex: -1,
				Percent:   percent,
			})
		},
		OnLogLine: func(line string) {
			a.publishEvent(jobs.Event{
				BatchID:   batchID,
				Type:      jobs.EventTypeLog,
				TaskIndex: -1,
				Message:   line,
			})
		},
		OnBatchFinished: func() {
			a.syncStagedFromBatch()
			a.publishEvent(jobs.Event{
				BatchID:   batchID,
				Type:      jobs.EventTypeFinished,
				TaskIndex: -1,
				Message:   "All tasks finished.",
			})
		},
	}
}

// pollLoop drives the completion poll on a fixed cadence until the batch
// reaches its terminal state. This goroutine is the only writer of task
// state after dispatch.
func (a *App) pollLoop(poller *jobs.Poller) {
	interval := a.pollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if progress := poller.Poll(); progress.Finished {
			return
		}
	}
}

// syncStagedFromBatch copies final batch statuses back onto the matching
// staged entries so the table keeps showing results after the batch is
// released. Files staged while the batch was running stay in the table.
func (a *App) syncStagedFromBatch() {
	batch, ok := a.Batches.Snapshot()
	if !ok {
		return
	}

	byInput := make(map[string]domain.Task, len(batch.Tasks))
	for _, task := range batch.Tasks {
		byInput[task.InputPath] = task
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for i, staged := range a.staged {
		if finished, ok := byInput[staged.InputPath]; ok {
			finished.Index = i
			a.staged[i] = finished
		}
	}
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	return a.refreshDiagnosticsFromSettings(settings), nil
}

// PickInputFiles opens a native multi-file dialog for RAW selection.
func (a *App) PickInputFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select RAW burst files",
		Filters: []wailsruntime.FileFilter{
			{
				DisplayName: "RAW files",
				Pattern:     rawDialogPattern(),
			},
			{
				DisplayName: "All files",
				Pattern:     "*",
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}

// PickOutputDirectory opens a native directory picker and persists the
// choice as the default output folder.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output folder",
	})
	if err != nil {
		return "", err
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}

	settings, err := a.Store.Load()
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}
	settings.OutputFolder = path
	if _, err := a.SaveSettings(settings); err != nil {
		return "", err
	}

	return path, nil
}

// PickConverterBinary opens a native file dialog for the dnglab executable.
func (a *App) PickConverterBinary() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select dnglab executable",
		Filters: converterDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output folder) in
// the platform file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputFolder
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "batch:event", published)
	}
}

// refreshDiagnosticsFromSettings reruns checks against given settings.
func (a *App) refreshDiagnosticsFromSettings(settings domain.Settings) domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Settings = settings
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(settings)
	}
	return a.Diagnostics
}

// stagedIndexLocked finds a staged task by input path; callers hold a.mu.
func (a *App) stagedIndexLocked(path string) int {
	for i, task := range a.staged {
		if task.InputPath == path {
			return i
		}
	}
	return -1
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
