// Package diagnostics validates the converter executable and output
// folder before any batch work starts.
package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

// ConverterItemID identifies the converter executable check.
const ConverterItemID = "tool_converter"

// OutputFolderItemID identifies the output folder check.
const OutputFolderItemID = "output_folder"

// Checker validates the external converter and required filesystem paths.
type Checker struct {
	lookPath   func(string) (string, error)
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		lookPath:   exec.LookPath,
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkConverter(settings.ConverterPath),
		c.checkOutputFolder(settings.OutputFolder),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkConverter accepts either an executable file path or a command name
// resolvable on PATH.
func (c *Checker) checkConverter(converterPath string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   ConverterItemID,
		Name: "DNG converter",
	}

	path := strings.TrimSpace(converterPath)
	if path == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Converter path is empty."
		item.Hint = "Set the dnglab executable path in preferences or install dnglab on PATH."
		item.FixAvailable = true
		return item
	}

	if info, err := c.stat(path); err == nil && !info.IsDir() {
		if info.Mode()&0o111 != 0 {
			item.Status = domain.DiagnosticStatusPass
			item.Message = fmt.Sprintf("Converter executable: %s", path)
			return item
		}

		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Converter file is not executable: %s", path)
		item.Hint = "Fix the file permissions or point preferences at the dnglab binary."
		item.FixAvailable = true
		return item
	}

	resolved, err := c.lookPath(path)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Converter not found in PATH: %s", path)
		item.Hint = "Install dnglab and ensure it is on PATH, or set an absolute path in preferences."
		item.FixAvailable = true
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Found at %s", resolved)
	return item
}

// checkOutputFolder validates output folder existence and write access.
func (c *Checker) checkOutputFolder(outputFolder string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   OutputFolderItemID,
		Name: "Output folder",
	}

	if strings.TrimSpace(outputFolder) == "" {
		item.Status = domain.DiagnosticStatusFail
		item.Message = "Output folder is empty."
		item.Hint = "Choose a folder where converted DNG files can be written."
		item.FixAvailable = true
		return item
	}

	if err := c.mkdirAll(outputFolder, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output folder: %s", outputFolder)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		item.FixAvailable = true
		return item
	}

	tmpFile, err := c.createTemp(outputFolder, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output folder is not writable: %s", outputFolder)
		item.Hint = "Choose a writable folder for DNG export."
		item.FixAvailable = true
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable folder: %s", outputFolder)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	lookPath func(string) (string, error),
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		lookPath:   lookPath,
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
