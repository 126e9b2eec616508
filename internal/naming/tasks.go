// Package naming derives output file paths for conversion batches.
package naming

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DefaultBaseName is used when the user leaves the base name empty.
const DefaultBaseName = "output"

// ErrNoInputs is returned when a batch is started without any files.
var ErrNoInputs = errors.New("no input files")

// TaskSpec pairs one input file with its computed output path.
type TaskSpec struct {
	InputPath  string
	OutputPath string
}

// BuildTasks generates one output path per input, in input order. A single
// input gets "<base>.dng"; multiple inputs get zero-padded 1-based sequence
// numbers so output paths within the batch are pairwise unique.
func BuildTasks(inputs []string, outputDir, baseName string) ([]TaskSpec, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}

	base := strings.TrimSpace(baseName)
	if base == "" {
		base = DefaultBaseName
	}

	pad := padWidth(len(inputs))
	specs := make([]TaskSpec, 0, len(inputs))
	for i, input := range inputs {
		name := base + ".dng"
		if len(inputs) > 1 {
			name = fmt.Sprintf("%s-%0*d.dng", base, pad, i+1)
		}
		specs = append(specs, TaskSpec{
			InputPath:  input,
			OutputPath: filepath.Join(outputDir, name),
		})
	}

	return specs, nil
}

// EnsureOutputDir creates the output directory and any missing parents.
func EnsureOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}

// padWidth returns the sequence number width: at least three digits,
// wider when the batch count itself needs more.
func padWidth(count int) int {
	digits := len(strconv.Itoa(count))
	if digits < 3 {
		return 3
	}
	return digits
}
