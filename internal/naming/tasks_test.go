package naming

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// TestBuildTasksSingleInput checks the unnumbered single-file name.
func TestBuildTasksSingleInput(t *testing.T) {
	specs, err := BuildTasks([]string{"/in/a.cr3"}, "/out", "holiday")
	if err != nil {
		t.Fatalf("BuildTasks() error = %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("len = %d, want 1", len(specs))
	}
	if specs[0].OutputPath != filepath.Join("/out", "holiday.dng") {
		t.Fatalf("output = %q", specs[0].OutputPath)
	}
}

// TestBuildTasksBurstNumbering checks the zero-padded sequence naming.
func TestBuildTasksBurstNumbering(t *testing.T) {
	inputs := []string{"/in/a.cr3", "/in/b.cr3", "/in/c.cr3"}
	specs, err := BuildTasks(inputs, "/out", "burst")
	if err != nil {
		t.Fatalf("BuildTasks() error = %v", err)
	}

	want := []string{
		filepath.Join("/out", "burst-001.dng"),
		filepath.Join("/out", "burst-002.dng"),
		filepath.Join("/out", "burst-003.dng"),
	}
	for i, spec := range specs {
		if spec.InputPath != inputs[i] {
			t.Fatalf("input order changed: %q at %d", spec.InputPath, i)
		}
		if spec.OutputPath != want[i] {
			t.Fatalf("output[%d] = %q, want %q", i, spec.OutputPath, want[i])
		}
	}
}

// TestBuildTasksOutputsUnique checks pairwise-unique output paths.
func TestBuildTasksOutputsUnique(t *testing.T) {
	inputs := make([]string, 12)
	for i := range inputs {
		inputs[i] = fmt.Sprintf("/in/frame-%d.cr3", i)
	}

	specs, err := BuildTasks(inputs, "/out", "")
	if err != nil {
		t.Fatalf("BuildTasks() error = %v", err)
	}

	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if seen[spec.OutputPath] {
			t.Fatalf("duplicate output path: %q", spec.OutputPath)
		}
		seen[spec.OutputPath] = true
	}
	if specs[0].OutputPath != filepath.Join("/out", "output-001.dng") {
		t.Fatalf("default base name not applied: %q", specs[0].OutputPath)
	}
}

// TestBuildTasksEmptyInputs checks batch-setup rejection.
func TestBuildTasksEmptyInputs(t *testing.T) {
	if _, err := BuildTasks(nil, "/out", "x"); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("error = %v, want %v", err, ErrNoInputs)
	}
}

// TestPadWidth checks the minimum-three-digit padding rule.
func TestPadWidth(t *testing.T) {
	cases := []struct {
		count int
		want  int
	}{
		{count: 1, want: 3},
		{count: 99, want: 3},
		{count: 999, want: 3},
		{count: 1000, want: 4},
		{count: 25000, want: 5},
	}
	for _, tc := range cases {
		if got := padWidth(tc.count); got != tc.want {
			t.Fatalf("padWidth(%d) = %d, want %d", tc.count, got, tc.want)
		}
	}
}

// TestEnsureOutputDirCreatesParents checks nested directory creation.
func TestEnsureOutputDirCreatesParents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "deep", "nested", "out")
	if err := EnsureOutputDir(dir); err != nil {
		t.Fatalf("EnsureOutputDir() error = %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}
}

// TestEnsureOutputDirRejectsEmpty checks missing-folder validation.
func TestEnsureOutputDirRejectsEmpty(t *testing.T) {
	if err := EnsureOutputDir("  "); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
