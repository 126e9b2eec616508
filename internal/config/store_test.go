package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

// TestDefaultSettings verifies baseline defaults are present.
func TestDefaultSettings(t *testing.T) {
	cfg := DefaultSettings()
	if cfg.ConverterPath != "dnglab" {
		t.Fatalf("converter path = %q, want dnglab", cfg.ConverterPath)
	}
	if cfg.MaxWorkers != 2 {
		t.Fatalf("max workers = %d, want 2", cfg.MaxWorkers)
	}
	if filepath.Base(cfg.OutputFolder) != "Desktop" {
		t.Fatalf("output folder = %q, want a Desktop path", cfg.OutputFolder)
	}
}

// TestJSONStoreLoadMissingReturnsDefaults checks first-run behavior.
func TestJSONStoreLoadMissingReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "settings.json")
	store := NewJSONStore(path)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != DefaultSettings() {
		t.Fatalf("settings = %+v, want defaults", got)
	}
}

// TestJSONStoreSaveAndLoadRoundTrip checks persisted settings fidelity.
func TestJSONStoreSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	store := NewJSONStore(path)
	want := domain.Settings{
		OutputFolder:  "/out",
		ConverterPath: "/opt/dnglab/bin/dnglab",
		MaxWorkers:    4,
	}

	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
}

// TestJSONStoreLoadCorruptFallsBackToDefaults checks the corrupt-file policy:
// a broken preferences file must not prevent the app from starting.
func TestJSONStoreLoadCorruptFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not-json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewJSONStore(path)
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != DefaultSettings() {
		t.Fatalf("settings = %+v, want defaults", got)
	}
}

// TestJSONStoreLoadPartialKeysKeepDefaults checks per-key fallback.
func TestJSONStoreLoadPartialKeysKeepDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "settings.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(`{"output_folder":"/photos/out"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := NewJSONStore(path)
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.OutputFolder != "/photos/out" {
		t.Fatalf("output folder = %q", got.OutputFolder)
	}
	if got.ConverterPath != "dnglab" || got.MaxWorkers != 2 {
		t.Fatalf("missing keys not defaulted: %+v", got)
	}
}

// TestNormalizeClampsWorkerCount checks the 1..8 worker bound.
func TestNormalizeClampsWorkerCount(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{in: -3, want: 1},
		{in: 0, want: 1},
		{in: 1, want: 1},
		{in: 8, want: 8},
		{in: 64, want: 8},
	}

	for _, tc := range cases {
		got := Normalize(domain.Settings{
			OutputFolder:  "/out",
			ConverterPath: "dnglab",
			MaxWorkers:    tc.in,
		})
		if got.MaxWorkers != tc.want {
			t.Fatalf("Normalize(%d) workers = %d, want %d", tc.in, got.MaxWorkers, tc.want)
		}
	}
}
