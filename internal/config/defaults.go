package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

const (
	// DefaultConverterPath is used when no converter is configured.
	// It may be an absolute path or a command resolvable on PATH.
	DefaultConverterPath = "dnglab"

	// DefaultMaxWorkers bounds concurrent conversions out of the box.
	DefaultMaxWorkers = 2

	// MinWorkers and MaxWorkers delimit the accepted worker count range.
	MinWorkers = 1
	MaxWorkers = 8
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	return domain.Settings{
		OutputFolder:  filepath.Join(homeDir, "Desktop"),
		ConverterPath: DefaultConverterPath,
		MaxWorkers:    DefaultMaxWorkers,
	}
}

// DefaultPath returns the per-user settings file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "dng-extractor", "settings.json")
}

// Normalize trims user input and clamps the worker count into range.
func Normalize(settings domain.Settings) domain.Settings {
	settings.OutputFolder = strings.TrimSpace(settings.OutputFolder)
	settings.ConverterPath = strings.TrimSpace(settings.ConverterPath)

	if settings.OutputFolder == "" {
		settings.OutputFolder = DefaultSettings().OutputFolder
	}
	if settings.ConverterPath == "" {
		settings.ConverterPath = DefaultConverterPath
	}
	if settings.MaxWorkers < MinWorkers {
		settings.MaxWorkers = MinWorkers
	}
	if settings.MaxWorkers > MaxWorkers {
		settings.MaxWorkers = MaxWorkers
	}
	return settings
}
