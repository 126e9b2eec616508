package bootstrap

import (
	"path/filepath"
	"strings"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

// rawFormatCatalog lists the camera RAW formats offered in the file
// dialog filter. Other files can still be dropped in; the converter is
// the final judge of what it can read.
var rawFormatCatalog = []domain.RawFormat{
	{
		ID:        "cr3",
		Name:      "Canon RAW 3",
		Extension: ".cr3",
		Vendor:    "Canon",
	},
	{
		ID:        "cr2",
		Name:      "Canon RAW 2",
		Extension: ".cr2",
		Vendor:    "Canon",
	},
	{
		ID:        "nef",
		Name:      "Nikon Electronic Format",
		Extension: ".nef",
		Vendor:    "Nikon",
	},
	{
		ID:        "arw",
		Name:      "Sony Alpha RAW",
		Extension: ".arw",
		Vendor:    "Sony",
	},
	{
		ID:        "dng",
		Name:      "Digital Negative",
		Extension: ".dng",
		Vendor:    "Adobe",
	},
}

// SupportedRawFormats returns the accepted input formats for the UI.
func (a *App) SupportedRawFormats() []domain.RawFormat {
	return append([]domain.RawFormat(nil), rawFormatCatalog...)
}

// rawDialogPattern builds the native file dialog filter pattern.
func rawDialogPattern() string {
	patterns := make([]string, 0, len(rawFormatCatalog))
	for _, format := range rawFormatCatalog {
		patterns = append(patterns, "*"+format.Extension)
	}
	return strings.Join(patterns, ";")
}

// isRawCandidate reports whether a file carries a known RAW extension.
func isRawCandidate(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range rawFormatCatalog {
		if ext == format.Extension {
			return true
		}
	}
	return false
}
