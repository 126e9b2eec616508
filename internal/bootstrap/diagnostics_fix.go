package bootstrap

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/config"
	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/diagnostics"
	"github.com/alchemy-color/Canon-Raw-Brust-DNG-Extractor/internal/domain"
)

const (
	converterReleaseBaseURL  = "https://github.com/dnglab/dnglab/releases/latest/download"
	converterDownloadTimeout = 15 * time.Minute
)

// InstallOrFixDiagnostic applies a remediation for one failed diagnostic
// item: downloading the converter binary into the per-user bin directory,
// or resetting the output folder to its default.
func (a *App) InstallOrFixDiagnostic(itemID string) (domain.DiagnosticReport, error) {
	if a.Store == nil {
		return domain.DiagnosticReport{}, fmt.Errorf("settings store is not configured")
	}

	id := strings.TrimSpace(itemID)
	if id == "" {
		return domain.DiagnosticReport{}, fmt.Errorf("diagnostic item id is required")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	settingsChanged := false
	var fixErr error

	switch id {
	case diagnostics.ConverterItemID:
		settings, settingsChanged, fixErr = installConverter(settings)
	case diagnostics.OutputFolderItemID:
		settings, settingsChanged, fixErr = resetOutputFolder(settings)
	default:
		return domain.DiagnosticReport{}, fmt.Errorf("unsupported diagnostic item id: %s", id)
	}

	if settingsChanged {
		if saveErr := a.Store.Save(settings); saveErr != nil {
			report := a.refreshDiagnosticsFromSettings(settings)
			return report, fmt.Errorf("save settings after fix: %w", saveErr)
		}
	}

	report := a.refreshDiagnosticsFromSettings(settings)
	if fixErr != nil {
		return report, fixErr
	}
	return report, nil
}

// installConverter downloads the dnglab release binary for this platform
// into the per-user bin directory and points the settings at it.
func installConverter(settings domain.Settings) (domain.Settings, bool, error) {
	asset, err := converterAssetName(goruntime.GOOS, goruntime.GOARCH)
	if err != nil {
		return settings, false, err
	}

	targetName := "dnglab"
	if goruntime.GOOS == "windows" {
		targetName = "dnglab.exe"
	}
	target := filepath.Join(localBinDir(), targetName)

	if err := downloadFile(converterReleaseBaseURL+"/"+asset, target); err != nil {
		return settings, false, fmt.Errorf("download converter: %w", err)
	}
	if err := os.Chmod(target, 0o755); err != nil {
		return settings, false, fmt.Errorf("mark converter executable: %w", err)
	}

	settings.ConverterPath = target
	return settings, true, nil
}

// resetOutputFolder falls back to the default folder and creates it.
func resetOutputFolder(settings domain.Settings) (domain.Settings, bool, error) {
	defaults := config.DefaultSettings()
	if err := os.MkdirAll(defaults.OutputFolder, 0o755); err != nil {
		return settings, false, fmt.Errorf("create default output folder: %w", err)
	}

	settings.OutputFolder = defaults.OutputFolder
	return settings, true, nil
}

// converterAssetName maps the platform onto the published release asset.
func converterAssetName(goos, goarch string) (string, error) {
	switch goos + "/" + goarch {
	case "linux/amd64":
		return "dnglab-linux-x86_64", nil
	case "linux/arm64":
		return "dnglab-linux-aarch64", nil
	case "darwin/amd64":
		return "dnglab-macos-x86_64", nil
	case "darwin/arm64":
		return "dnglab-macos-aarch64", nil
	case "windows/amd64":
		return "dnglab-windows-x86_64.exe", nil
	default:
		return "", fmt.Errorf("no converter build published for %s/%s", goos, goarch)
	}
}

// downloadFile fetches one URL into target, creating parent directories.
func downloadFile(url, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	client := &http.Client{Timeout: converterDownloadTimeout}
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s for %s", resp.Status, url)
	}

	tmp := target + ".partial"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, target)
}

// localBinDir is where downloaded tools live; it sits next to the
// settings file so everything the app owns stays in one place.
func localBinDir() string {
	return filepath.Join(filepath.Dir(config.DefaultPath()), "bin")
}

// ensureLocalBinOnPATH makes downloaded tools resolvable by name.
func ensureLocalBinOnPATH() error {
	binDir := localBinDir()
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}

	current := os.Getenv("PATH")
	for _, entry := range filepath.SplitList(current) {
		if filepath.Clean(entry) == filepath.Clean(binDir) {
			return nil
		}
	}

	if current == "" {
		return os.Setenv("PATH", binDir)
	}
	return os.Setenv("PATH", binDir+string(os.PathListSeparator)+current)
}
