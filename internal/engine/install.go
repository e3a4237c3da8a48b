package engine

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/biomelabs/biomectl/internal/paths"
)

//go:embed assets
var serverAssets embed.FS

// manifest describes the embedded server files.
type manifest struct {
	Version string         `toml:"version"`
	Files   []manifestFile `toml:"files"`
}

type manifestFile struct {
	Name string `toml:"name"`
}

// InstallSummary reports what InstallServerFiles did.
type InstallSummary struct {
	Dir     string
	Version string
	Written []string
	Skipped []string
}

// ServerVersion returns the embedded server component version.
func ServerVersion() (string, error) {
	m, err := loadManifest()
	if err != nil {
		return "", err
	}

	return m.Version, nil
}

// InstallServerFiles writes the embedded server files into the engine
// directory. Files already present are left alone unless force is set, so
// local edits survive a reinstall and a repeated install copies nothing.
// The supervisor forces a refresh on Start so the server code tracks the
// CLI version.
func InstallServerFiles(force bool) (*InstallSummary, error) {
	dir, err := paths.EngineDir()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create engine directory: %w", err)
	}

	m, err := loadManifest()
	if err != nil {
		return nil, err
	}

	summary := &InstallSummary{Dir: dir, Version: m.Version}

	for _, f := range m.Files {
		dest := filepath.Join(dir, f.Name)

		if !force {
			if _, statErr := os.Stat(dest); statErr == nil {
				summary.Skipped = append(summary.Skipped, f.Name)
				continue
			}
		}

		data, readErr := serverAssets.ReadFile("assets/" + f.Name)
		if readErr != nil {
			return nil, fmt.Errorf("read embedded %s: %w", f.Name, readErr)
		}

		if writeErr := os.WriteFile(dest, data, 0o644); writeErr != nil {
			return nil, fmt.Errorf("write %s: %w", f.Name, writeErr)
		}

		summary.Written = append(summary.Written, f.Name)
	}

	return summary, nil
}

// ServerFilesInstalled reports whether every manifest file exists on disk.
func ServerFilesInstalled() (bool, error) {
	dir, err := paths.EngineDir()
	if err != nil {
		return false, err
	}

	m, err := loadManifest()
	if err != nil {
		return false, err
	}

	for _, f := range m.Files {
		if _, statErr := os.Stat(filepath.Join(dir, f.Name)); statErr != nil {
			return false, nil
		}
	}

	return true, nil
}

func loadManifest() (*manifest, error) {
	data, err := serverAssets.ReadFile("assets/manifest.toml")
	if err != nil {
		return nil, fmt.Errorf("read embedded manifest: %w", err)
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse embedded manifest: %w", err)
	}

	return &m, nil
}
