package engine

import (
	"context"

	"github.com/biomelabs/biomectl/internal/toolchain"
)

// Status itemizes the installable components of the local engine.
type Status struct {
	ToolchainInstalled bool
	ServerFilesPresent bool
	DependenciesSynced bool
	ServerVersion      string
}

// Complete reports whether every component is present.
func (s Status) Complete() bool {
	return s.ToolchainInstalled && s.ServerFilesPresent && s.DependenciesSynced
}

// Missing names the absent components in install order.
func (s Status) Missing() []string {
	var missing []string

	if !s.ToolchainInstalled {
		missing = append(missing, "toolchain")
	}

	if !s.ServerFilesPresent {
		missing = append(missing, "server files")
	}

	if !s.DependenciesSynced {
		missing = append(missing, "dependencies")
	}

	return missing
}

// Probe checks each installable component on disk.
func Probe(ctx context.Context) (Status, error) {
	status := Status{
		ToolchainInstalled: toolchain.Installed(ctx),
	}

	filesOK, err := ServerFilesInstalled()
	if err != nil {
		return status, err
	}
	status.ServerFilesPresent = filesOK

	synced, err := DependenciesSynced(ctx)
	if err != nil {
		return status, err
	}
	status.DependenciesSynced = synced

	if version, verErr := ServerVersion(); verErr == nil {
		status.ServerVersion = version
	}

	return status, nil
}
