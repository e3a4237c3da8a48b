package main

import (
	"github.com/spf13/cobra"

	"github.com/biomelabs/biomectl/internal/auth"
	"github.com/biomelabs/biomectl/internal/config"
	"github.com/biomelabs/biomectl/internal/output"
	"github.com/biomelabs/biomectl/internal/paths"
)

// PathsInfo holds all resolved paths for JSON output.
type PathsInfo struct {
	ConfigRoot  string `json:"config_root"`
	StateRoot   string `json:"state_root"`
	DataRoot    string `json:"data_root"`
	ConfigFile  string `json:"config_file"`
	Credentials string `json:"credentials"`
	LogFile     string `json:"log_file"`
	ServerLog   string `json:"server_log"`
	EngineDir   string `json:"engine_dir"`
	Toolchain   string `json:"toolchain"`
	UpdateState string `json:"update_state"`
	EngineMode  string `json:"engine_mode"`
	AuthSource  string `json:"auth_source"`
}

func newPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Show where biomectl stores files",
		Long: `Display all file and directory paths used by biomectl.

Useful for debugging, scripting, and understanding where configuration,
state, engine files, and credentials are stored on this system.`,
		Example: `  biomectl paths
  biomectl paths --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			info := resolvePathsInfo()

			if out.JSON {
				return out.PrintJSON(info)
			}

			out.Print("Config root:    %s\n", info.ConfigRoot)
			out.Print("State root:     %s\n", info.StateRoot)
			out.Print("Data root:      %s\n", info.DataRoot)
			out.Print("\n")
			out.Print("Config file:    %s\n", info.ConfigFile)
			out.Print("Credentials:    %s\n", info.Credentials)
			out.Print("Log file:       %s\n", info.LogFile)
			out.Print("Server log:     %s\n", info.ServerLog)
			out.Print("Engine dir:     %s\n", info.EngineDir)
			out.Print("Toolchain:      %s\n", info.Toolchain)
			out.Print("Update state:   %s\n", info.UpdateState)
			out.Print("\n")
			out.Print("Engine mode:    %s\n", info.EngineMode)
			out.Print("Auth source:    %s\n", info.AuthSource)

			return nil
		},
	}
}

func resolvePathsInfo() PathsInfo {
	info := PathsInfo{}

	info.ConfigRoot = resolveOrError(paths.ConfigRoot)
	info.StateRoot = resolveOrError(paths.StateRoot)
	info.DataRoot = resolveOrError(paths.DataRoot)
	info.LogFile = resolveOrError(paths.DefaultLogFile)
	info.ServerLog = resolveOrError(paths.ServerLogFile)
	info.EngineDir = resolveOrError(paths.EngineDir)
	info.Toolchain = resolveOrError(paths.ToolchainBinary)
	info.UpdateState = resolveOrError(paths.UpdateStateFile)
	info.Credentials = resolveOrError(paths.CredentialsFile)

	cfg := config.Load()
	info.ConfigFile = cfg.Path()
	info.EngineMode = cfg.EngineMode()

	source, token := auth.GetToken()
	if token == "" {
		info.AuthSource = "not authenticated"
	} else {
		info.AuthSource = string(source)
	}

	return info
}

func resolveOrError(fn func() (string, error)) string {
	path, err := fn()
	if err != nil {
		return "<error: " + err.Error() + ">"
	}

	return path
}
