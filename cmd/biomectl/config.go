package main

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/biomelabs/biomectl/internal/config"
	clierrors "github.com/biomelabs/biomectl/internal/errors"
	"github.com/biomelabs/biomectl/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify biomectl configuration settings.`,
	}

	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Long:  `Display all configuration settings and their current values.`,
		Example: `  biomectl config list
  biomectl config list --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()
			settings := cfg.All()

			if out.JSON {
				return out.PrintJSON(settings)
			}

			if len(settings) == 0 {
				out.Muted("No configuration set.")
				out.Println()
				out.Println("Available settings:")
				out.Print("  features.engine_mode       standalone or hosted (default: %s)\n", config.ModeStandalone)
				out.Print("  engine.port                Local engine server port (default: %d)\n", config.DefaultEnginePort)
				out.Print("  engine.model               Model identifier (default: %s)\n", config.DefaultModel)
				out.Print("  gpu_server.host            Hosted GPU server host (default: %s)\n", config.DefaultHostedHost)
				out.Print("  gpu_server.port            Hosted GPU server port (default: %d)\n", config.DefaultHostedPort)
				out.Print("  gpu_server.use_ssl         Use TLS for the hosted server (default: false)\n")
				out.Print("  features.prompt_sanitizer  Sanitize prompts locally (default: true)\n")
				out.Print("  features.seed_generation   Enable seed generation (default: true)\n")

				return nil
			}

			keys := make([]string, 0, len(settings))
			for key := range settings {
				keys = append(keys, key)
			}

			sort.Strings(keys)

			for _, key := range keys {
				out.Print("%s = %v\n", key, settings[key])
			}

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Long:    `Retrieve and display the current value of a single configuration key.`,
		Example: `  biomectl config get engine.port`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key := args[0]
			cfg := config.Load()
			value := cfg.Get(key)

			if value == nil {
				out.Muted("%s is not set", key)
				return nil
			}

			out.Print("%s = %v\n", key, value)

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set <key> <value>",
		Short:   "Set a configuration value",
		Long:    `Set a configuration key to the given value. The value is persisted to the config file.`,
		Example: `  biomectl config set features.engine_mode hosted`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key, value := args[0], args[1]
			cfg := config.Load()

			if err := cfg.Set(key, value); err != nil {
				return clierrors.ConfigFailed("set config", err)
			}

			out.Success("%s = %s", key, value)

			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show the config file path",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			out.Println(config.Load().Path())

			return nil
		},
	}
}
