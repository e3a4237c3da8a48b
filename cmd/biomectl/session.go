package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/biomelabs/biomectl/internal/auth"
	"github.com/biomelabs/biomectl/internal/config"
	"github.com/biomelabs/biomectl/internal/engine"
	clierrors "github.com/biomelabs/biomectl/internal/errors"
	"github.com/biomelabs/biomectl/internal/output"
	"github.com/biomelabs/biomectl/internal/portalui"
	"github.com/biomelabs/biomectl/internal/session"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Run interactive sessions against the engine",
	}

	cmd.AddCommand(newSessionStartCmd())

	return cmd
}

func newSessionStartCmd() *cobra.Command {
	var (
		mode  string
		port  int
		model string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Open an interactive session",
		Long: `Open the interactive session surface. In standalone mode the engine
server is started on demand; in hosted mode the configured GPU server is
used directly.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			ctx := cmd.Context()

			if !out.Terminal().InteractiveEnabled() {
				return clierrors.New(clierrors.ExitUsage, "Interactive session requires a terminal").
					WithHint("Run 'biomectl engine start' for non-interactive supervision")
			}

			cfg := config.Load()

			if mode == "" {
				mode = cfg.EngineMode()
			}

			if mode != config.ModeStandalone && mode != config.ModeHosted {
				return clierrors.InvalidEngineMode(mode)
			}

			if port == 0 {
				port = cfg.EnginePort()
			}

			if model == "" {
				model = cfg.Model()
			}

			_, token := auth.GetToken()

			registry := &engine.Registry{}
			events := engine.NewBroadcaster()
			supervisor := engine.NewSupervisor(registry, events)
			orchestrator := session.NewOrchestrator(cfg, registry, supervisor)

			m := portalui.New(ctx, portalui.Session{
				Portal:       session.NewPortal(),
				Orchestrator: orchestrator,
				Events:       events,
				Mode:         mode,
				Port:         port,
				Model:        model,
				Models:       cfg.AvailableModels(),
				Token:        token,
			})

			program := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen())
			if _, err := program.Run(); err != nil {
				return clierrors.Wrap(clierrors.ExitExecution, "Session surface failed", err)
			}

			// A supervised server does not outlive the session.
			if supervisor.Running() {
				if _, err := supervisor.Stop(ctx); err != nil && !clierrors.HasKind(err, clierrors.KindNoProcess) {
					return err
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "", "Engine mode: standalone or hosted (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "Engine server port (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Model identifier (default from config)")

	return cmd
}
