package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/biomelabs/biomectl/internal/auth"
	"github.com/biomelabs/biomectl/internal/config"
	"github.com/biomelabs/biomectl/internal/engine"
	clierrors "github.com/biomelabs/biomectl/internal/errors"
	"github.com/biomelabs/biomectl/internal/output"
	"github.com/biomelabs/biomectl/internal/paths"
	"github.com/biomelabs/biomectl/internal/toolchain"
	"github.com/biomelabs/biomectl/internal/transport"
)

func newEngineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engine",
		Short: "Manage the local inference engine",
		Long: `Manage the locally-supervised Biome inference engine: install its
toolchain and server files, sync dependencies, and run the server process.`,
	}

	cmd.AddCommand(newEngineStatusCmd())
	cmd.AddCommand(newEngineSetupCmd())
	cmd.AddCommand(newEngineInstallCmd())
	cmd.AddCommand(newEngineSyncCmd())
	cmd.AddCommand(newEngineStartCmd())
	cmd.AddCommand(newEngineStopCmd())
	cmd.AddCommand(newEngineLogsCmd())

	return cmd
}

// EngineStatusInfo is the JSON shape of 'engine status'.
type EngineStatusInfo struct {
	ToolchainInstalled bool   `json:"toolchainInstalled"`
	ServerFilesPresent bool   `json:"serverFilesPresent"`
	DependenciesSynced bool   `json:"dependenciesSynced"`
	ServerVersion      string `json:"serverVersion,omitempty"`
	ServerRunning      bool   `json:"serverRunning"`
	ServerPort         int    `json:"serverPort,omitempty"`
	ServerLogPath      string `json:"serverLogPath,omitempty"`
}

func newEngineStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the engine install and process state",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			status, err := engine.Probe(cmd.Context())
			if err != nil {
				return err
			}

			port := config.Load().EnginePort()
			running := portListening(port)
			logPath, _ := paths.ServerLogFile()

			if out.JSON {
				return out.PrintJSON(EngineStatusInfo{
					ToolchainInstalled: status.ToolchainInstalled,
					ServerFilesPresent: status.ServerFilesPresent,
					DependenciesSynced: status.DependenciesSynced,
					ServerVersion:      status.ServerVersion,
					ServerRunning:      running,
					ServerPort:         port,
					ServerLogPath:      logPath,
				})
			}

			printComponent(out, "Toolchain", status.ToolchainInstalled)
			printComponent(out, "Server files", status.ServerFilesPresent)
			printComponent(out, "Dependencies", status.DependenciesSynced)

			if running {
				out.Success("Server listening on port %d", port)
			} else {
				out.Muted("Server not listening (port %d)", port)
			}

			if logPath != "" {
				out.Muted("Log: %s", logPath)
			}

			return nil
		},
	}
}

func printComponent(out *output.Writer, name string, present bool) {
	if present {
		out.Success("%s installed", name)
	} else {
		out.Warning("%s missing", name)
	}
}

func newEngineSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Install the toolchain, server files, and dependencies",
		Long: `Perform the full engine installation: download the isolated toolchain,
write the bundled server files, and sync the Python dependencies.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			ctx := cmd.Context()

			spin := out.Spinner("Installing toolchain")
			spin.Start()

			bin, err := toolchain.Ensure(ctx)
			if err != nil {
				spin.StopWithFailure("Toolchain install failed")
				return err
			}

			spin.StopWithSuccess("Toolchain installed")

			summary, err := engine.InstallServerFiles(false)
			if err != nil {
				return err
			}

			out.Success("Server files v%s in %s (%d written, %d kept)",
				summary.Version, summary.Dir, len(summary.Written), len(summary.Skipped))

			spin = out.Spinner("Syncing dependencies")
			spin.Start()

			if err := engine.SyncDependencies(ctx, bin); err != nil {
				spin.StopWithFailure("Dependency sync failed")
				return err
			}

			spin.StopWithSuccess("Dependencies synced")
			out.Success("Engine ready — run 'biomectl engine start'")

			return nil
		},
	}
}

func newEngineInstallCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the bundled engine server files",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			summary, err := engine.InstallServerFiles(force)
			if err != nil {
				return err
			}

			if out.JSON {
				return out.PrintJSON(summary)
			}

			for _, name := range summary.Written {
				out.Success("wrote %s", name)
			}

			for _, name := range summary.Skipped {
				out.Muted("kept %s", name)
			}

			out.Success("Server files v%s installed in %s", summary.Version, summary.Dir)

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite files the user may have edited")

	return cmd
}

func newEngineSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync the engine server's dependencies",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			ctx := cmd.Context()

			bin, err := toolchain.Ensure(ctx)
			if err != nil {
				return err
			}

			spin := out.Spinner("Syncing dependencies")
			spin.Start()

			if err := engine.SyncDependencies(ctx, bin); err != nil {
				spin.StopWithFailure("Dependency sync failed")
				return err
			}

			spin.StopWithSuccess("Dependencies synced")

			return nil
		},
	}
}

func newEngineStartCmd() *cobra.Command {
	var (
		port  int
		model string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start and supervise the engine server",
		Long: `Start the engine server and supervise it in the foreground, streaming
its log output. Press Ctrl+C to stop the server and exit.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			ctx := cmd.Context()

			cfg := config.Load()
			if port == 0 {
				port = cfg.EnginePort()
			}

			if model == "" {
				model = cfg.Model()
			}

			registry := &engine.Registry{}
			events := engine.NewBroadcaster()
			supervisor := engine.NewSupervisor(registry, events)

			lines, unsub := events.Subscribe()
			defer unsub()

			done := make(chan struct{})

			go func() {
				defer close(done)

				for ev := range lines {
					switch ev.Kind {
					case engine.ProgressLine:
						out.Progress(ev.Stage.Label, int(ev.Stage.Percent))
					case engine.ReadySignal:
						out.Success("Engine server ready on port %d", port)
					default:
						out.Muted("%s", ev.Line)
					}
				}
			}()

			if err := supervisor.Start(ctx, port, model); err != nil {
				return err
			}

			out.Info("Engine server starting (pid %d, port %d, model %s)",
				registry.Get().PID, port, model)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-sigCh:
				out.Println()
				out.Info("Stopping engine server")

				stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				summary, err := supervisor.Stop(stopCtx)
				if err != nil && !clierrors.HasKind(err, clierrors.KindNoProcess) {
					return err
				}

				if summary != nil {
					out.Muted("Stopped pid %d", summary.PID)
				}
			case <-ctx.Done():
				return ctx.Err()
			case <-waitExit(supervisor):
				events.Close()
				<-done

				return clierrors.Wrap(clierrors.ExitExecution, "Engine server exited", nil).
					WithHint("Inspect the log with 'biomectl engine logs'")
			}

			events.Close()
			<-done
			out.Success("Engine server stopped")

			return nil
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Port for the engine server (default from config)")
	cmd.Flags().StringVar(&model, "model", "", "Model identifier to load (default from config)")

	return cmd
}

// waitExit returns a channel that closes when the supervised process exits.
func waitExit(supervisor *engine.Supervisor) <-chan struct{} {
	ch := make(chan struct{})

	go func() {
		defer close(ch)

		for supervisor.Running() {
			time.Sleep(500 * time.Millisecond)
		}
	}()

	return ch
}

func newEngineStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running engine server",
		Long: `Ask the engine server on the configured port to shut down via its
administrative endpoint. Works for servers started by another biomectl
process; a supervised foreground server stops with Ctrl+C.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			port := cfg.EnginePort()
			base := fmt.Sprintf("http://localhost:%d", port)

			if cfg.EngineMode() == config.ModeHosted {
				base = cfg.AdminURL()
			}

			_, token := auth.GetToken()
			admin := transport.NewAdminClient(base, token)

			if !admin.Reachable(cmd.Context()) {
				return clierrors.NoProcess()
			}

			if err := admin.Shutdown(cmd.Context()); err != nil {
				return err
			}

			out.Success("Shutdown requested (%s)", base)

			return nil
		},
	}
}

func newEngineLogsCmd() *cobra.Command {
	var (
		tailCount int
		follow    bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show engine server logs",
		Long: `Show the persisted engine server log. In hosted mode, --follow polls
the remote server's log endpoint instead.`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			if follow && cfg.EngineMode() == config.ModeHosted {
				return followHostedLogs(cmd.Context(), out, cfg)
			}

			logPath, err := paths.ServerLogFile()
			if err != nil {
				return err
			}

			lines, err := engine.TailLines(logPath, tailCount)
			if err != nil {
				return err
			}

			if len(lines) == 0 {
				out.Muted("No server log at %s", logPath)
				return nil
			}

			out.Println(strings.Join(lines, "\n"))

			return nil
		},
	}

	cmd.Flags().IntVarP(&tailCount, "tail", "n", 100, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Poll a hosted server's logs continuously")

	return cmd
}

func portListening(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 500*time.Millisecond)
	if err != nil {
		return false
	}

	conn.Close()

	return true
}

func followHostedLogs(ctx context.Context, out *output.Writer, cfg *config.Config) error {
	_, token := auth.GetToken()
	admin := transport.NewAdminClient(cfg.AdminURL(), token)

	if !admin.Reachable(ctx) {
		return clierrors.Transport(fmt.Errorf("hosted server %s not reachable", cfg.AdminURL()))
	}

	out.Info("Polling %s/logs (Ctrl+C to stop)", cfg.AdminURL())

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	poller := transport.NewLogPoller(admin, func(line string) {
		out.Println(line)
	})
	poller.Run(ctx)

	return nil
}
