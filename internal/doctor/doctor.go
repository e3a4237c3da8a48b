// Package doctor provides diagnostic checks for biomectl health.
//
// This package implements a check framework that validates:
//   - Toolchain installation and version
//   - Engine server files and dependency environment
//   - Engine server process and port
//   - Hosted GPU server reachability (hosted mode only)
//   - Credential token presence
//   - CLI version against latest release
package doctor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/biomelabs/biomectl/internal/auth"
	"github.com/biomelabs/biomectl/internal/buildinfo"
	"github.com/biomelabs/biomectl/internal/config"
	"github.com/biomelabs/biomectl/internal/engine"
	"github.com/biomelabs/biomectl/internal/toolchain"
	"github.com/biomelabs/biomectl/internal/transport"
	"github.com/biomelabs/biomectl/internal/update"
)

// Status represents the result of a diagnostic check.
type Status int

const (
	// StatusPass indicates the check passed.
	StatusPass Status = iota
	// StatusWarn indicates a non-critical issue.
	StatusWarn
	// StatusFail indicates a critical failure.
	StatusFail
)

// Symbol returns the display symbol for the status.
func (s Status) Symbol() string {
	switch s {
	case StatusPass:
		return "✓"
	case StatusWarn:
		return "⚠"
	case StatusFail:
		return "✗"
	default:
		return "?"
	}
}

// Result holds the outcome of a single check.
type Result struct {
	Name    string
	Status  Status
	Message string
	Detail  string // Optional additional detail
}

// Check is a diagnostic check function.
type Check func(ctx context.Context) Result

// Runner executes diagnostic checks.
type Runner struct {
	registry *engine.Registry
	checks   []namedCheck
}

type namedCheck struct {
	name  string
	check Check
}

// New creates a new diagnostic runner.
func New(registry *engine.Registry) *Runner {
	r := &Runner{registry: registry}

	r.AddCheck("Toolchain", checkToolchain)
	r.AddCheck("Server Files", checkServerFiles)
	r.AddCheck("Dependencies", checkDependencies)
	r.AddCheck("Engine Server", r.checkEngineServer)
	r.AddCheck("Hosted Server", checkHostedServer)
	r.AddCheck("Credentials", checkCredentials)
	r.AddCheck("CLI Version", checkCLIVersion)

	return r
}

// AddCheck registers a diagnostic check.
func (r *Runner) AddCheck(name string, check Check) {
	r.checks = append(r.checks, namedCheck{name: name, check: check})
}

// Run executes all registered checks and returns the results.
func (r *Runner) Run(ctx context.Context) []Result {
	results := make([]Result, 0, len(r.checks))

	for _, nc := range r.checks {
		result := nc.check(ctx)
		result.Name = nc.name
		results = append(results, result)
	}

	return results
}

// Summary returns counts of passed, failed, and warning checks.
func Summary(results []Result) (passed, failed, warnings int) {
	for _, r := range results {
		switch r.Status {
		case StatusPass:
			passed++
		case StatusFail:
			failed++
		case StatusWarn:
			warnings++
		}
	}

	return passed, failed, warnings
}

func checkToolchain(ctx context.Context) Result {
	if !toolchain.Installed(ctx) {
		return Result{
			Status:  StatusFail,
			Message: "Not installed",
			Detail:  "Run 'biomectl engine setup' to install the toolchain",
		}
	}

	version, err := toolchain.InstalledVersion(ctx)
	if err != nil {
		return Result{
			Status:  StatusWarn,
			Message: "Installed, version unknown",
			Detail:  err.Error(),
		}
	}

	if !toolchain.UpToDate(ctx) {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("v%s (pinned: v%s)", version, toolchain.Version),
			Detail:  "Delete the toolchain binary and run 'biomectl engine setup' to refresh",
		}
	}

	return Result{Status: StatusPass, Message: "v" + version.String()}
}

func checkServerFiles(ctx context.Context) Result {
	installed, err := engine.ServerFilesInstalled()
	if err != nil {
		return Result{Status: StatusFail, Message: "Check failed", Detail: err.Error()}
	}

	if !installed {
		return Result{
			Status:  StatusFail,
			Message: "Not installed",
			Detail:  "Run 'biomectl engine install'",
		}
	}

	version, _ := engine.ServerVersion()

	return Result{Status: StatusPass, Message: "v" + version}
}

func checkDependencies(ctx context.Context) Result {
	synced, err := engine.DependenciesSynced(ctx)
	if err != nil {
		return Result{Status: StatusFail, Message: "Check failed", Detail: err.Error()}
	}

	if !synced {
		return Result{
			Status:  StatusFail,
			Message: "Not synced",
			Detail:  "Run 'biomectl engine sync'",
		}
	}

	return Result{Status: StatusPass, Message: "Synced"}
}

func (r *Runner) checkEngineServer(ctx context.Context) Result {
	snap := r.registry.Get()

	if snap.PID != 0 {
		state := "starting"
		if snap.Ready {
			state = "ready"
		}

		return Result{
			Status:  StatusPass,
			Message: fmt.Sprintf("Running (pid %d, port %d, %s)", snap.PID, snap.Port, state),
		}
	}

	port := config.Load().EnginePort()

	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), 500*time.Millisecond)
	if err == nil {
		conn.Close()

		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("Port %d in use by an untracked process", port),
		}
	}

	return Result{Status: StatusWarn, Message: "Not running"}
}

func checkHostedServer(ctx context.Context) Result {
	cfg := config.Load()

	if cfg.EngineMode() != config.ModeHosted {
		return Result{Status: StatusPass, Message: "Not configured (standalone mode)"}
	}

	_, token := auth.GetToken()
	admin := transport.NewAdminClient(cfg.AdminURL(), token)

	start := time.Now()
	if !admin.Reachable(ctx) {
		return Result{
			Status:  StatusFail,
			Message: cfg.AdminURL(),
			Detail:  "Hosted GPU server not reachable",
		}
	}

	return Result{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s (%dms)", cfg.AdminURL(), time.Since(start).Milliseconds()),
	}
}

func checkCredentials(ctx context.Context) Result {
	source, token := auth.GetToken()

	if token == "" {
		return Result{
			Status:  StatusWarn,
			Message: "No credential token",
			Detail:  "Run 'biomectl auth login' to store one",
		}
	}

	return Result{Status: StatusPass, Message: "Present (" + string(source) + ")"}
}

func checkCLIVersion(ctx context.Context) Result {
	current := buildinfo.Version

	if update.IsDisabled() {
		return Result{Status: StatusPass, Message: current + " (update checks disabled)"}
	}

	updater, err := update.NewUpdater()
	if err != nil {
		return Result{Status: StatusWarn, Message: current, Detail: err.Error()}
	}

	info, err := updater.CheckLatest(ctx, current)
	if err != nil {
		return Result{Status: StatusWarn, Message: current, Detail: err.Error()}
	}

	if info.UpdateAvailable {
		return Result{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s (latest: %s)", current, info.LatestVersion),
			Detail:  "Run 'biomectl update' to upgrade",
		}
	}

	return Result{Status: StatusPass, Message: current + " (latest)"}
}
