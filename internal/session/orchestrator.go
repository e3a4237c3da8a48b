package session

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/biomelabs/biomectl/internal/config"
	"github.com/biomelabs/biomectl/internal/engine"
	clierrors "github.com/biomelabs/biomectl/internal/errors"
	"github.com/biomelabs/biomectl/internal/observability"
)

const (
	// readinessWait bounds how long Connect waits for a starting or
	// already-running server to signal readiness.
	readinessWait = 120 * time.Second

	// portProbeTimeout bounds the local port-occupancy check.
	portProbeTimeout = 500 * time.Millisecond
)

// Orchestrator decides how to reach an engine server when the user
// initiates a session: connect to a hosted server directly, reuse a ready
// or already-listening local server, wait out a starting one, or start one
// from scratch — failing fast with an itemized error when the local install
// is incomplete.
type Orchestrator struct {
	cfg        *config.Config
	registry   *engine.Registry
	supervisor *engine.Supervisor
}

// NewOrchestrator returns an orchestrator over the given registry and
// supervisor.
func NewOrchestrator(cfg *config.Config, registry *engine.Registry, supervisor *engine.Supervisor) *Orchestrator {
	return &Orchestrator{cfg: cfg, registry: registry, supervisor: supervisor}
}

// Connect ensures a server is reachable for the given mode and port and
// returns the realtime URL to dial. It never opens the realtime channel
// itself; that belongs to the session owner.
func (o *Orchestrator) Connect(ctx context.Context, mode string, port int) (string, error) {
	logger := observability.FromContext(ctx)
	url := o.cfg.RealtimeURL(mode, port)

	// Hosted servers are externally managed; connect directly.
	if mode == config.ModeHosted {
		return url, nil
	}

	if o.registry.Ready() {
		return url, nil
	}

	// Another instance may already be serving the port. Treat a listening
	// port as ready enough rather than fighting over it.
	if portOccupied(port) {
		logger.Info("port already serving, reusing", "port", port)
		return url, nil
	}

	if o.registry.Tracked() {
		logger.Info("server starting, waiting for readiness", "port", port)

		if err := o.supervisor.WaitReady(ctx, readinessWait); err != nil {
			return "", err
		}

		return url, nil
	}

	// Nothing running: verify the install is complete before starting, so
	// the user sees exactly what is missing instead of a spawn failure.
	status, err := engine.Probe(ctx)
	if err != nil {
		return "", err
	}

	if !status.Complete() {
		return "", clierrors.MissingDependencies(status.Missing())
	}

	if err := o.supervisor.Start(ctx, port, o.cfg.Model()); err != nil {
		return "", err
	}

	if err := o.supervisor.WaitReady(ctx, readinessWait); err != nil {
		return "", err
	}

	return url, nil
}

func portOccupied(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("localhost:%d", port), portProbeTimeout)
	if err != nil {
		return false
	}

	conn.Close()

	return true
}
