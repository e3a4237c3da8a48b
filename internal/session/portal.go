// Package session holds the navigation state machine, the lifecycle
// reducer, and the warm-connection orchestrator that together drive a
// user session from idle through loading to streaming.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// PortalState is a navigation phase of the user-facing session.
type PortalState int

// Portal states.
const (
	// Cold is the initial idle state.
	Cold PortalState = iota
	// Warm is idle-with-intent: the user has engaged but no session runs.
	Warm
	// Loading is the warmup phase while the connection is established.
	Loading
	// Streaming is the active session.
	Streaming
)

// String returns the state name.
func (s PortalState) String() string {
	switch s {
	case Warm:
		return "warm"
	case Loading:
		return "loading"
	case Streaming:
		return "streaming"
	default:
		return "cold"
	}
}

// IsSession reports whether the state represents an active session phase.
func (s PortalState) IsSession() bool {
	return s == Loading || s == Streaming
}

// legalTransitions is the adjacency table. Anything absent is illegal and
// leaves the state unchanged.
var legalTransitions = map[PortalState][]PortalState{
	Cold:      {Warm},
	Warm:      {Cold, Loading},
	Loading:   {Warm, Streaming},
	Streaming: {Warm},
}

// phaseFallback bounds each visual phase wait so the machine can never
// wedge if a completion event fails to fire.
const phaseFallback = 2 * time.Second

// IllegalTransitionError reports a transition not present in the
// adjacency table.
type IllegalTransitionError struct {
	From, To PortalState
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal portal transition %s -> %s", e.From, e.To)
}

// Portal is the navigation sub-machine.
//
// Every transition bumps a monotonically increasing run id. Asynchronous
// waiters capture the run id at the start of their work and check it again
// before acting, so a superseding transition silently cancels stale
// completions: at most one effect per run, last transition wins.
type Portal struct {
	mu           sync.Mutex
	state        PortalState
	settingsOpen bool
	runID        uint64
	phaseCh      chan uint64
}

// NewPortal returns a portal in the Cold state.
func NewPortal() *Portal {
	return &Portal{phaseCh: make(chan uint64, 8)}
}

// State returns the current navigation state.
func (p *Portal) State() PortalState {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state
}

// RunID returns the current run id.
func (p *Portal) RunID() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.runID
}

// Current reports whether runID is still the live run.
func (p *Portal) Current(runID uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.runID == runID
}

// SetSettingsOpen records whether the settings panel is open.
func (p *Portal) SetSettingsOpen(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.settingsOpen = open
}

// SettingsOpen reports whether the settings panel is open.
func (p *Portal) SettingsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.settingsOpen
}

// Transition moves to the target state if the adjacency table allows it,
// bumping the run id. An illegal transition returns an error and leaves
// the state unchanged.
func (p *Portal) Transition(to PortalState) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, legal := range legalTransitions[p.state] {
		if legal == to {
			p.runID++
			p.state = to

			return p.runID, nil
		}
	}

	return p.runID, &IllegalTransitionError{From: p.state, To: to}
}

// Shutdown forces the portal back to Cold from any state. It always
// succeeds and bumps the run id so in-flight waiters cancel.
func (p *Portal) Shutdown() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.runID++
	p.state = Cold

	return p.runID
}

// CompletePhase is called by the display surface when a visual phase of
// the run finishes. Stale run ids are accepted and discarded by the waiter.
func (p *Portal) CompletePhase(runID uint64) {
	select {
	case p.phaseCh <- runID:
	default:
	}
}

// AwaitPhase blocks until the display surface reports a phase complete for
// runID, the fallback timeout elapses, or ctx is canceled. It returns
// whether runID is still the live run; callers must not act when false.
func (p *Portal) AwaitPhase(ctx context.Context, runID uint64) bool {
	timer := time.NewTimer(phaseFallback)
	defer timer.Stop()

	for {
		select {
		case id := <-p.phaseCh:
			if id == runID {
				return p.Current(runID)
			}
			// Stale completion from a superseded run; keep waiting.
		case <-timer.C:
			return p.Current(runID)
		case <-ctx.Done():
			return false
		}
	}
}

// TransitionToStreaming performs the Loading to Streaming handoff: the
// state change itself, then the two-phase visual sequence (shrink, expand),
// each awaited with a completion event and a timeout fallback. A transition
// that supersedes this run cancels the remaining phases silently.
func (p *Portal) TransitionToStreaming(ctx context.Context) error {
	runID, err := p.Transition(Streaming)
	if err != nil {
		return err
	}

	for phase := 0; phase < 2; phase++ {
		if !p.AwaitPhase(ctx, runID) {
			return nil
		}
	}

	return nil
}
