package session

import (
	"github.com/biomelabs/biomectl/internal/transport"
)

// StatusCodeReady is the connection status code the server reports once it
// is serving frames.
const StatusCodeReady = 200

// SyncEvent is one observed snapshot of every signal the lifecycle reducer
// reconciles. The caller builds it on its own observation cadence and feeds
// it to Reduce; the reducer never blocks and never mutates the inputs.
type SyncEvent struct {
	Portal         PortalState
	Connection     transport.ConnectionState
	TransportError string
	SelectedModel  string
	AppliedModel   string
	EngineError    string
	StatusCode     int
	SocketReady    bool
	PointerLocked  bool
	SettingsOpen   bool
	Paused         bool
}

// EffectKind identifies a one-shot side effect derived by the reducer.
type EffectKind int

// Effect kinds.
const (
	// EffectStartConnect requests a fresh connection attempt. Seq carries
	// the request sequence; callers drop results from stale sequences.
	EffectStartConnect EffectKind = iota
	// EffectTransitionToStreaming asks the portal to move Loading -> Streaming.
	EffectTransitionToStreaming
	// EffectTransitionToLoading asks the portal to move back to Loading
	// after an intentional disconnect (model change reconnect).
	EffectTransitionToLoading
	// EffectRequestPointerLock asks the display surface to capture the pointer.
	EffectRequestPointerLock
	// EffectRequestPause asks the session to pause.
	EffectRequestPause
	// EffectRequestResume asks the session to resume.
	EffectRequestResume
	// EffectSurfaceLoadingError shows a load failure. Message carries the
	// most specific available error text.
	EffectSurfaceLoadingError
	// EffectSurfaceConnectionLost shows the connection-lost indicator.
	EffectSurfaceConnectionLost
	// EffectClearConnectionLost hides the connection-lost indicator.
	EffectClearConnectionLost
	// EffectTeardown releases session resources after leaving a session state.
	EffectTeardown
)

// String returns the effect kind name.
func (k EffectKind) String() string {
	switch k {
	case EffectStartConnect:
		return "start_connect"
	case EffectTransitionToStreaming:
		return "transition_to_streaming"
	case EffectTransitionToLoading:
		return "transition_to_loading"
	case EffectRequestPointerLock:
		return "request_pointer_lock"
	case EffectRequestPause:
		return "request_pause"
	case EffectRequestResume:
		return "request_resume"
	case EffectSurfaceLoadingError:
		return "surface_loading_error"
	case EffectSurfaceConnectionLost:
		return "surface_connection_lost"
	case EffectClearConnectionLost:
		return "clear_connection_lost"
	case EffectTeardown:
		return "teardown"
	default:
		return "unknown"
	}
}

// Effect is one derived side effect.
type Effect struct {
	Kind    EffectKind
	Seq     uint64 // set for EffectStartConnect
	Message string // set for EffectSurfaceLoadingError
}

// genericLoadError is shown when the transport provides no error text.
const genericLoadError = "Failed to connect to the engine server"

// LifecycleState is the reducer's memory. Every "requested" field is a
// sticky one-shot guard: once an effect fires for a condition, the guard
// holds until the condition itself changes, so feeding the reducer an
// unchanged snapshot can never re-fire the effect.
type LifecycleState struct {
	LoadingAttempted           bool
	WasConnectedWhileStreaming bool
	HadEngineError             bool

	IntentionalReconnectInProgress      bool
	LoadingReconnectTransitionRequested bool
	StreamingTransitionRequested        bool
	PointerLockRequested                bool
	LoadingErrorSurfaced                bool
	ConnectionLostSurfaced              bool

	LoadingRequestSeq  uint64
	LastPortal         PortalState
	LastTeardownPortal PortalState
	LastPointerLocked  bool

	seen bool // first Reduce call initializes LastPortal instead of diffing
}

// Reduce derives the next lifecycle state and the one-shot effects for the
// given snapshot. It is pure: same state and event always produce the same
// output, and no effect is applied here.
func Reduce(s LifecycleState, ev SyncEvent) (LifecycleState, []Effect) {
	var effects []Effect

	if !s.seen {
		s.seen = true
		s.LastPortal = ev.Portal
		s.LastTeardownPortal = ev.Portal
		s.LastPointerLocked = ev.PointerLocked
	}

	enteredLoading := ev.Portal == Loading && s.LastPortal != Loading
	enteredCold := ev.Portal == Cold && s.LastPortal != Cold
	leftSession := s.LastPortal.IsSession() && !ev.Portal.IsSession()

	// Entering the idle state resets every one-shot guard and clears any
	// lingering connection-lost indicator.
	if enteredCold {
		effects = append(effects, Effect{Kind: EffectClearConnectionLost})

		seq := s.LoadingRequestSeq
		s = LifecycleState{
			seen:               true,
			LoadingRequestSeq:  seq,
			LastPortal:         s.LastPortal,
			LastTeardownPortal: s.LastTeardownPortal,
			LastPointerLocked:  ev.PointerLocked,
		}
	}

	// Entering Loading clears any stale engine error and requests a fresh
	// connection attempt under a new sequence number, so results of stale
	// in-flight attempts can be discarded by the caller.
	if enteredLoading {
		s.HadEngineError = false
		s.LoadingAttempted = true
		s.LoadingReconnectTransitionRequested = false
		s.StreamingTransitionRequested = false
		s.PointerLockRequested = false
		s.LoadingErrorSurfaced = false
		s.LoadingRequestSeq++

		effects = append(effects, Effect{Kind: EffectStartConnect, Seq: s.LoadingRequestSeq})
	}

	if ev.EngineError != "" {
		s.HadEngineError = true
	}

	// A model change while streaming and connected starts an intentional
	// reconnect: the next disconnect is expected, not an error.
	if ev.Portal == Streaming && ev.Connection == transport.Connected &&
		ev.SelectedModel != ev.AppliedModel {
		s.IntentionalReconnectInProgress = true
	}

	// The intentional reconnect completes once the transport is connected
	// again with the selected model applied.
	if s.IntentionalReconnectInProgress && ev.Connection == transport.Connected &&
		ev.SelectedModel == ev.AppliedModel {
		s.IntentionalReconnectInProgress = false
	}

	// Once the expected disconnect lands, request exactly one transition
	// back to Loading.
	if s.IntentionalReconnectInProgress && ev.Portal == Streaming &&
		ev.Connection == transport.Disconnected &&
		!s.LoadingReconnectTransitionRequested {
		s.LoadingReconnectTransitionRequested = true
		effects = append(effects, Effect{Kind: EffectTransitionToLoading})
	}

	// Loading completes: connected, server reports ready, socket usable.
	if ev.Portal == Loading && ev.Connection == transport.Connected &&
		ev.StatusCode == StatusCodeReady && ev.SocketReady &&
		!s.StreamingTransitionRequested {
		s.StreamingTransitionRequested = true
		effects = append(effects, Effect{Kind: EffectTransitionToStreaming})
	}

	// Once streaming with a usable socket, capture the pointer exactly once.
	if ev.Portal == Streaming && ev.SocketReady && !s.PointerLockRequested {
		s.PointerLockRequested = true
		effects = append(effects, Effect{Kind: EffectRequestPointerLock})
	}

	// Pointer-lock and pause reconciliation, edge-triggered on lock changes.
	if ev.Portal == Streaming {
		gained := ev.PointerLocked && !s.LastPointerLocked
		lost := !ev.PointerLocked && s.LastPointerLocked

		if gained && (ev.SettingsOpen || ev.Paused) {
			effects = append(effects, Effect{Kind: EffectRequestResume})
		}

		if lost && !ev.SettingsOpen && !ev.Paused {
			effects = append(effects, Effect{Kind: EffectRequestPause})
		}
	}

	if ev.Portal == Streaming && ev.Connection == transport.Connected {
		s.WasConnectedWhileStreaming = true
	}

	// Connection failure during loading surfaces the most specific error
	// text available, unless an intentional reconnect explains it.
	if ev.Connection == transport.Failed && s.LoadingAttempted &&
		!s.IntentionalReconnectInProgress && !s.LoadingErrorSurfaced {
		s.LoadingErrorSurfaced = true

		msg := ev.TransportError
		if msg == "" {
			msg = genericLoadError
		}

		effects = append(effects, Effect{Kind: EffectSurfaceLoadingError, Message: msg})
	}

	if ev.Connection != transport.Failed {
		s.LoadingErrorSurfaced = false
	}

	// Losing a connection that was live while streaming surfaces the
	// connection-lost indicator, again suppressed during an intentional
	// reconnect.
	if s.WasConnectedWhileStreaming &&
		(ev.Connection == transport.Disconnected || ev.Connection == transport.Failed) &&
		!s.IntentionalReconnectInProgress && !s.ConnectionLostSurfaced {
		s.ConnectionLostSurfaced = true
		s.WasConnectedWhileStreaming = false

		effects = append(effects, Effect{Kind: EffectSurfaceConnectionLost})
	}

	// Leaving a session state tears the session down, once per distinct
	// non-session state entered.
	if leftSession && ev.Portal != s.LastTeardownPortal {
		s.LastTeardownPortal = ev.Portal
		effects = append(effects, Effect{Kind: EffectTeardown})
	}

	if ev.Portal.IsSession() {
		s.LastTeardownPortal = ev.Portal
	}

	s.LastPortal = ev.Portal
	s.LastPointerLocked = ev.PointerLocked

	return s, effects
}
