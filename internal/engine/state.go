package engine

import (
	"sync"
	"time"
)

// Snapshot is a point-in-time copy of the registry state.
type Snapshot struct {
	PID       int
	Port      int
	Ready     bool
	StartedAt time.Time
}

// Registry tracks the single supervised engine server process.
//
// Invariant: a process is either tracked with a valid pid or not tracked at
// all, and Ready is only ever true while a process is tracked. Clear resets
// both together so a dead server can never present as ready.
type Registry struct {
	mu        sync.Mutex
	pid       int
	port      int
	ready     bool
	startedAt time.Time
}

// SetProcess records a newly spawned process. Ready always starts false.
func (r *Registry) SetProcess(pid, port int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pid = pid
	r.port = port
	r.ready = false
	r.startedAt = time.Now()
}

// SetReady flips the readiness flag. It is a no-op when no process is tracked.
func (r *Registry) SetReady(ready bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pid == 0 {
		return
	}

	r.ready = ready
}

// Clear forgets the tracked process and resets readiness.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pid = 0
	r.port = 0
	r.ready = false
	r.startedAt = time.Time{}
}

// Tracked reports whether a process is currently tracked.
func (r *Registry) Tracked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pid != 0
}

// Ready reports whether the tracked process has signaled readiness.
func (r *Registry) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pid != 0 && r.ready
}

// Get returns the registry state as one consistent snapshot.
func (r *Registry) Get() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Snapshot{
		PID:       r.pid,
		Port:      r.port,
		Ready:     r.pid != 0 && r.ready,
		StartedAt: r.startedAt,
	}
}
