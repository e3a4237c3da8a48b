package engine

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/biomelabs/biomectl/internal/auth"
	clierrors "github.com/biomelabs/biomectl/internal/errors"
	"github.com/biomelabs/biomectl/internal/observability"
	"github.com/biomelabs/biomectl/internal/paths"
	"github.com/biomelabs/biomectl/internal/toolchain"
)

const (
	// startupGrace is how long a freshly spawned server must survive before
	// Start reports success. A crash inside the window is surfaced with a
	// log excerpt instead of a silent dead process.
	startupGrace = 500 * time.Millisecond

	// exitExcerptLines is how many trailing log lines an immediate-exit
	// error carries.
	exitExcerptLines = 30

	// stopTimeout bounds how long Stop waits for the process tree to die.
	stopTimeout = 5 * time.Second
)

// Supervisor spawns, watches, and stops the single local engine server.
//
// The process is spawned in its own process group so Stop can take down the
// whole tree, including interpreter children the toolchain launches. Stdout
// and stderr are scanned line by line: every line is appended to the
// persisted server log and fanned out to subscribers, progress stages are
// decoded, and the first readiness phrase flips the registry to ready
// exactly once.
type Supervisor struct {
	registry *Registry
	events   *Broadcaster

	mu       sync.Mutex
	cmd      *exec.Cmd
	sink     *LogSink
	readyCh  chan struct{}
	exitDone chan struct{}
	exitErr  error
}

// NewSupervisor returns a supervisor bound to the given registry and
// event broadcaster.
func NewSupervisor(registry *Registry, events *Broadcaster) *Supervisor {
	return &Supervisor{registry: registry, events: events}
}

// Events returns the broadcaster subprocess output is fanned out on.
func (s *Supervisor) Events() *Broadcaster {
	return s.events
}

// Start spawns the engine server on the given port and model.
//
// It fails fast when a process is already tracked, when any installable
// component is missing, or when the server dies within the startup grace
// window. Success means the process survived the window; readiness arrives
// later via WaitReady or the event stream.
func (s *Supervisor) Start(ctx context.Context, port int, model string) error {
	exitDone, logPath, err := s.launch(ctx, port, model)
	if err != nil {
		return err
	}

	// Grace window: give the process a moment to crash before reporting
	// success. The exit watcher clears the registry and supervisor state
	// before signaling, so an immediate crash leaves nothing tracked.
	select {
	case <-exitDone:
		return clierrors.ImmediateExit(readExcerpt(logPath))
	case <-time.After(startupGrace):
		return nil
	}
}

// launch spawns the subprocess and its watchers under the supervisor lock,
// returning the exit signal channel and the server log path.
func (s *Supervisor) launch(ctx context.Context, port int, model string) (<-chan struct{}, string, error) {
	logger := observability.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		return nil, "", clierrors.AlreadyRunning(s.cmd.Process.Pid)
	}

	status, err := Probe(ctx)
	if err != nil {
		return nil, "", err
	}

	if !status.Complete() {
		return nil, "", clierrors.MissingDependencies(status.Missing())
	}

	// Refresh the server files so bundled fixes always take effect, then
	// re-sync dependencies best-effort. A sync failure here is tolerated
	// since the environment already probed as usable.
	if _, err := InstallServerFiles(true); err != nil {
		return nil, "", err
	}

	bin, err := toolchain.BinaryPath()
	if err != nil {
		return nil, "", err
	}

	if syncErr := SyncDependencies(ctx, bin); syncErr != nil {
		logger.Warn("dependency re-sync failed, continuing with existing environment", "error", syncErr)
	}

	dir, err := paths.EngineDir()
	if err != nil {
		return nil, "", err
	}

	logPath, err := paths.ServerLogFile()
	if err != nil {
		return nil, "", err
	}

	sink, err := OpenLogSink(logPath)
	if err != nil {
		return nil, "", err
	}

	env, err := toolchainEnv()
	if err != nil {
		sink.Close()
		return nil, "", err
	}

	// Line-oriented classification depends on the interpreter not buffering
	// its output. The credential token rides the environment so it never
	// appears in the process arguments.
	env = append(env, "PYTHONUNBUFFERED=1")
	if _, token := auth.GetToken(); token != "" {
		env = append(env, "BIOME_CREDENTIAL_TOKEN="+token)
	}

	// The child watches parent-pid and exits if the supervising process dies.
	cmd := exec.Command(bin, "run", "server.py",
		"--port", strconv.Itoa(port),
		"--model", model,
		"--parent-pid", strconv.Itoa(os.Getpid()),
	)
	cmd.Dir = dir
	cmd.Env = env
	configureProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		sink.Close()
		return nil, "", clierrors.Wrap(clierrors.ExitExecution, "Failed to attach to server output", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		sink.Close()
		return nil, "", clierrors.Wrap(clierrors.ExitExecution, "Failed to attach to server output", err)
	}

	if err := cmd.Start(); err != nil {
		sink.Close()
		return nil, "", clierrors.Wrap(clierrors.ExitExecution, "Failed to start engine server", err)
	}

	pid := cmd.Process.Pid
	logger.Info("engine server started", "pid", pid, "port", port, "model", model)

	s.registry.SetProcess(pid, port)

	readyCh := make(chan struct{})
	exitDone := make(chan struct{})

	s.cmd = cmd
	s.sink = sink
	s.readyCh = readyCh
	s.exitDone = exitDone
	s.exitErr = nil

	var readyOnce sync.Once
	var scanners sync.WaitGroup

	watch := func(r io.Reader) {
		defer scanners.Done()

		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

		for scanner.Scan() {
			c := Classify(scanner.Text())

			_ = sink.Append(c.Line)
			s.events.Publish(Event{Kind: c.Kind, Line: c.Line, Stage: c.Stage})

			if c.Kind == ReadySignal {
				readyOnce.Do(func() {
					s.registry.SetReady(true)
					close(readyCh)
				})
			}
		}
	}

	scanners.Add(2)
	go watch(stdout)
	go watch(stderr)

	go func() {
		scanners.Wait()
		waitErr := cmd.Wait()

		s.mu.Lock()
		s.exitErr = waitErr
		s.cmd = nil
		s.sink = nil
		s.mu.Unlock()

		s.registry.Clear()
		sink.Close()
		close(exitDone)
	}()

	return exitDone, logPath, nil
}

// StopSummary reports the process tree Stop took down.
type StopSummary struct {
	PID int
}

// Stop kills the tracked server's whole process tree and waits for the exit
// watcher to finish cleaning up. The summary names the stopped process.
func (s *Supervisor) Stop(ctx context.Context) (*StopSummary, error) {
	logger := observability.FromContext(ctx)

	s.mu.Lock()
	cmd := s.cmd
	exitDone := s.exitDone
	s.mu.Unlock()

	if cmd == nil {
		return nil, clierrors.NoProcess()
	}

	pid := cmd.Process.Pid
	logger.Info("stopping engine server", "pid", pid)

	if err := killProcessTree(pid); err != nil {
		// Fall back to killing just the direct child.
		_ = cmd.Process.Kill()
	}

	select {
	case <-exitDone:
		return &StopSummary{PID: pid}, nil
	case <-time.After(stopTimeout):
		_ = cmd.Process.Kill()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case <-exitDone:
		return &StopSummary{PID: pid}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitReady blocks until the tracked server signals readiness, the process
// exits, the timeout elapses, or ctx is canceled.
func (s *Supervisor) WaitReady(ctx context.Context, timeout time.Duration) error {
	if s.registry.Ready() {
		return nil
	}

	s.mu.Lock()
	readyCh := s.readyCh
	exitDone := s.exitDone
	s.mu.Unlock()

	if readyCh == nil {
		return clierrors.NoProcess()
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-readyCh:
		return nil
	case <-exitDone:
		logPath, pathErr := paths.ServerLogFile()
		if pathErr != nil {
			return clierrors.ImmediateExit("")
		}

		return clierrors.ImmediateExit(readExcerpt(logPath))
	case <-timer.C:
		return clierrors.ReadinessTimeout(timeout.String())
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running reports whether a process is currently tracked by this supervisor.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cmd != nil
}

func readExcerpt(logPath string) string {
	lines, err := TailLines(logPath, exitExcerptLines)
	if err != nil || len(lines) == 0 {
		return ""
	}

	return strings.Join(lines, "\n")
}
