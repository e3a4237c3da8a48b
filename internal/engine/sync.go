package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	clierrors "github.com/biomelabs/biomectl/internal/errors"
	"github.com/biomelabs/biomectl/internal/observability"
	"github.com/biomelabs/biomectl/internal/paths"
	"github.com/biomelabs/biomectl/internal/toolchain"
)

// toolchainEnv returns the environment for toolchain invocations. The
// toolchain is fully isolated from any user-level uv or pip configuration:
// caches, managed interpreters, and tools all live under the biomectl data
// directory, and project resolution is pinned to the committed lockfile.
func toolchainEnv() ([]string, error) {
	root, err := paths.ToolchainDir()
	if err != nil {
		return nil, err
	}

	env := append(os.Environ(),
		"UV_FROZEN=1",
		"UV_NO_CONFIG=1",
		"UV_CACHE_DIR="+filepath.Join(root, "cache"),
		"UV_PYTHON_INSTALL_DIR="+filepath.Join(root, "python"),
		"UV_TOOL_DIR="+filepath.Join(root, "tools"),
	)

	return env, nil
}

// SyncDependencies resolves and installs the engine server's Python
// dependencies into its project environment. The subprocess output is
// captured into a bounded buffer so a failure can show the tail.
func SyncDependencies(ctx context.Context, toolchainBin string) error {
	logger := observability.FromContext(ctx)

	dir, err := paths.EngineDir()
	if err != nil {
		return err
	}

	env, err := toolchainEnv()
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, toolchainBin, "sync", "--python", "3.11")
	cmd.Dir = dir
	cmd.Env = env

	buf := newBoundedBuffer(64 * 1024)
	cmd.Stdout = buf
	cmd.Stderr = buf

	logger.Info("syncing engine dependencies", "dir", dir)

	if err := cmd.Run(); err != nil {
		tail := buf.String()
		if tail != "" {
			err = fmt.Errorf("%w\n%s", err, tail)
		}

		return clierrors.Wrap(clierrors.ExitExecution, "Failed to sync engine dependencies", err).
			WithHint("Run 'biomectl engine sync' again, or 'biomectl engine install --force' to refresh the server files")
	}

	return nil
}

// DependenciesSynced reports whether the engine's project environment exists
// and its interpreter actually answers. A .venv directory alone can be a
// half-synced wreck; running the interpreter catches that. Without an
// installed toolchain there is nothing to run the probe with, so the check
// degrades to the directory test.
func DependenciesSynced(ctx context.Context) (bool, error) {
	dir, err := paths.EngineDir()
	if err != nil {
		return false, err
	}

	if _, statErr := os.Stat(filepath.Join(dir, ".venv")); statErr != nil {
		return false, nil
	}

	bin, err := toolchain.BinaryPath()
	if err != nil {
		return false, err
	}

	if _, statErr := os.Stat(bin); statErr != nil {
		return true, nil
	}

	env, err := toolchainEnv()
	if err != nil {
		return false, err
	}

	cmd := exec.CommandContext(ctx, bin, "run", "python", "--version")
	cmd.Dir = dir
	cmd.Env = env

	return cmd.Run() == nil, nil
}

// boundedBuffer keeps at most the last max bytes written to it.
type boundedBuffer struct {
	max  int
	data []byte
}

func newBoundedBuffer(max int) *boundedBuffer {
	return &boundedBuffer{max: max}
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	if len(b.data) > b.max {
		b.data = b.data[len(b.data)-b.max:]
	}

	return len(p), nil
}

func (b *boundedBuffer) String() string {
	return strings.TrimSpace(string(b.data))
}
