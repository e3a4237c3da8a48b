package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	clierrors "github.com/biomelabs/biomectl/internal/errors"
)

// TestAllRunnableCommandsHaveArgsValidator walks the entire command tree and
// fails if any runnable command (one with RunE or Run) is missing an Args
// validator. This prevents future commands from shipping without validators.
func TestAllRunnableCommandsHaveArgsValidator(t *testing.T) {
	root := newRootCmd()

	var missing []string

	for _, cmd := range collectAllCommands(root) {
		if !cmd.Runnable() {
			continue
		}

		if cmd.Args == nil {
			missing = append(missing, cmd.CommandPath())
		}
	}

	if len(missing) > 0 {
		t.Errorf("runnable commands missing Args validator:\n  %s\n\nAdd Args: noArgs (or another validator) to each command.",
			strings.Join(missing, "\n  "))
	}
}

// collectAllCommands returns every command in the tree (including root).
func collectAllCommands(root *cobra.Command) []*cobra.Command {
	var all []*cobra.Command

	var walk func(cmd *cobra.Command)

	walk = func(cmd *cobra.Command) {
		all = append(all, cmd)
		for _, child := range cmd.Commands() {
			walk(child)
		}
	}

	walk(root)

	return all
}

// TestUnknownFlagReturnsCLIError verifies that SetFlagErrorFunc wraps flag
// errors as CLIError with the correct code, message, and hint.
func TestUnknownFlagReturnsCLIError(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"version", "--bogus"})

	err := root.Execute()
	if err == nil {
		t.Fatal("expected error for unknown flag, got nil")
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %T: %v", err, err)
	}

	if cliErr.Code != clierrors.ExitUsage {
		t.Errorf("exit code = %d, want %d (ExitUsage)", cliErr.Code, clierrors.ExitUsage)
	}

	if !strings.Contains(cliErr.Message, "unknown flag") {
		t.Errorf("message = %q, want to contain 'unknown flag'", cliErr.Message)
	}

	if !strings.Contains(cliErr.Hint, "--help") {
		t.Errorf("hint = %q, want to contain '--help'", cliErr.Hint)
	}
}

func TestNoArgs(t *testing.T) {
	cmd := &cobra.Command{Use: "paths"}

	if err := noArgs(cmd, nil); err != nil {
		t.Errorf("noArgs() with no args error = %v", err)
	}

	err := noArgs(cmd, []string{"extra"})
	if err == nil {
		t.Fatal("noArgs() with args error = nil, want usage error")
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(err, &cliErr) {
		t.Fatalf("expected CLIError, got %T", err)
	}

	if cliErr.Code != clierrors.ExitUsage {
		t.Errorf("exit code = %d, want %d", cliErr.Code, clierrors.ExitUsage)
	}
}

func TestExpectedCommandSurface(t *testing.T) {
	root := newRootCmd()

	want := []string{
		"biomectl engine status",
		"biomectl engine setup",
		"biomectl engine install",
		"biomectl engine sync",
		"biomectl engine start",
		"biomectl engine stop",
		"biomectl engine logs",
		"biomectl session start",
		"biomectl auth login",
		"biomectl auth status",
		"biomectl auth logout",
		"biomectl config list",
		"biomectl config get",
		"biomectl config set",
		"biomectl config path",
		"biomectl doctor",
		"biomectl paths",
		"biomectl update",
		"biomectl version",
	}

	have := make(map[string]bool)
	for _, cmd := range collectAllCommands(root) {
		have[cmd.CommandPath()] = true
	}

	for _, path := range want {
		if !have[path] {
			t.Errorf("command %q is missing from the tree", path)
		}
	}
}
