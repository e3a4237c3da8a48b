//go:build !windows

package update

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"golang.org/x/sys/unix"
)

// NeedsElevation reports whether replacing the binary requires elevated
// permissions. Both the parent directory and the binary itself must be
// writable: a root-owned binary in a user-writable directory (a botched
// earlier sudo install) still needs elevation to replace in place.
func NeedsElevation(binaryPath string) bool {
	if unix.Access(filepath.Dir(binaryPath), unix.W_OK) != nil {
		return true
	}

	if _, err := os.Stat(binaryPath); err == nil {
		return unix.Access(binaryPath, unix.W_OK) != nil
	}

	return false
}

// ReExecWithSudo re-launches the current biomectl invocation under sudo,
// replacing the current process via syscall.Exec.
func ReExecWithSudo() error {
	// An invocation already running under sudo that still cannot write the
	// binary will not be helped by another sudo layer.
	if os.Getenv("SUDO_USER") != "" {
		return fmt.Errorf("already running under sudo but the install location is not writable; check ownership of the biomectl binary")
	}

	sudoPath, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("sudo not found in PATH; re-run 'biomectl update' with elevated permissions")
	}

	execPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}

	fmt.Fprintln(os.Stderr, "The biomectl install location requires elevated permissions. Requesting sudo...")

	argv := append([]string{"sudo", execPath}, os.Args[1:]...)

	if err := syscall.Exec(sudoPath, argv, os.Environ()); err != nil { //nolint:gosec // G204: intentional sudo re-exec
		return fmt.Errorf("exec sudo process: %w", err)
	}

	return nil
}
