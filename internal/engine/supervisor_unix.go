//go:build unix

package engine

import (
	"os/exec"

	"golang.org/x/sys/unix"
)

// configureProcessGroup places the child in its own process group so the
// whole tree can be signaled at once.
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &unix.SysProcAttr{Setpgid: true}
}

// killProcessTree signals the child's entire process group.
func killProcessTree(pid int) error {
	pgid, err := unix.Getpgid(pid)
	if err != nil {
		return err
	}

	return unix.Kill(-pgid, unix.SIGKILL)
}
