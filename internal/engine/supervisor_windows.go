//go:build windows

package engine

import (
	"os"
	"os/exec"

	"github.com/shirou/gopsutil/v4/process"
)

// configureProcessGroup is a no-op on Windows; the tree is walked and
// terminated child-first instead.
func configureProcessGroup(cmd *exec.Cmd) {}

// killProcessTree terminates the process and all of its descendants,
// deepest first, so interpreter children do not outlive the launcher.
func killProcessTree(pid int) error {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return err
	}

	killDescendants(proc)

	osProc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return osProc.Kill()
}

func killDescendants(proc *process.Process) {
	children, err := proc.Children()
	if err != nil {
		return
	}

	for _, child := range children {
		killDescendants(child)
		_ = child.Kill()
	}
}
