//go:build windows

package update

import "fmt"

// NeedsElevation always returns false on Windows; biomectl never
// auto-elevates there.
func NeedsElevation(binaryPath string) bool {
	return false
}

// ReExecWithSudo is not supported on Windows.
func ReExecWithSudo() error {
	return fmt.Errorf("automatic elevation is not supported on Windows; re-run 'biomectl update' from an Administrator shell")
}
