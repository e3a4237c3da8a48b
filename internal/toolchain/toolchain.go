// Package toolchain installs and probes the isolated package manager (uv)
// used to run the engine server and sync its dependencies.
//
// The binary is downloaded as a versioned release archive (zip on Windows,
// tar.gz elsewhere), the single executable is extracted into
// <data>/toolchain/bin, and the install is idempotent: Ensure is a no-op
// when the binary is already present.
package toolchain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	clierrors "github.com/biomelabs/biomectl/internal/errors"
	"github.com/biomelabs/biomectl/internal/paths"
)

const (
	// Version is the pinned uv release installed by Ensure.
	Version = "0.9.26"

	releaseURLFormat = "https://github.com/astral-sh/uv/releases/download/%s/%s"

	downloadTimeout = 5 * time.Minute
)

var httpClient = &http.Client{
	Transport: otelhttp.NewTransport(http.DefaultTransport),
	Timeout:   downloadTimeout,
}

// BinaryPath returns the expected location of the uv executable.
func BinaryPath() (string, error) {
	return paths.ToolchainBinary()
}

// Installed reports whether the toolchain binary exists and responds to --version.
func Installed(ctx context.Context) bool {
	bin, err := BinaryPath()
	if err != nil {
		return false
	}

	if _, statErr := os.Stat(bin); statErr != nil {
		return false
	}

	cmd := exec.CommandContext(ctx, bin, "--version")
	return cmd.Run() == nil
}

// Ensure installs the pinned toolchain release if it is not already present.
// Returns the path of the binary.
func Ensure(ctx context.Context) (string, error) {
	bin, err := BinaryPath()
	if err != nil {
		return "", clierrors.Wrap(clierrors.ExitGeneral, "Failed to resolve toolchain path", err)
	}

	if _, statErr := os.Stat(bin); statErr == nil {
		return bin, nil
	}

	binDir := filepath.Dir(bin)
	if mkErr := os.MkdirAll(binDir, 0o755); mkErr != nil {
		return "", clierrors.Wrap(clierrors.ExitGeneral, "Failed to create toolchain directory", mkErr)
	}

	archive, archErr := archiveName(runtime.GOOS, runtime.GOARCH)
	if archErr != nil {
		return "", clierrors.Wrap(clierrors.ExitGeneral, "Unsupported platform", archErr)
	}

	url := fmt.Sprintf(releaseURLFormat, Version, archive)

	data, dlErr := download(ctx, url)
	if dlErr != nil {
		return "", clierrors.Download("toolchain", dlErr)
	}

	var extractErr error
	if strings.HasSuffix(archive, ".zip") {
		extractErr = extractZip(data, bin)
	} else {
		extractErr = extractTarGz(data, bin)
	}

	if extractErr != nil {
		return "", clierrors.Extraction("toolchain archive", extractErr)
	}

	return bin, nil
}

// InstalledVersion runs the binary's --version and returns the parsed semver.
func InstalledVersion(ctx context.Context) (*semver.Version, error) {
	bin, err := BinaryPath()
	if err != nil {
		return nil, err
	}

	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return nil, fmt.Errorf("run %s --version: %w", filepath.Base(bin), err)
	}

	// Output form: "uv 0.9.26" (possibly with a build suffix).
	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 {
		return nil, fmt.Errorf("unexpected version output: %q", strings.TrimSpace(string(out)))
	}

	ver, err := semver.NewVersion(fields[1])
	if err != nil {
		return nil, fmt.Errorf("parse toolchain version %q: %w", fields[1], err)
	}

	return ver, nil
}

// UpToDate reports whether the installed toolchain is at least the pinned version.
func UpToDate(ctx context.Context) bool {
	installed, err := InstalledVersion(ctx)
	if err != nil {
		return false
	}

	pinned, err := semver.NewVersion(Version)
	if err != nil {
		return false
	}

	return !installed.LessThan(pinned)
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching %s", resp.StatusCode, url)
	}

	return io.ReadAll(resp.Body)
}

// archiveName returns the release asset name for the given platform.
func archiveName(goos, goarch string) (string, error) {
	arch, ok := map[string]string{
		"amd64": "x86_64",
		"arm64": "aarch64",
	}[goarch]
	if !ok {
		return "", fmt.Errorf("no toolchain release for architecture %s", goarch)
	}

	switch goos {
	case "windows":
		return fmt.Sprintf("uv-%s-pc-windows-msvc.zip", arch), nil
	case "darwin":
		return fmt.Sprintf("uv-%s-apple-darwin.tar.gz", arch), nil
	case "linux":
		return fmt.Sprintf("uv-%s-unknown-linux-gnu.tar.gz", arch), nil
	default:
		return "", fmt.Errorf("no toolchain release for OS %s", goos)
	}
}
