//go:build unix

package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// installFakeToolchain writes a shell script at the toolchain binary path
// that reports the given version.
func installFakeToolchain(t *testing.T, version string) {
	t.Helper()

	t.Setenv("XDG_DATA_HOME", t.TempDir())

	bin, err := BinaryPath()
	if err != nil {
		t.Fatalf("BinaryPath() error = %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(bin), 0o755); err != nil {
		t.Fatal(err)
	}

	script := "#!/bin/sh\necho \"uv " + version + "\"\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
}

func TestInstalledVersion(t *testing.T) {
	installFakeToolchain(t, "0.9.26")

	got, err := InstalledVersion(context.Background())
	if err != nil {
		t.Fatalf("InstalledVersion() error = %v", err)
	}

	if got.String() != "0.9.26" {
		t.Errorf("InstalledVersion() = %s, want 0.9.26", got)
	}
}

func TestInstalled_TrueWithWorkingBinary(t *testing.T) {
	installFakeToolchain(t, "0.9.26")

	if !Installed(context.Background()) {
		t.Error("Installed() = false with a working binary")
	}
}

func TestUpToDate(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{Version, true},
		{"99.0.0", true},
		{"0.1.0", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			installFakeToolchain(t, tt.version)

			if got := UpToDate(context.Background()); got != tt.want {
				t.Errorf("UpToDate() with v%s = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}
