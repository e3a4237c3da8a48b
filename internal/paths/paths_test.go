package paths

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestConfigRoot_UsesXDGConfigHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	got, err := ConfigRoot()
	if err != nil {
		t.Fatalf("ConfigRoot() error = %v", err)
	}

	want := filepath.Join(tmp, "biomectl")
	if got != want {
		t.Fatalf("ConfigRoot() = %q, want %q", got, want)
	}
}

func TestStateRoot_UsesXDGStateHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_STATE_HOME", tmp)

	got, err := StateRoot()
	if err != nil {
		t.Fatalf("StateRoot() error = %v", err)
	}

	want := filepath.Join(tmp, "biomectl")
	if got != want {
		t.Fatalf("StateRoot() = %q, want %q", got, want)
	}
}

func TestDataRoot_UsesXDGDataHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	got, err := DataRoot()
	if err != nil {
		t.Fatalf("DataRoot() error = %v", err)
	}

	want := filepath.Join(tmp, "biomectl")
	if got != want {
		t.Fatalf("DataRoot() = %q, want %q", got, want)
	}
}

func TestRootFallback_IgnoresRelativeXDG(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	t.Setenv("XDG_STATE_HOME", "relative/path")

	got, err := StateRoot()
	if err != nil {
		t.Fatalf("StateRoot() error = %v", err)
	}

	want := filepath.Join(home, ".local", "state", "biomectl")
	if got != want {
		t.Fatalf("StateRoot() = %q, want home fallback %q", got, want)
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := t.TempDir()
	state := t.TempDir()
	data := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", cfg)
	t.Setenv("XDG_STATE_HOME", state)
	t.Setenv("XDG_DATA_HOME", data)

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"log file", DefaultLogFile, filepath.Join(state, "biomectl", "logs", "biomectl.log")},
		{"server log", ServerLogFile, filepath.Join(state, "biomectl", "logs", "server.log")},
		{"engine dir", EngineDir, filepath.Join(data, "biomectl", "engine")},
		{"toolchain dir", ToolchainDir, filepath.Join(data, "biomectl", "toolchain")},
		{"update state", UpdateStateFile, filepath.Join(state, "biomectl", "update-check.json")},
		{"credentials", CredentialsFile, filepath.Join(cfg, "biomectl", "credential-token")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatalf("error = %v", err)
			}

			if got != tt.want {
				t.Errorf("= %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToolchainBinary(t *testing.T) {
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)

	got, err := ToolchainBinary()
	if err != nil {
		t.Fatalf("ToolchainBinary() error = %v", err)
	}

	name := "uv"
	if runtime.GOOS == "windows" {
		name = "uv.exe"
	}

	want := filepath.Join(data, "biomectl", "toolchain", "bin", name)
	if got != want {
		t.Errorf("ToolchainBinary() = %q, want %q", got, want)
	}
}
