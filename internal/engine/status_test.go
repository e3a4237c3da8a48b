package engine

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStatus_Missing(t *testing.T) {
	tests := []struct {
		name   string
		status Status
		want   []string
	}{
		{
			name:   "nothing installed",
			status: Status{},
			want:   []string{"toolchain", "server files", "dependencies"},
		},
		{
			name:   "toolchain only",
			status: Status{ToolchainInstalled: true},
			want:   []string{"server files", "dependencies"},
		},
		{
			name:   "dependencies pending",
			status: Status{ToolchainInstalled: true, ServerFilesPresent: true},
			want:   []string{"dependencies"},
		},
		{
			name: "complete",
			status: Status{
				ToolchainInstalled: true,
				ServerFilesPresent: true,
				DependenciesSynced: true,
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.status.Missing()

			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Missing() = %v, want %v", got, tt.want)
			}

			if tt.status.Complete() != (len(tt.want) == 0) {
				t.Errorf("Complete() = %v, want %v", tt.status.Complete(), len(tt.want) == 0)
			}
		})
	}
}

func TestProbe_EmptyDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	status, err := Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}

	if status.Complete() {
		t.Error("Complete() = true with empty data dir")
	}

	want := []string{"toolchain", "server files", "dependencies"}
	if !reflect.DeepEqual(status.Missing(), want) {
		t.Errorf("Missing() = %v, want %v", status.Missing(), want)
	}
}

func TestDependenciesSynced(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	synced, err := DependenciesSynced(context.Background())
	if err != nil {
		t.Fatalf("DependenciesSynced() error = %v", err)
	}
	if synced {
		t.Error("DependenciesSynced() = true without a .venv")
	}

	venv := filepath.Join(tmp, "biomectl", "engine", ".venv")
	if err := os.MkdirAll(venv, 0o755); err != nil {
		t.Fatal(err)
	}

	synced, err = DependenciesSynced(context.Background())
	if err != nil {
		t.Fatalf("DependenciesSynced() error = %v", err)
	}
	if !synced {
		t.Error("DependenciesSynced() = false with a .venv present")
	}
}
