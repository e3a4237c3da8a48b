package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveName(t *testing.T) {
	tests := []struct {
		goos    string
		goarch  string
		want    string
		wantErr bool
	}{
		{"linux", "amd64", "uv-x86_64-unknown-linux-gnu.tar.gz", false},
		{"linux", "arm64", "uv-aarch64-unknown-linux-gnu.tar.gz", false},
		{"darwin", "amd64", "uv-x86_64-apple-darwin.tar.gz", false},
		{"darwin", "arm64", "uv-aarch64-apple-darwin.tar.gz", false},
		{"windows", "amd64", "uv-x86_64-pc-windows-msvc.zip", false},
		{"windows", "arm64", "uv-aarch64-pc-windows-msvc.zip", false},
		{"linux", "riscv64", "", true},
		{"plan9", "amd64", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"_"+tt.goarch, func(t *testing.T) {
			got, err := archiveName(tt.goos, tt.goarch)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("archiveName(%s, %s) error = nil, want error", tt.goos, tt.goarch)
				}

				return
			}

			if err != nil {
				t.Fatalf("archiveName(%s, %s) error = %v", tt.goos, tt.goarch, err)
			}

			if got != tt.want {
				t.Errorf("archiveName(%s, %s) = %q, want %q", tt.goos, tt.goarch, got, tt.want)
			}
		})
	}
}

func TestEnsure_ShortCircuitsWhenPresent(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	bin, err := BinaryPath()
	if err != nil {
		t.Fatalf("BinaryPath() error = %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(bin), 0o755); err != nil {
		t.Fatal(err)
	}

	content := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(bin, content, 0o755); err != nil {
		t.Fatal(err)
	}

	// With the binary already on disk, Ensure must not touch the network.
	got, err := Ensure(context.Background())
	if err != nil {
		t.Fatalf("Ensure() error = %v", err)
	}

	if got != bin {
		t.Errorf("Ensure() = %q, want %q", got, bin)
	}

	data, err := os.ReadFile(bin)
	if err != nil {
		t.Fatal(err)
	}

	if string(data) != string(content) {
		t.Error("Ensure() rewrote an existing binary")
	}
}

func TestInstalled_FalseWithoutBinary(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	if Installed(context.Background()) {
		t.Error("Installed() = true with empty data dir")
	}
}

func TestBinaryPath_UnderDataRoot(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmp)

	bin, err := BinaryPath()
	if err != nil {
		t.Fatalf("BinaryPath() error = %v", err)
	}

	wantDir := filepath.Join(tmp, "biomectl", "toolchain", "bin")
	if filepath.Dir(bin) != wantDir {
		t.Errorf("BinaryPath() dir = %q, want %q", filepath.Dir(bin), wantDir)
	}
}
