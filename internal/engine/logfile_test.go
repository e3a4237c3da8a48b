package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogSink_AppendAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")

	sink, err := OpenLogSink(path)
	if err != nil {
		t.Fatalf("OpenLogSink() error = %v", err)
	}

	if err := sink.Append("first"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen appends instead of truncating.
	sink, err = OpenLogSink(path)
	if err != nil {
		t.Fatalf("OpenLogSink() reopen error = %v", err)
	}

	if err := sink.Append("second"); err != nil {
		t.Fatalf("Append() after reopen error = %v", err)
	}
	sink.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}

	if got, want := string(data), "first\nsecond\n"; got != want {
		t.Errorf("log contents = %q, want %q", got, want)
	}
}

func TestLogSink_RotatesAtThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	sink, err := OpenLogSink(path)
	if err != nil {
		t.Fatalf("OpenLogSink() error = %v", err)
	}
	defer sink.Close()

	if err := sink.Append("before rotation"); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	// Force the next append to rotate without writing 10 MiB of data.
	sink.mu.Lock()
	sink.size = maxLogSize
	sink.mu.Unlock()

	if err := sink.Append("after rotation"); err != nil {
		t.Fatalf("Append() during rotation error = %v", err)
	}

	old, err := os.ReadFile(path + ".old")
	if err != nil {
		t.Fatalf("reading rotated log: %v", err)
	}

	if !strings.Contains(string(old), "before rotation") {
		t.Errorf("rotated log = %q, want to contain %q", old, "before rotation")
	}

	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading current log: %v", err)
	}

	if got, want := string(current), "after rotation\n"; got != want {
		t.Errorf("current log = %q, want %q", got, want)
	}
}

func TestLogSink_SecondRotationOverwritesOld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	sink, err := OpenLogSink(path)
	if err != nil {
		t.Fatalf("OpenLogSink() error = %v", err)
	}
	defer sink.Close()

	for _, line := range []string{"generation-1", "generation-2", "generation-3"} {
		sink.mu.Lock()
		sink.size = maxLogSize
		sink.mu.Unlock()

		if err := sink.Append(line); err != nil {
			t.Fatalf("Append(%q) error = %v", line, err)
		}
	}

	// Only one rotated generation is kept.
	old, err := os.ReadFile(path + ".old")
	if err != nil {
		t.Fatalf("reading rotated log: %v", err)
	}

	if got, want := string(old), "generation-2\n"; got != want {
		t.Errorf("rotated log = %q, want %q", got, want)
	}
}

func TestLogSink_SurvivesFailedRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")

	sink, err := OpenLogSink(path)
	if err != nil {
		t.Fatalf("OpenLogSink() error = %v", err)
	}
	defer sink.Close()

	// A directory squatting on the rotation target makes the rename fail.
	if err := os.Mkdir(path+".old", 0o755); err != nil {
		t.Fatal(err)
	}

	sink.mu.Lock()
	sink.size = maxLogSize
	sink.mu.Unlock()

	if err := sink.Append("during failure"); err == nil {
		t.Error("Append() error = nil, want the rotation failure reported")
	}

	// The sink must stay open: the line landed and later appends work.
	if err := sink.Append("after failure"); err != nil {
		t.Fatalf("Append() after failed rotation error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log: %v", err)
	}

	for _, want := range []string{"during failure", "after failure"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log = %q, want to contain %q", data, want)
		}
	}
}

func TestTailLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")

	content := "one\ntwo\nthree\nfour\nfive\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"fewer lines than file", 2, []string{"four", "five"}},
		{"exactly the file", 5, []string{"one", "two", "three", "four", "five"}},
		{"more than the file", 10, []string{"one", "two", "three", "four", "five"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := TailLines(path, tt.n)
			if err != nil {
				t.Fatalf("TailLines() error = %v", err)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("TailLines() = %v, want %v", got, tt.want)
			}

			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("TailLines()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTailLines_MissingFile(t *testing.T) {
	got, err := TailLines(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil {
		t.Fatalf("TailLines() error = %v, want nil for missing file", err)
	}

	if len(got) != 0 {
		t.Errorf("TailLines() = %v, want empty", got)
	}
}
