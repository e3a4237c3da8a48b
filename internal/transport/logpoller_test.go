package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

// logServer serves a cursor-paged view over an in-memory line buffer.
type logServer struct {
	mu    sync.Mutex
	lines []string
}

func (s *logServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cursor, _ := strconv.Atoi(r.URL.Query().Get("cursor"))

		s.mu.Lock()
		defer s.mu.Unlock()

		if cursor > len(s.lines) {
			cursor = len(s.lines)
		}

		json.NewEncoder(w).Encode(LogPage{
			Lines:      s.lines[cursor:],
			NextCursor: len(s.lines),
		})
	})
}

func (s *logServer) append(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = append(s.lines, lines...)
}

func (s *logServer) reset(lines ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = lines
}

func TestLogPoller_DeliversEachLineOnce(t *testing.T) {
	backend := &logServer{}
	backend.append("one", "two")

	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	var mu sync.Mutex
	var got []string

	poller := NewLogPoller(NewAdminClient(srv.URL, ""), func(line string) {
		mu.Lock()
		defer mu.Unlock()

		got = append(got, line)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	waitForLines := func(n int) {
		t.Helper()

		deadline := time.After(5 * time.Second)
		for {
			mu.Lock()
			count := len(got)
			mu.Unlock()

			if count >= n {
				return
			}

			select {
			case <-deadline:
				t.Fatalf("timed out waiting for %d lines, have %d", n, count)
			case <-time.After(50 * time.Millisecond):
			}
		}
	}

	waitForLines(2)
	backend.append("three")
	waitForLines(3)

	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()

	want := []string{"one", "two", "three"}
	if len(got) != len(want) {
		t.Fatalf("delivered lines = %v, want %v (each exactly once)", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestLogPoller_ResetsCursorAfterServerRestart(t *testing.T) {
	backend := &logServer{}
	backend.append("a", "b", "c")

	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	var mu sync.Mutex
	var got []string

	poller := NewLogPoller(NewAdminClient(srv.URL, ""), func(line string) {
		mu.Lock()
		defer mu.Unlock()

		got = append(got, line)
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	waitFor := func(pred func([]string) bool, what string) {
		t.Helper()

		deadline := time.After(8 * time.Second)
		for {
			mu.Lock()
			ok := pred(got)
			mu.Unlock()

			if ok {
				return
			}

			select {
			case <-deadline:
				t.Fatalf("timed out waiting for %s; delivered %v", what, got)
			case <-time.After(50 * time.Millisecond):
			}
		}
	}

	waitFor(func(lines []string) bool { return len(lines) == 3 }, "initial catch-up")

	// The server restarts with a smaller buffer: the remote cursor space
	// shrank below ours, so the poller starts over from zero.
	backend.reset("fresh")

	waitFor(func(lines []string) bool {
		return len(lines) == 4 && lines[3] == "fresh"
	}, "post-restart delivery")

	cancel()
	<-done
}
