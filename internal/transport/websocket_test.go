package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"

	clierrors "github.com/biomelabs/biomectl/internal/errors"
)

// stateRecorder collects connection state transitions.
type stateRecorder struct {
	mu     sync.Mutex
	states []ConnectionState
}

func (r *stateRecorder) record(state ConnectionState, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.states = append(r.states, state)
}

func (r *stateRecorder) snapshot() []ConnectionState {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ConnectionState, len(r.states))
	copy(out, r.states)

	return out
}

// echoServer accepts one websocket connection and echoes binary messages.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.CloseNow()

		ctx := r.Context()
		for {
			kind, data, err := conn.Read(ctx)
			if err != nil {
				return
			}

			if err := conn.Write(ctx, kind, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWSClient_ConnectSendReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	rec := &stateRecorder{}
	client := NewWSClient(wsURL(srv), "", rec.record)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	payload := []byte("frame data")
	if err := client.Send(ctx, payload); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	got, err := client.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}

	if string(got) != string(payload) {
		t.Errorf("Receive() = %q, want %q", got, payload)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	want := []ConnectionState{Connecting, Connected, Disconnected}
	states := rec.snapshot()

	if len(states) != len(want) {
		t.Fatalf("states = %v, want %v", states, want)
	}

	for i := range want {
		if states[i] != want[i] {
			t.Errorf("states[%d] = %v, want %v", i, states[i], want[i])
		}
	}
}

func TestWSClient_DialFailure(t *testing.T) {
	// A server that is immediately closed guarantees a refused dial.
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	rec := &stateRecorder{}
	client := NewWSClient(url, "", rec.record)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Connect(ctx)
	if err == nil {
		t.Fatal("Connect() error = nil, want transport error")
	}

	if !clierrors.HasKind(err, clierrors.KindTransport) {
		t.Errorf("Connect() error = %v, want transport kind", err)
	}

	states := rec.snapshot()
	if len(states) != 2 || states[0] != Connecting || states[1] != Failed {
		t.Errorf("states = %v, want [connecting error]", states)
	}
}

func TestWSClient_SendWithoutConnect(t *testing.T) {
	client := NewWSClient("ws://localhost:1/ws", "", nil)

	if err := client.Send(context.Background(), []byte("x")); err == nil {
		t.Error("Send() error = nil, want not-connected error")
	}

	if _, err := client.Receive(context.Background()); err == nil {
		t.Error("Receive() error = nil, want not-connected error")
	}
}

func TestWSClient_BearerToken(t *testing.T) {
	gotAuth := make(chan string, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		conn.Close(websocket.StatusNormalClosure, "")
	}))
	defer srv.Close()

	client := NewWSClient(wsURL(srv), "tok-123", nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Connect(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	select {
	case auth := <-gotAuth:
		if auth != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want bearer token", auth)
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw the handshake")
	}
}

func TestWSClient_CloseIsIdempotent(t *testing.T) {
	client := NewWSClient("ws://localhost:1/ws", "", nil)

	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
