// Package transport provides the realtime and administrative clients used to
// talk to an engine server, whether self-managed or hosted.
package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	clierrors "github.com/biomelabs/biomectl/internal/errors"
)

// ConnectionState describes the realtime channel's lifecycle.
type ConnectionState int

// Connection states.
const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Failed
)

// String returns the state name.
func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Failed:
		return "error"
	default:
		return "disconnected"
	}
}

// StateFunc observes connection state changes. err is non-nil only for
// unexpected transitions to Disconnected.
type StateFunc func(state ConnectionState, err error)

// Client is the realtime channel to an engine server.
type Client interface {
	// Connect dials the server. Safe to call once per client.
	Connect(ctx context.Context) error
	// Send writes one binary message.
	Send(ctx context.Context, data []byte) error
	// Receive blocks for the next message.
	Receive(ctx context.Context) ([]byte, error)
	// Close tears the connection down intentionally; observers see a clean
	// Disconnected transition with no error.
	Close() error
}

const dialTimeout = 10 * time.Second

// WSClient is the websocket implementation of Client.
type WSClient struct {
	url     string
	token   string
	onState StateFunc

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

// NewWSClient returns a client for the given websocket URL. token, when
// non-empty, is sent as a bearer Authorization header. onState may be nil.
func NewWSClient(url, token string, onState StateFunc) *WSClient {
	return &WSClient{url: url, token: token, onState: onState}
}

// Connect dials the configured URL.
func (c *WSClient) Connect(ctx context.Context) error {
	c.notify(Connecting, nil)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	opts := &websocket.DialOptions{}
	if c.token != "" {
		opts.HTTPHeader = http.Header{"Authorization": {"Bearer " + c.token}}
	}

	conn, _, err := websocket.Dial(dialCtx, c.url, opts)
	if err != nil {
		c.notify(Failed, err)
		return clierrors.Transport(err)
	}

	// Frame payloads can be large; do not let the library cap reads.
	conn.SetReadLimit(-1)

	c.mu.Lock()
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	c.notify(Connected, nil)

	return nil
}

// Send writes one binary message to the server.
func (c *WSClient) Send(ctx context.Context, data []byte) error {
	conn := c.current()
	if conn == nil {
		return clierrors.Transport(errNotConnected)
	}

	if err := conn.Write(ctx, websocket.MessageBinary, data); err != nil {
		c.dropped(err)
		return clierrors.Transport(err)
	}

	return nil
}

// Receive blocks for the next message from the server.
func (c *WSClient) Receive(ctx context.Context) ([]byte, error) {
	conn := c.current()
	if conn == nil {
		return nil, clierrors.Transport(errNotConnected)
	}

	_, data, err := conn.Read(ctx)
	if err != nil {
		c.dropped(err)
		return nil, clierrors.Transport(err)
	}

	return data, nil
}

// Close performs an intentional, clean shutdown of the channel.
func (c *WSClient) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if conn == nil {
		return nil
	}

	err := conn.Close(websocket.StatusNormalClosure, "session ended")
	c.notify(Disconnected, nil)

	return err
}

func (c *WSClient) current() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn
}

// dropped handles an unexpected connection failure. A failure observed
// after an intentional Close is not reported as connection loss.
func (c *WSClient) dropped(err error) {
	c.mu.Lock()
	wasClosed := c.closed
	c.conn = nil
	c.closed = true
	c.mu.Unlock()

	if !wasClosed {
		c.notify(Disconnected, err)
	}
}

func (c *WSClient) notify(state ConnectionState, err error) {
	if c.onState != nil {
		c.onState(state, err)
	}
}

type notConnectedError struct{}

func (notConnectedError) Error() string { return "not connected" }

var errNotConnected = notConnectedError{}
