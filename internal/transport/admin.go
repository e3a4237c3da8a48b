package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	clierrors "github.com/biomelabs/biomectl/internal/errors"
)

// adminRequestTimeout bounds each administrative HTTP request.
const adminRequestTimeout = 6 * time.Second

// LogPage is one window of remote server log lines.
type LogPage struct {
	Lines      []string `json:"lines"`
	NextCursor int      `json:"next_cursor"`
}

// AdminClient talks to a hosted engine server's administrative HTTP surface:
// cursor-based log polling and remote shutdown.
type AdminClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewAdminClient returns a client for the given base URL (scheme://host:port).
func NewAdminClient(baseURL, token string) *AdminClient {
	return &AdminClient{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   adminRequestTimeout,
		},
	}
}

// Logs fetches server log lines starting at cursor, at most limit lines.
// The returned page carries the cursor for the next call.
func (a *AdminClient) Logs(ctx context.Context, cursor, limit int) (*LogPage, error) {
	endpoint := fmt.Sprintf("%s/logs?%s", a.baseURL, url.Values{
		"cursor": {strconv.Itoa(cursor)},
		"limit":  {strconv.Itoa(limit)},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, clierrors.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, clierrors.Transport(fmt.Errorf("GET /logs: HTTP %d", resp.StatusCode))
	}

	var page LogPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, clierrors.Transport(fmt.Errorf("decode /logs response: %w", err))
	}

	return &page, nil
}

// Shutdown asks the remote server to exit.
func (a *AdminClient) Shutdown(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/shutdown", nil)
	if err != nil {
		return err
	}

	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return clierrors.Transport(err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return clierrors.Transport(fmt.Errorf("POST /shutdown: HTTP %d", resp.StatusCode))
	}

	return nil
}

// Reachable reports whether the server answers its health probe.
func (a *AdminClient) Reachable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	a.authorize(req)

	resp, err := a.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode == http.StatusOK
}

func (a *AdminClient) authorize(req *http.Request) {
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
}
