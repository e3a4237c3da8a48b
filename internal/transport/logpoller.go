package transport

import (
	"context"
	"time"

	"github.com/biomelabs/biomectl/internal/observability"
)

const (
	pollInterval  = 1 * time.Second
	pollPageLimit = 200
)

// LogPoller periodically pulls new log lines from a hosted server's admin
// surface and hands them to a callback. The cursor advances monotonically,
// so each line is delivered once.
type LogPoller struct {
	admin  *AdminClient
	onLine func(line string)
	cursor int
}

// NewLogPoller returns a poller that delivers each remote log line to onLine.
func NewLogPoller(admin *AdminClient, onLine func(line string)) *LogPoller {
	return &LogPoller{admin: admin, onLine: onLine}
}

// Run polls until ctx is canceled. Fetch errors are logged and retried on
// the next tick; a hosted server restart resets the cursor when the remote
// buffer shrinks below it.
func (p *LogPoller) Run(ctx context.Context) {
	logger := observability.FromContext(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		page, err := p.admin.Logs(ctx, p.cursor, pollPageLimit)
		if err != nil {
			logger.Debug("remote log poll failed", "error", err)
			continue
		}

		if page.NextCursor < p.cursor {
			p.cursor = 0
			continue
		}

		for _, line := range page.Lines {
			p.onLine(line)
		}

		p.cursor = page.NextCursor
	}
}
