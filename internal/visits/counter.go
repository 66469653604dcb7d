// Package visits counts site visits through an external counter. Every
// implementation is best-effort; nothing in the calculator depends on it.
package visits

import (
	"context"
	"log/slog"
	"time"
)

// Counter records visits and reports the running total.
type Counter interface {
	// Hit records one visit for the given session.
	Hit(ctx context.Context, sessionID string) error
	// Total returns the number of visits recorded so far.
	Total(ctx context.Context) (int64, error)
}

// Noop is the counter used when none is configured.
type Noop struct{}

func (Noop) Hit(context.Context, string) error { return nil }

func (Noop) Total(context.Context) (int64, error) { return 0, ErrUnavailable }

// Tracker calls a Counter in the background so a slow or broken counter
// never holds up a request.
type Tracker struct {
	counter Counter
	timeout time.Duration
	logger  *slog.Logger
}

// NewTracker wraps c. A nil c behaves like Noop.
func NewTracker(c Counter, timeout time.Duration, logger *slog.Logger) *Tracker {
	if c == nil {
		c = Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{counter: c, timeout: timeout, logger: logger}
}

// Track records a visit asynchronously. Failures are logged and dropped.
func (t *Tracker) Track(sessionID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.counter.Hit(ctx, sessionID); err != nil {
			t.logger.Warn("visit counter hit failed", "session", sessionID, "error", err)
		}
	}()
}

// Total returns the counter total, or false when it cannot be read.
func (t *Tracker) Total(ctx context.Context) (int64, bool) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	n, err := t.counter.Total(ctx)
	if err != nil {
		t.logger.Warn("visit counter total failed", "error", err)
		return 0, false
	}
	return n, true
}
