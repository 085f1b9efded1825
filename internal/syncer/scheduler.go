package syncer

import (
	"context"
	"time"

	"kobo/internal/log"
)

// maxBackoffFactor caps the retry interval at five base periods.
const maxBackoffFactor = 5

// NextInterval returns the wait before the next automatic refresh. A healthy
// core waits base; while the connection is failing the wait doubles per
// counted failure up to 5·base.
func NextInterval(base time.Duration, connectionError bool, failures int) time.Duration {
	if !connectionError {
		return base
	}
	limit := base * maxBackoffFactor
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	return d
}

// Clock abstracts time for the refresh loop.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Start performs one immediate refresh and, when autoRefresh is set, keeps
// refreshing in the background until ctx ends or Stop is called. Calling
// Start on a running core restarts the loop.
func (c *Core) Start(ctx context.Context, autoRefresh bool) {
	c.Stop()
	c.Refresh(ctx, false)
	if !autoRefresh {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go c.run(loopCtx, done)
}

// Stop cancels the background loop and waits for it to exit. It is safe to
// call more than once.
func (c *Core) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Dispose stops the loop and drops the change callback.
func (c *Core) Dispose() {
	c.Stop()
	c.mu.Lock()
	c.onChange = nil
	c.mu.Unlock()
}

func (c *Core) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		st := c.State()
		wait := NextInterval(c.baseInterval, st.ConnectionError, st.ConsecutiveFailures)
		c.logger.DebugContext(ctx, "Next refresh scheduled",
			log.FieldNextRefresh, wait.String(),
			log.FieldFailures, st.ConsecutiveFailures)

		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(wait):
		}

		if c.State().Loading {
			continue
		}
		c.Refresh(ctx, true)
	}
}
