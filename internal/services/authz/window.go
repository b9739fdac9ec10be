package authz

import (
	"time"

	"github.com/chainsub/orchestrator/internal/models"
)

const tumblingWindowLength = time.Minute

// tumblingCounter is a one-minute tumbling window: a count that resets
// to zero whenever the window has elapsed, rather than a sliding log
// of individual timestamps. A tumbling window is cheaper and is what
// the rate-limit steps in Authenticate/Request validation call for.
type tumblingCounter struct {
	windows map[string]*models.RateWindow
}

func newTumblingCounter() *tumblingCounter {
	return &tumblingCounter{windows: make(map[string]*models.RateWindow)}
}

// allow reports whether one more request fits under cap in key's
// current window, resetting the window first if it has elapsed. It
// always increments on allow.
func (c *tumblingCounter) allow(key string, cap int, now time.Time) bool {
	w, ok := c.windows[key]
	if !ok || now.Sub(w.WindowStart) >= tumblingWindowLength {
		w = &models.RateWindow{Scope: key, Count: 0, WindowStart: now}
		c.windows[key] = w
	}
	if w.Count >= cap {
		return false
	}
	w.Count++
	return true
}

// quotaState tracks a session's decrementing per-identity quota,
// reset to the configured cap whenever its window elapses.
type quotaState struct {
	remaining int
	windowStart time.Time
}

func (q *quotaState) take(cap int, now time.Time) bool {
	if q.windowStart.IsZero() || now.Sub(q.windowStart) >= tumblingWindowLength {
		q.remaining = cap
		q.windowStart = now
	}
	if q.remaining <= 0 {
		return false
	}
	q.remaining--
	return true
}
