// internal/engine/tasks.go
package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type taskKey struct {
	matchID uuid.UUID
	seatID  uuid.UUID
}

// TaskScheduler runs delayed callbacks keyed by (match, seat). Scheduling a
// task replaces any pending one under the same key. The delay exists purely
// for pacing: callbacks fire on a timer goroutine and must re-validate the
// current state before acting, dropping themselves if stale.
type TaskScheduler struct {
	mu      sync.Mutex
	timers  map[taskKey]*time.Timer
	stopped bool
}

// NewTaskScheduler builds an empty scheduler.
func NewTaskScheduler() *TaskScheduler {
	return &TaskScheduler{timers: make(map[taskKey]*time.Timer)}
}

// Schedule queues fn to run after d, replacing any pending task for the same
// (match, seat).
func (ts *TaskScheduler) Schedule(matchID, seatID uuid.UUID, d time.Duration, fn func()) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.stopped {
		return
	}
	key := taskKey{matchID, seatID}
	if t, ok := ts.timers[key]; ok {
		t.Stop()
	}
	ts.timers[key] = time.AfterFunc(d, func() {
		ts.mu.Lock()
		delete(ts.timers, key)
		stopped := ts.stopped
		ts.mu.Unlock()
		if stopped {
			return
		}
		fn()
	})
}

// Cancel drops the pending task for one seat, if any.
func (ts *TaskScheduler) Cancel(matchID, seatID uuid.UUID) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	key := taskKey{matchID, seatID}
	if t, ok := ts.timers[key]; ok {
		t.Stop()
		delete(ts.timers, key)
	}
}

// CancelMatch drops every pending task for a match, typically at match end.
func (ts *TaskScheduler) CancelMatch(matchID uuid.UUID) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	for key, t := range ts.timers {
		if key.matchID == matchID {
			t.Stop()
			delete(ts.timers, key)
		}
	}
}

// Stop cancels everything and refuses further scheduling.
func (ts *TaskScheduler) Stop() {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.stopped = true
	for key, t := range ts.timers {
		t.Stop()
		delete(ts.timers, key)
	}
}
