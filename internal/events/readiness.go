package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"bakery_backend/pkg/utils"
)

// Readiness resolves once every tracked feed has reported a first snapshot,
// or once the timeout elapses, whichever comes first.
type Readiness struct {
	mu       sync.Mutex
	pending  map[string]struct{}
	done     chan struct{}
	timedOut bool
	timer    *time.Timer
}

// NewReadiness starts tracking feeds. A non-positive timeout waits forever.
func NewReadiness(feeds []string, timeout time.Duration) *Readiness {
	r := &Readiness{
		pending: make(map[string]struct{}, len(feeds)),
		done:    make(chan struct{}),
	}
	for _, feed := range feeds {
		r.pending[feed] = struct{}{}
	}
	if len(r.pending) == 0 {
		close(r.done)
		return r
	}
	if timeout > 0 {
		r.timer = time.AfterFunc(timeout, r.expire)
	}
	return r
}

// Report marks feed as having delivered its initial snapshot. Unknown and repeated feeds are ignored.
func (r *Readiness) Report(feed string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[feed]; !ok {
		return
	}
	delete(r.pending, feed)
	if len(r.pending) == 0 && !r.resolved() {
		if r.timer != nil {
			r.timer.Stop()
		}
		close(r.done)
		utils.LogInfo("All data feeds reported, service is ready")
	}
}

func (r *Readiness) expire() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved() {
		return
	}
	r.timedOut = true
	close(r.done)

	missing := make([]string, 0, len(r.pending))
	for feed := range r.pending {
		missing = append(missing, feed)
	}
	utils.LogWarn("Readiness timeout elapsed, continuing without all feeds", map[string]interface{}{"missing": missing})
}

// resolved must be called with mu held.
func (r *Readiness) resolved() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Done is closed when the barrier resolves.
func (r *Readiness) Done() <-chan struct{} {
	return r.done
}

// Ready reports whether the barrier has resolved.
func (r *Readiness) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolved()
}

// TimedOut reports whether the barrier resolved because of the timeout.
func (r *Readiness) TimedOut() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.timedOut
}

// Pending lists feeds that have not reported yet.
func (r *Readiness) Pending() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.pending))
	for feed := range r.pending {
		out = append(out, feed)
	}
	sort.Strings(out)
	return out
}

// Wait blocks until the barrier resolves or ctx ends.
func (r *Readiness) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
