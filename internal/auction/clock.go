package auction

import (
	"sync"
	"time"
)

// Clock drives the per-second countdown for one watched auction. It is the
// only recurring background activity in the console; Stop cancels the tick
// deterministically and the clock stops itself once the view is terminal.
type Clock struct {
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	stop    chan struct{}
	stopped bool
}

func NewClock() *Clock {
	return &Clock{interval: time.Second, now: time.Now}
}

// newClockAt is the test constructor; it injects the tick interval and
// time source.
func newClockAt(interval time.Duration, now func() time.Time) *Clock {
	return &Clock{interval: interval, now: now}
}

// Start begins emitting phase views for a, one per interval, until Stop is
// called or the view turns terminal. The first view is emitted immediately.
// Start is a no-op on a clock that already ran.
func (c *Clock) Start(a *Auction, emit func(PhaseView)) {
	c.mu.Lock()
	if c.stop != nil || c.stopped {
		c.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	c.stop = stop
	c.mu.Unlock()

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		view := Resolve(a, c.now())
		emit(view)
		for !view.Terminal() {
			select {
			case <-stop:
				return
			case <-ticker.C:
				view = Resolve(a, c.now())
				emit(view)
			}
		}
		c.Stop()
	}()
}

// Stop cancels the tick. Safe to call more than once, and safe to call
// concurrently with the tick loop.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	if c.stop != nil {
		close(c.stop)
	}
}
