// Package notify polls the marketplace for notifications on a fixed
// schedule. One watcher with explicit Start/Stop replaces the per-view
// intervals the web client scattered around.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankuaru/bidconsole/internal/auction"
)

type Fetcher interface {
	GetNotifications(ctx context.Context) ([]auction.Notification, error)
}

type Watcher struct {
	fetch    Fetcher
	interval time.Duration
	log      zerolog.Logger
	onNew    func([]auction.Notification)

	mu   sync.Mutex
	stop chan struct{}
	seen map[string]struct{}
}

// New builds a watcher that calls onNew with notifications it has not
// delivered before. onNew may be nil when only logging is wanted.
func New(fetch Fetcher, interval time.Duration, log zerolog.Logger, onNew func([]auction.Notification)) *Watcher {
	return &Watcher{
		fetch:    fetch,
		interval: interval,
		log:      log,
		onNew:    onNew,
		seen:     make(map[string]struct{}),
	}
}

// Start begins polling until Stop. A poll that fails is logged and the
// next tick tries again; there is no backoff.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		return
	}
	stop := make(chan struct{})
	w.stop = stop

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		w.poll()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				w.poll()
			}
		}
	}()
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop == nil {
		return
	}
	close(w.stop)
	w.stop = nil
}

func (w *Watcher) poll() {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	items, err := w.fetch.GetNotifications(ctx)
	if err != nil {
		w.log.Debug().Err(err).Msg("notification poll failed")
		return
	}
	w.mu.Lock()
	fresh := items[:0:0]
	for _, n := range items {
		if _, ok := w.seen[n.ID]; ok {
			continue
		}
		w.seen[n.ID] = struct{}{}
		fresh = append(fresh, n)
	}
	w.mu.Unlock()
	if len(fresh) == 0 {
		return
	}
	for _, n := range fresh {
		w.log.Info().Str("type", n.Type).Str("id", n.ID).Msg(n.Message)
	}
	if w.onNew != nil {
		w.onNew(fresh)
	}
}
