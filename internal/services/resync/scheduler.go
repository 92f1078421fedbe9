// Package resync schedules fallback snapshot fetches that heal any event loss
// on the push channel.
package resync

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/botwatch/internal/domain"
	"github.com/vadiminshakov/botwatch/internal/event"
)

// DefaultInterval is the fallback resync period.
const DefaultInterval = 60000 * time.Millisecond

// SnapshotLoader is implemented by the snapshot loader.
type SnapshotLoader interface {
	Load(ctx context.Context) (domain.Snapshot, error)
}

// Scheduler re-invokes the snapshot loader on a fixed interval and on demand
// (stream reconnects). Overlapping resyncs are forbidden: while one is in
// flight a newly-due tick or trigger is skipped, not queued, so variable
// network latency can never fan out into concurrent fetch storms.
type Scheduler struct {
	loader   SnapshotLoader
	inbox    chan<- event.Event
	interval time.Duration
	l        *zap.Logger

	trigger  chan struct{}
	inFlight atomic.Bool
}

// NewScheduler creates a scheduler feeding loader results into inbox. A
// non-positive interval falls back to DefaultInterval.
func NewScheduler(loader SnapshotLoader, inbox chan<- event.Event, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		loader:   loader,
		inbox:    inbox,
		interval: interval,
		l:        logger,
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger requests an immediate resync. Safe to call from any goroutine; a
// request is coalesced with any already pending.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run performs the initial snapshot that populates empty state, then loops on
// the timer and on-demand triggers until ctx is cancelled. No resync fires
// after cancellation; a resync in flight at teardown has its result discarded.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.resync(ctx)

	for {
		select {
		case <-ctx.Done():
			s.l.Info("resync scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.resync(ctx)
		case <-s.trigger:
			s.resync(ctx)
		}
	}
}

// resync runs one snapshot load unless another is already in flight. The load
// happens off the scheduling loop so due ticks keep being consumed (and
// skipped) instead of piling up behind a slow fetch.
func (s *Scheduler) resync(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.l.Debug("resync already in flight, skipping")
		return
	}

	go func() {
		defer s.inFlight.Store(false)

		start := time.Now()
		snap, err := s.loader.Load(ctx)
		if err != nil {
			// last-known-good state stays on screen; the next tick retries.
			s.l.Warn("resync failed, keeping last known good state", zap.Error(err))
			return
		}
		if ctx.Err() != nil {
			return
		}

		select {
		case s.inbox <- event.SnapshotEvent{Snapshot: snap}:
			s.l.Debug("resync applied", zap.Duration("took", time.Since(start)))
		case <-ctx.Done():
		}
	}()
}
