// Package janitor implements background cleanup of stranded workspaces.
// The engine's expiry timers handle the normal lifecycle; the janitor covers
// directories left behind by a crash or restart, when those timers are gone.
package janitor

import (
	"context"
	"sync"
	"time"

	"github.com/ipagrab/ipagrab/internal/infra/logger"
)

// Sweeper abstracts the cleanup operation the janitor drives.
type Sweeper interface {
	// SweepExpired removes unowned workspaces older than the cutoff and
	// returns the number removed.
	SweepExpired(ctx context.Context, olderThan time.Time) (int, error)
}

type Janitor struct {
	sweeper  Sweeper
	ttl      time.Duration
	interval time.Duration
	log      *logger.Logger

	ticker *time.Ticker
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs but does not start a Janitor.
func New(s Sweeper, ttl, interval time.Duration, log *logger.Logger) *Janitor {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Janitor{
		sweeper:  s,
		ttl:      ttl,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the sweep loop in a new goroutine. One cycle runs
// immediately so stale directories from a previous process die at startup.
func (j *Janitor) Start(ctx context.Context) {
	if j.ticker != nil {
		return // already started
	}
	j.ticker = time.NewTicker(j.interval)

	go func() {
		defer func() {
			j.ticker.Stop()
			close(j.doneCh)
		}()

		j.runCycle(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-j.stopCh:
				return
			case <-j.ticker.C:
				j.runCycle(ctx)
			}
		}
	}()
}

// Stop signals the loop to exit and waits for completion.
func (j *Janitor) Stop() {
	j.once.Do(func() { close(j.stopCh) })
	<-j.doneCh
}

func (j *Janitor) runCycle(ctx context.Context) {
	cutoff := time.Now().Add(-j.ttl)

	removed, err := j.sweeper.SweepExpired(ctx, cutoff)
	if err != nil {
		j.log.Error("Janitor sweep failed: %v", err)
		return
	}
	if removed > 0 {
		j.log.Info("Janitor removed %d stale workspace(s)", removed)
	}
}
