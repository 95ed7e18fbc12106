package durable

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Janitor periodically deletes terminal workflow records older than the
// retention window. It is an optional helper for deployments without an
// external job runner; the sweep it performs is exactly
// Manager.Cleanup, so a failed or skipped sweep never affects in-flight
// workflows.
//
// Typical usage:
//
//	j := durable.NewJanitor(mgr, time.Hour, 30*24*time.Hour)
//	_ = j.Start(ctx)
//	defer j.Stop()
type Janitor struct {
	// Logger receives sweep results. If nil, slog.Default() is used.
	Logger *slog.Logger

	mgr       *Manager
	interval  time.Duration
	retention time.Duration
	statuses  []Status

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewJanitor creates a Janitor sweeping every interval, deleting
// terminal workflows idle for longer than retention. With no statuses
// given the sweep covers COMPLETED and FAILED.
func NewJanitor(mgr *Manager, interval, retention time.Duration, statuses ...Status) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{
		mgr:       mgr,
		interval:  interval,
		retention: retention,
		statuses:  statuses,
	}
}

// Start launches the sweep goroutine. It returns an error if the
// janitor is already running.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running {
		return errors.New("durable: janitor already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.running = true

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.sweep(ctx)
			}
		}
	}()
	return nil
}

// Stop cancels the sweep goroutine and waits for it to exit.
// It is safe to call Stop multiple times.
func (j *Janitor) Stop() {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return
	}
	j.running = false
	cancel := j.cancel
	j.mu.Unlock()

	cancel()
	j.wg.Wait()
}

func (j *Janitor) sweep(ctx context.Context) {
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cutoff := time.Now().Add(-j.retention)
	removed, err := j.mgr.Cleanup(ctx, cutoff, j.statuses...)
	if err != nil {
		logger.WarnContext(ctx, "janitor_sweep_incomplete",
			slog.Int("removed", removed),
			slog.Any("error", err),
		)
		return
	}
	if removed > 0 {
		logger.InfoContext(ctx, "janitor_sweep",
			slog.Int("removed", removed),
			slog.Time("cutoff", cutoff),
		)
	}
}
