package core

import (
	"context"
	"time"
)

// DefaultAutoSaveInterval is the flush period of an AutoSaver.
const DefaultAutoSaveInterval = 30 * time.Second

// Flusher writes buffered state to durable storage.
type Flusher interface {
	Flush(ctx context.Context) error
}

// AutoSaver flushes a store on a fixed interval whether or not anything
// changed.
type AutoSaver struct {
	store    Flusher
	interval time.Duration
	logger   Logger
}

// NewAutoSaver returns an auto-saver; a non-positive interval selects
// DefaultAutoSaveInterval.
func NewAutoSaver(store Flusher, interval time.Duration, logger Logger) *AutoSaver {
	if interval <= 0 {
		interval = DefaultAutoSaveInterval
	}
	if logger == nil {
		logger = noopLogger{}
	}
	return &AutoSaver{store: store, interval: interval, logger: logger}
}

// Interval returns the flush period.
func (a *AutoSaver) Interval() time.Duration { return a.interval }

// Run flushes on every tick until ctx ends, then flushes once more.
// Flush failures are logged and do not stop the loop.
func (a *AutoSaver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			if err := a.store.Flush(context.WithoutCancel(ctx)); err != nil {
				a.logger.Error("final auto-save failed", "error", err)
			}
			return nil
		case <-ticker.C:
			if err := a.store.Flush(ctx); err != nil {
				a.logger.Error("auto-save failed", "error", err)
				continue
			}
			a.logger.Debug("auto-save complete")
		}
	}
}
