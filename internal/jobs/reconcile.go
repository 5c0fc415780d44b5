// Package jobs holds the periodic maintenance tasks of the server.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dtroode/dreamluck-server/internal/clock"
	"github.com/dtroode/dreamluck-server/internal/logger"
	"github.com/dtroode/dreamluck-server/internal/model"
)

// Observer receives the number of records each run moved to failed.
type Observer interface {
	ObserveReconciled(n int64)
}

type noopObserver struct{}

func (noopObserver) ObserveReconciled(int64) {}

// Reconciler fails free dream records left pending by interrupted requests.
// It never retries generation and never refunds quota.
type Reconciler struct {
	dreams       model.DreamStore
	clock        clock.Clock
	pendingAfter time.Duration
	observer     Observer
	logger       *logger.Logger
	cron         *cron.Cron
}

func NewReconciler(dreams model.DreamStore, clk clock.Clock, pendingAfter time.Duration, observer Observer, logger *logger.Logger) *Reconciler {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Reconciler{
		dreams:       dreams,
		clock:        clk,
		pendingAfter: pendingAfter,
		observer:     observer,
		logger:       logger,
	}
}

// RunOnce marks every record pending for longer than pendingAfter as failed.
func (r *Reconciler) RunOnce(ctx context.Context) (int64, error) {
	cutoff := r.clock.Now().Add(-r.pendingAfter)

	n, err := r.dreams.MarkStalePendingFailed(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile pending dreams: %w", err)
	}

	r.observer.ObserveReconciled(n)
	if n > 0 {
		r.logger.Info("Reconciler: stale pending dreams failed",
			"count", n,
			"cutoff", cutoff.Format(time.RFC3339))
	} else {
		r.logger.Debug("Reconciler: nothing to reconcile")
	}
	return n, nil
}

// Start schedules RunOnce on spec, a standard cron expression or descriptor
// such as "@every 10m".
func (r *Reconciler) Start(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := r.RunOnce(context.Background()); err != nil {
			r.logger.Error("Reconciler: run failed", "error", err.Error())
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}

	r.cron = c
	c.Start()
	r.logger.Info("Reconciler: started", "schedule", spec, "pending_after", r.pendingAfter.String())
	return nil
}

// Stop waits for a running job to finish or ctx to expire.
func (r *Reconciler) Stop(ctx context.Context) {
	if r.cron == nil {
		return
	}
	select {
	case <-r.cron.Stop().Done():
	case <-ctx.Done():
	}
	r.logger.Info("Reconciler: stopped")
}
