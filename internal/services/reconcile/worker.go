package reconcile

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Worker runs the reconciler on a fixed interval until stopped.
type Worker struct {
	reconciler *Reconciler
	interval   time.Duration
	logger     *zap.Logger
	stopChan   chan struct{}
	stopOnce   sync.Once
}

func NewWorker(reconciler *Reconciler, interval time.Duration, logger *zap.Logger) *Worker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Worker{
		reconciler: reconciler,
		interval:   interval,
		logger:     logger.Named("reconcile_worker"),
		stopChan:   make(chan struct{}),
	}
}

// Start blocks until Stop is called or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting reconcile worker", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)

		case <-w.stopChan:
			w.logger.Info("stopping reconcile worker")
			return

		case <-ctx.Done():
			w.logger.Info("context cancelled, stopping reconcile worker")
			return
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	report, err := w.reconciler.Run(ctx)
	if err != nil {
		w.logger.Error("reconciliation failed", zap.Error(err))
		return
	}
	if !report.OK() {
		w.logger.Error("ledger is inconsistent", zap.Int("mismatches", len(report.Mismatches)))
	}
}

func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}
