// Package jobs runs periodic maintenance work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/botscript-backend/internal/config"
	"github.com/javajoker/botscript-backend/internal/metrics"
	"github.com/javajoker/botscript-backend/internal/services"
)

const (
	JobReconcile = "reconcile"

	// runTimeout bounds a single sweep.
	runTimeout = 5 * time.Minute
)

type Reconciler interface {
	Reconcile(ctx context.Context) (*services.ReconcileReport, error)
}

type Scheduler struct {
	cron       *cron.Cron
	reconciler Reconciler
	logger     *logrus.Entry
}

// New registers the reconciliation sweep under cfg.ReconcileSpec. Overlapping
// runs are skipped and a panicking run does not stop the scheduler.
func New(cfg config.JobsConfig, reconciler Reconciler) (*Scheduler, error) {
	logger := logrus.WithField("component", "jobs")
	cronLogger := cron.PrintfLogger(logger)

	s := &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLogger),
			cron.SkipIfStillRunning(cronLogger),
		)),
		reconciler: reconciler,
		logger:     logger,
	}

	if _, err := s.cron.AddFunc(cfg.ReconcileSpec, func() {
		s.RunReconcile(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("invalid reconcile schedule %q: %w", cfg.ReconcileSpec, err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting job scheduler")
	s.cron.Start()
}

// Stop prevents new runs and waits for a running sweep up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Job scheduler stopped before running jobs finished")
	}
}

// RunReconcile performs one sweep and records its outcome.
func (s *Scheduler) RunReconcile(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	start := time.Now()
	report, err := s.reconciler.Reconcile(ctx)
	metrics.RecordJobRun(JobReconcile, err == nil)

	entry := s.logger.WithFields(logrus.Fields{
		"job":      JobReconcile,
		"duration": time.Since(start).Milliseconds(),
	})
	if report != nil {
		entry = entry.WithFields(logrus.Fields{
			"orders_compensated": report.OrdersCompensated,
			"products_rerated":   report.ProductsRerated,
		})
	}
	if err != nil {
		entry.WithError(err).Error("Reconciliation finished with errors")
		return
	}
	entry.Info("Reconciliation finished")
}
