package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/riskibarqy/worldcup-predictor/internal/platform/logging"
	"github.com/riskibarqy/worldcup-predictor/internal/usecase"
)

const scheduledRunTimeout = 30 * time.Minute

type refreshRunner interface {
	RefreshPredictions(ctx context.Context) (usecase.RunResult, error)
}

// Scheduler triggers RefreshPredictions on a cron spec. Overlapping ticks are
// skipped by cron and by the pipeline's own single-run guard.
type Scheduler struct {
	cron   *cron.Cron
	runner refreshRunner
	logger *logging.Logger
}

func NewScheduler(spec string, runner refreshRunner, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("scheduler")

	cronLog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	s := &Scheduler{cron: c, runner: runner, logger: logger}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("add refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts new ticks and waits for a running tick until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
	defer cancel()

	result, err := s.runner.RefreshPredictions(ctx)
	if err != nil {
		if errors.Is(err, usecase.ErrRunInProgress) {
			s.logger.InfoContext(ctx, "scheduled refresh skipped", "reason", "run in progress")
			return
		}
		s.logger.ErrorContext(ctx, "scheduled refresh failed", "error", err)
		return
	}
	s.logger.InfoContext(ctx, "scheduled refresh finished",
		"run_id", result.RunID,
		"status", result.Status,
		"predictions_generated", result.PredictionsGenerated,
		"predictions_reused", result.PredictionsReused,
	)
}

type cronLogger struct {
	logger *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
