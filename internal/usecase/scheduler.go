package usecase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Stepper is one reconciliation pass.
type Stepper interface {
	Step(ctx context.Context) error
}

// Scheduler runs a Stepper at a fixed interval until the context is
// cancelled. A failed or panicking step is logged and the loop keeps going;
// the process only stops on shutdown.
type Scheduler struct {
	stepper  Stepper
	interval time.Duration
	log      *logrus.Logger
}

func NewScheduler(stepper Stepper, interval time.Duration, log *logrus.Logger) *Scheduler {
	return &Scheduler{
		stepper:  stepper,
		interval: interval,
		log:      log,
	}
}

// Run blocks until ctx is done. The first step fires immediately, then every
// interval. Steps never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runStep(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.runStep(ctx)
		}
	}
}

func (s *Scheduler) runStep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", r).Error("step panicked")
		}
	}()

	start := time.Now()
	if err := s.stepper.Step(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.log.WithError(err).Error("step failed")
		return
	}
	s.log.WithField("took", time.Since(start).Round(time.Millisecond)).Debug("step finished")
}
