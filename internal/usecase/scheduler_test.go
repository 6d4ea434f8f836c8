package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingStepper struct {
	mu    sync.Mutex
	count int
	fail  bool
	panic bool
}

func (s *countingStepper) Step(context.Context) error {
	s.mu.Lock()
	s.count++
	n := s.count
	s.mu.Unlock()

	if s.panic && n == 1 {
		panic("boom")
	}
	if s.fail {
		return errors.New("step failed")
	}
	return nil
}

func (s *countingStepper) steps() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func TestSchedulerRunsUntilCancelled(t *testing.T) {
	stepper := &countingStepper{}
	scheduler := NewScheduler(stepper, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx)

	if got := stepper.steps(); got < 2 {
		t.Fatalf("ran %d steps, want at least 2", got)
	}
}

func TestSchedulerSurvivesFailingSteps(t *testing.T) {
	stepper := &countingStepper{fail: true}
	scheduler := NewScheduler(stepper, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx)

	if got := stepper.steps(); got < 2 {
		t.Fatalf("loop stopped after a failing step, ran %d", got)
	}
}

func TestSchedulerSurvivesPanickingStep(t *testing.T) {
	stepper := &countingStepper{panic: true}
	scheduler := NewScheduler(stepper, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 40*time.Millisecond)
	defer cancel()
	scheduler.Run(ctx)

	if got := stepper.steps(); got < 2 {
		t.Fatalf("loop did not continue after a panic, ran %d", got)
	}
}
