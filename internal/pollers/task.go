package pollers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Outcome is how a bounded poll task ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
)

// ErrInvalidTaskConfig is returned for a non-positive interval or attempt cap.
var ErrInvalidTaskConfig = errors.New("poll task needs a positive interval and attempt cap")

// CheckFunc observes the watched resource once. It returns done=true when the
// resource is ready. An error counts as a not-ready observation.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// TaskConfig bounds a poll-until-ready loop.
type TaskConfig struct {
	Name        string
	Interval    time.Duration
	MaxAttempts int
	// Timeout caps each individual check; zero means no per-check cap.
	Timeout time.Duration
}

// TaskResult summarises a finished task.
type TaskResult struct {
	Outcome  Outcome
	Attempts int
	LastErr  error
}

// Task is a cancellable poll-until-ready loop: it waits Interval, calls the
// check, and repeats until the check reports done, MaxAttempts checks have
// reported not-ready, or the task is cancelled.
type Task struct {
	id     uuid.UUID
	name   string
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result TaskResult
}

// StartTask launches a task bound to parent.
func StartTask(parent context.Context, cfg TaskConfig, check CheckFunc) (*Task, error) {
	if cfg.Interval <= 0 || cfg.MaxAttempts <= 0 {
		return nil, ErrInvalidTaskConfig
	}
	ctx, cancel := context.WithCancel(parent)
	t := &Task{
		id:     uuid.New(),
		name:   cfg.Name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go t.run(ctx, cfg, check)
	return t, nil
}

func (t *Task) ID() uuid.UUID { return t.id }

func (t *Task) Name() string { return t.name }

// Cancel stops the task. It is safe to call more than once and after the task ended.
func (t *Task) Cancel() { t.cancel() }

// Done is closed when the task has ended.
func (t *Task) Done() <-chan struct{} { return t.done }

// Wait blocks until the task ends and returns its result.
func (t *Task) Wait() TaskResult {
	<-t.done
	return t.Result()
}

// Result returns the result so far; Outcome is empty while the task runs.
func (t *Task) Result() TaskResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

func (t *Task) finish(outcome Outcome, attempts int, lastErr error) {
	t.mu.Lock()
	t.result = TaskResult{Outcome: outcome, Attempts: attempts, LastErr: lastErr}
	t.mu.Unlock()
	t.cancel()
	close(t.done)
}

func (t *Task) run(ctx context.Context, cfg TaskConfig, check CheckFunc) {
	timer := time.NewTimer(cfg.Interval)
	defer timer.Stop()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			t.finish(OutcomeCancelled, attempt-1, lastErr)
			return
		case <-timer.C:
		}

		checkCtx, cancel := ctx, context.CancelFunc(func() {})
		if cfg.Timeout > 0 {
			checkCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		}
		done, err := check(checkCtx, attempt)
		cancel()

		if ctx.Err() != nil {
			t.finish(OutcomeCancelled, attempt, lastErr)
			return
		}
		if err != nil {
			lastErr = err
		} else if done {
			t.finish(OutcomeSucceeded, attempt, nil)
			return
		}
		timer.Reset(cfg.Interval)
	}
	t.finish(OutcomeTimedOut, cfg.MaxAttempts, lastErr)
}
