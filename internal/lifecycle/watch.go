package lifecycle

import (
	"sync"

	"github.com/google/uuid"

	"github.com/livecommerce/console/internal/pollers"
)

// Watch is the handle of a running MP3 poll. Done is closed once the poll
// has ended and its follow-up (reload, alerts, ledger) has been applied.
type Watch struct {
	kind      string
	scriptIDs []int64
	jobID     uuid.UUID

	mu          sync.Mutex
	task        *pollers.Task
	maxAttempts int
	ready       map[int64]bool
	result      pollers.TaskResult
	done        chan struct{}
}

func newWatch(kind string, ids []int64) *Watch {
	return &Watch{
		kind:      kind,
		scriptIDs: ids,
		ready:     make(map[int64]bool, len(ids)),
		done:      make(chan struct{}),
	}
}

func (w *Watch) attach(task *pollers.Task, maxAttempts int) {
	w.mu.Lock()
	w.task = task
	w.maxAttempts = maxAttempts
	w.mu.Unlock()
}

// ID identifies the watch; it is the id of the underlying poll task.
func (w *Watch) ID() uuid.UUID {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.task == nil {
		return uuid.Nil
	}
	return w.task.ID()
}

func (w *Watch) Kind() string { return w.kind }

// JobID is the ledger entry of the watch; uuid.Nil when none was recorded.
func (w *Watch) JobID() uuid.UUID { return w.jobID }

func (w *Watch) ScriptIDs() []int64 {
	return append([]int64(nil), w.scriptIDs...)
}

// Cancel stops polling. The backend may still finish the MP3 later.
func (w *Watch) Cancel() {
	w.mu.Lock()
	task := w.task
	w.mu.Unlock()
	if task != nil {
		task.Cancel()
	}
}

func (w *Watch) Done() <-chan struct{} { return w.done }

// Progress returns how many scripts are ready out of the total. The completed
// count never decreases.
func (w *Watch) Progress() (completed, total int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.ready), len(w.scriptIDs)
}

// Result is valid once Done is closed.
func (w *Watch) Result() pollers.TaskResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Err maps the outcome to an error: nil on success, ErrPollTimeout or
// ErrWatchCancelled otherwise.
func (w *Watch) Err() error {
	switch w.Result().Outcome {
	case pollers.OutcomeSucceeded:
		return nil
	case pollers.OutcomeTimedOut:
		return ErrPollTimeout
	case pollers.OutcomeCancelled:
		return ErrWatchCancelled
	}
	return nil
}

func (w *Watch) pending() []int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]int64, 0, len(w.scriptIDs)-len(w.ready))
	for _, id := range w.scriptIDs {
		if !w.ready[id] {
			out = append(out, id)
		}
	}
	return out
}

func (w *Watch) markReady(id int64) {
	w.mu.Lock()
	w.ready[id] = true
	w.mu.Unlock()
}

func (w *Watch) close(result pollers.TaskResult) {
	w.mu.Lock()
	w.result = result
	w.mu.Unlock()
	close(w.done)
}

// ProgressEvent is published after every poll attempt.
type ProgressEvent struct {
	WatchID     uuid.UUID `json:"watch_id"`
	JobID       uuid.UUID `json:"job_id"`
	Kind        string    `json:"kind"`
	ScriptIDs   []int64   `json:"script_ids"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	Completed   int       `json:"completed"`
	Total       int       `json:"total"`
}

func (w *Watch) progressEvent(attempt int) ProgressEvent {
	completed, total := w.Progress()
	w.mu.Lock()
	maxAttempts := w.maxAttempts
	w.mu.Unlock()
	return ProgressEvent{
		WatchID:     w.ID(),
		JobID:       w.jobID,
		Kind:        w.kind,
		ScriptIDs:   w.ScriptIDs(),
		Attempt:     attempt,
		MaxAttempts: maxAttempts,
		Completed:   completed,
		Total:       total,
	}
}

// FinishedEvent is published once a watch has ended.
type FinishedEvent struct {
	WatchID   uuid.UUID       `json:"watch_id"`
	JobID     uuid.UUID       `json:"job_id"`
	Kind      string          `json:"kind"`
	Outcome   pollers.Outcome `json:"outcome"`
	Attempts  int             `json:"attempts"`
	Completed int             `json:"completed"`
	Total     int             `json:"total"`
}

func (w *Watch) finishedEvent(result pollers.TaskResult) FinishedEvent {
	completed, total := w.Progress()
	return FinishedEvent{
		WatchID:   w.ID(),
		JobID:     w.jobID,
		Kind:      w.kind,
		Outcome:   result.Outcome,
		Attempts:  result.Attempts,
		Completed: completed,
		Total:     total,
	}
}

// WatchView is the JSON form of a watch.
type WatchView struct {
	ID          uuid.UUID       `json:"id"`
	JobID       uuid.UUID       `json:"job_id"`
	Kind        string          `json:"kind"`
	ScriptIDs   []int64         `json:"script_ids"`
	Completed   int             `json:"completed"`
	Total       int             `json:"total"`
	MaxAttempts int             `json:"max_attempts"`
	Outcome     pollers.Outcome `json:"outcome,omitempty"`
}

func (w *Watch) View() WatchView {
	completed, total := w.Progress()
	w.mu.Lock()
	maxAttempts, outcome := w.maxAttempts, w.result.Outcome
	w.mu.Unlock()
	return WatchView{
		ID:          w.ID(),
		JobID:       w.jobID,
		Kind:        w.kind,
		ScriptIDs:   w.ScriptIDs(),
		Completed:   completed,
		Total:       total,
		MaxAttempts: maxAttempts,
		Outcome:     outcome,
	}
}
