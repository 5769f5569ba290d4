// Package lifecycle drives the script lock state machine and the MP3
// poll-until-ready loops that follow a generate request.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/database"
	"github.com/livecommerce/console/internal/emotion"
	"github.com/livecommerce/console/internal/logging"
	"github.com/livecommerce/console/internal/pollers"
	"github.com/livecommerce/console/internal/sse"
	"github.com/livecommerce/console/internal/state"
)

var (
	ErrScriptLocked      = errors.New("script has an MP3 and cannot be edited; delete the MP3 first")
	ErrAlreadyHasMP3     = errors.New("script already has an MP3")
	ErrNothingToGenerate = errors.New("no selected script is missing an MP3")
	ErrPollTimeout       = errors.New("MP3 generation did not finish within the polling window")
	ErrWatchCancelled    = errors.New("MP3 watch was cancelled")
)

// checkConcurrency bounds the status fetches issued per poll tick.
const checkConcurrency = 8

const timeoutNotice = "MP3 generation is taking longer than expected. Please refresh manually to check status."

// State is the lifecycle state of a script as seen by the console.
type State string

const (
	StateDraft      State = "DRAFT"
	StateLocked     State = "LOCKED"
	StateGenerating State = "GENERATING"
)

// Backend is the subset of the backend client the controller drives.
type Backend interface {
	GetScript(ctx context.Context, id int64) (*backend.Script, error)
	UpdateScript(ctx context.Context, id int64, update backend.ScriptUpdate) (*backend.Script, error)
	GenerateMP3(ctx context.Context, req backend.MP3Request) (*backend.MP3Ack, error)
	DeleteScriptMP3(ctx context.Context, id int64) (*backend.DeleteMP3Result, error)
}

// ScriptReloader refetches the script list currently on screen.
type ScriptReloader interface {
	ReloadScripts(ctx context.Context) error
}

// Notifier pushes events to operator UIs.
type Notifier interface {
	Publish(event sse.Event)
	Alert(level sse.Level, message string)
}

// JobLedger records MP3 watches and their outcomes.
type JobLedger interface {
	StartJob(kind string, scriptIDs []int64, voicePersonaID int64, quality string) (*database.GenerationJob, error)
	UpdateProgress(id uuid.UUID, completed, attempts int) error
	FinishJob(id uuid.UUID, status string, completed, attempts int, lastErr error) error
}

// Config holds poll cadence and caps.
type Config struct {
	PollInterval        time.Duration
	PollMaxAttempts     int
	BulkPollInterval    time.Duration
	BulkPollMaxAttempts int
	ReconcileDelay      time.Duration
	// CheckTimeout caps a single status fetch; zero leaves it to the HTTP client.
	CheckTimeout time.Duration
}

// DefaultConfig returns the stock cadence: 1s x 30 for a single script,
// 2s x 60 for a bulk batch, 500ms before reconciling a deletion.
func DefaultConfig() Config {
	return Config{
		PollInterval:        time.Second,
		PollMaxAttempts:     30,
		BulkPollInterval:    2 * time.Second,
		BulkPollMaxAttempts: 60,
		ReconcileDelay:      500 * time.Millisecond,
	}
}

// Deps are the collaborators of a Controller. Notifier and Jobs may be nil.
type Deps struct {
	Backend    Backend
	State      *state.AppState
	Reloader   ScriptReloader
	Pollers    *pollers.Manager
	Vocabulary *emotion.Vocabulary
	Notifier   Notifier
	Jobs       JobLedger
}

// Controller owns script edits, MP3 generation and MP3 deletion.
type Controller struct {
	cfg      Config
	api      Backend
	state    *state.AppState
	reloader ScriptReloader
	pollers  *pollers.Manager
	vocab    *emotion.Vocabulary
	notify   Notifier
	jobs     JobLedger
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	watches   map[int64]*Watch     // single-script watches by script id
	bulk      map[uuid.UUID]*Watch // bulk watches by watch id
	selection *Selection
	wg        sync.WaitGroup
}

func New(cfg Config, deps Deps) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:       cfg,
		api:       deps.Backend,
		state:     deps.State,
		reloader:  deps.Reloader,
		pollers:   deps.Pollers,
		vocab:     deps.Vocabulary,
		notify:    deps.Notifier,
		jobs:      deps.Jobs,
		log:       logging.With(logging.ComponentLifecycle),
		ctx:       ctx,
		cancel:    cancel,
		watches:   make(map[int64]*Watch),
		bulk:      make(map[uuid.UUID]*Watch),
		selection: NewSelection(),
	}
	if c.vocab == nil {
		c.vocab = emotion.Default()
	}
	if c.notify == nil {
		c.notify = discard{}
	}
	if c.jobs == nil {
		c.jobs = noLedger{}
	}
	if c.pollers == nil {
		c.pollers = pollers.NewManager()
	}
	return c
}

// Close cancels every watch and pending reconcile and waits for them to wind down.
func (c *Controller) Close() {
	c.cancel()
	c.mu.Lock()
	for _, w := range c.watches {
		w.Cancel()
	}
	for _, w := range c.bulk {
		w.Cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// StateOf classifies a script.
func (c *Controller) StateOf(script backend.Script) State {
	switch {
	case script.Locked():
		return StateLocked
	case c.state.IsGenerating(script.ID):
		return StateGenerating
	default:
		return StateDraft
	}
}

// EditForm is what the operator edits. It is only produced for unlocked scripts.
type EditForm struct {
	ScriptID         int64             `json:"script_id"`
	ProductID        int64             `json:"product_id"`
	Title            string            `json:"title"`
	Content          string            `json:"content"`
	TargetEmotion    string            `json:"target_emotion,omitempty"`
	CallToAction     string            `json:"call_to_action,omitempty"`
	Segments         []emotion.Segment `json:"segments"`
	MarkupError      string            `json:"markup_error,omitempty"`
	WordCount        int               `json:"word_count"`
	DurationEstimate int               `json:"duration_estimate"`
	Emotions         []string          `json:"emotions"`
}

// RequestEdit returns an edit form for the script. A script the cache already
// knows to be locked is refused without a request; otherwise the script is
// fetched fresh and refused if that copy is locked.
func (c *Controller) RequestEdit(ctx context.Context, id int64) (*EditForm, error) {
	script, err := c.guardEditable(ctx, id)
	if err != nil {
		return nil, err
	}

	form := &EditForm{
		ScriptID:         script.ID,
		ProductID:        script.ProductID,
		Title:            script.Title,
		Content:          script.Content,
		TargetEmotion:    script.TargetEmotion,
		CallToAction:     script.CallToAction,
		Segments:         []emotion.Segment{},
		WordCount:        c.vocab.WordCount(script.Content),
		DurationEstimate: c.vocab.EstimateDuration(script.Content),
		Emotions:         c.vocab.Names(),
	}
	if segments, err := c.vocab.Parse(script.Content); err != nil {
		form.MarkupError = err.Error()
	} else {
		form.Segments = segments
	}
	return form, nil
}

// UpdateScript saves an edit after the same lock guard as RequestEdit.
func (c *Controller) UpdateScript(ctx context.Context, id int64, update backend.ScriptUpdate) (*backend.Script, error) {
	if update.Content != nil {
		if err := c.vocab.Validate(*update.Content); err != nil {
			return nil, fmt.Errorf("invalid emotion markup: %w", err)
		}
	}
	if update.TargetEmotion != nil && *update.TargetEmotion != "" && !c.vocab.Has(*update.TargetEmotion) {
		return nil, fmt.Errorf("%w: %q", emotion.ErrUnknownEmotion, *update.TargetEmotion)
	}
	if _, err := c.guardEditable(ctx, id); err != nil {
		return nil, err
	}

	updated, err := c.api.UpdateScript(ctx, id, update)
	if err != nil {
		return nil, err
	}
	c.state.PutScript(*updated)
	c.notify.Publish(sse.Event{Type: sse.EventScriptChanged, Data: scriptChange{ScriptID: id, State: c.StateOf(*updated)}})
	c.log.Info("Script updated", "script_id", id)
	return updated, nil
}

func (c *Controller) guardEditable(ctx context.Context, id int64) (*backend.Script, error) {
	if cached, ok := c.state.Script(id); ok && cached.Locked() {
		c.notify.Alert(sse.LevelWarning, ErrScriptLocked.Error())
		return nil, ErrScriptLocked
	}

	fresh, err := c.api.GetScript(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load script %d: %w", id, err)
	}
	c.state.PutScript(*fresh)
	if fresh.Locked() {
		c.notify.Alert(sse.LevelWarning, ErrScriptLocked.Error())
		return nil, ErrScriptLocked
	}
	return fresh, nil
}

// MP3Options are the synthesis parameters shared by single and bulk generation.
type MP3Options struct {
	VoicePersonaID int64
	Quality        string
	TTSProvider    string
	Emotion        string
	Intensity      *float64
}

func (o MP3Options) request(ids []int64) backend.MP3Request {
	return backend.MP3Request{
		ScriptIDs:      ids,
		VoicePersonaID: o.VoicePersonaID,
		Quality:        o.Quality,
		TTSProvider:    o.TTSProvider,
		Emotion:        o.Emotion,
		Intensity:      o.Intensity,
	}
}

// GenerateMP3 submits one script for synthesis and watches it until the
// backend reports has_mp3. A watch already running for the script is cancelled.
func (c *Controller) GenerateMP3(ctx context.Context, scriptID int64, opts MP3Options) (*Watch, error) {
	if cached, ok := c.state.Script(scriptID); ok && cached.HasMP3 {
		c.notify.Alert(sse.LevelWarning, fmt.Sprintf("Script %d already has an MP3", scriptID))
		return nil, ErrAlreadyHasMP3
	}

	ids := []int64{scriptID}
	ack, err := c.api.GenerateMP3(ctx, opts.request(ids))
	if err != nil {
		c.notify.Alert(sse.LevelError, "Failed to start MP3 generation: "+err.Error())
		return nil, err
	}
	c.log.Info("MP3 generation submitted", "script_id", scriptID, "status", ack.Status, "quality", opts.Quality)

	w := newWatch(database.JobKindSingle, ids)
	w.jobID = c.startJob(w, opts)

	c.mu.Lock()
	previous := c.watches[scriptID]
	c.watches[scriptID] = w
	c.mu.Unlock()
	if previous != nil {
		c.log.Debug("Replacing running watch", "script_id", scriptID, "watch_id", previous.ID())
		previous.Cancel()
	}

	c.state.MarkGenerating(scriptID)
	c.notify.Publish(sse.Event{Type: sse.EventScriptChanged, Data: scriptChange{ScriptID: scriptID, State: StateGenerating}})
	c.notify.Alert(sse.LevelInfo, "MP3 generation started")

	cfg := pollers.TaskConfig{
		Name:        fmt.Sprintf("mp3-watch-%d", scriptID),
		Interval:    c.cfg.PollInterval,
		MaxAttempts: c.cfg.PollMaxAttempts,
		Timeout:     c.cfg.CheckTimeout,
	}
	if err := c.launch(w, cfg, c.checkScripts(w)); err != nil {
		c.mu.Lock()
		if c.watches[scriptID] == w {
			delete(c.watches, scriptID)
		}
		c.mu.Unlock()
		c.state.ClearGenerating(scriptID)
		return nil, err
	}
	return w, nil
}

// Watching returns the running watch for a script, if any.
func (c *Controller) Watching(scriptID int64) (*Watch, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.watches[scriptID]
	return w, ok
}

// Watches returns every running watch, single and bulk.
func (c *Controller) Watches() []*Watch {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Watch, 0, len(c.watches)+len(c.bulk))
	for _, w := range c.watches {
		out = append(out, w)
	}
	for _, w := range c.bulk {
		out = append(out, w)
	}
	return out
}

// CancelWatch cancels the running watch with the given id.
func (c *Controller) CancelWatch(id uuid.UUID) bool {
	for _, w := range c.Watches() {
		if w.ID() == id {
			w.Cancel()
			return true
		}
	}
	return false
}

// DeleteMP3 removes a script's MP3, unlocks the cached copy immediately and
// reloads the script list after the reconcile delay.
func (c *Controller) DeleteMP3(ctx context.Context, scriptID int64) (*backend.DeleteMP3Result, error) {
	res, err := c.api.DeleteScriptMP3(ctx, scriptID)
	if err != nil {
		c.notify.Alert(sse.LevelError, "Failed to delete MP3: "+err.Error())
		return nil, err
	}
	if !res.Success {
		err := fmt.Errorf("backend refused to delete MP3 for script %d: %s", scriptID, res.Message)
		c.notify.Alert(sse.LevelError, err.Error())
		return res, err
	}

	c.state.SetScriptMP3(scriptID, false)
	c.notify.Publish(sse.Event{Type: sse.EventScriptChanged, Data: scriptChange{ScriptID: scriptID, State: StateDraft}})
	c.notify.Alert(sse.LevelSuccess, "MP3 deleted, script unlocked for editing")
	c.log.Info("MP3 deleted", "script_id", scriptID)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		timer := time.NewTimer(c.cfg.ReconcileDelay)
		defer timer.Stop()
		select {
		case <-c.ctx.Done():
			return
		case <-timer.C:
		}
		c.reload("delete-mp3")
	}()
	return res, nil
}

func (c *Controller) reload(reason string) {
	if c.reloader == nil {
		return
	}
	if err := c.reloader.ReloadScripts(c.ctx); err != nil {
		c.log.Warn("Script reload failed", "reason", reason, "error", err)
	}
}

func (c *Controller) startJob(w *Watch, opts MP3Options) uuid.UUID {
	job, err := c.jobs.StartJob(w.kind, w.scriptIDs, opts.VoicePersonaID, opts.Quality)
	if err != nil {
		c.log.Warn("Failed to record generation job", "error", err)
		return uuid.Nil
	}
	if job == nil {
		return uuid.Nil
	}
	return job.ID
}

// checkScripts polls every script of w not yet ready. Fetch errors leave the
// script pending and count the attempt as not ready.
func (c *Controller) checkScripts(w *Watch) pollers.CheckFunc {
	return func(ctx context.Context, attempt int) (bool, error) {
		pending := w.pending()
		errs := make([]error, len(pending))

		var g errgroup.Group
		g.SetLimit(checkConcurrency)
		for i, id := range pending {
			g.Go(func() error {
				script, err := c.api.GetScript(ctx, id)
				if err != nil {
					errs[i] = err
					return nil
				}
				if script.HasMP3 {
					c.state.PutScript(*script)
					w.markReady(id)
				}
				return nil
			})
		}
		_ = g.Wait()

		completed, total := w.Progress()
		if w.jobID != uuid.Nil {
			if err := c.jobs.UpdateProgress(w.jobID, completed, attempt); err != nil {
				c.log.Debug("Failed to update job progress", "error", err)
			}
		}
		c.notify.Publish(sse.Event{Type: sse.EventPollProgress, Data: w.progressEvent(attempt)})

		if err := errors.Join(errs...); err != nil {
			c.log.Debug("Status check failed", "watch_id", w.ID(), "attempt", attempt, "error", err)
			return completed == total, err
		}
		return completed == total, nil
	}
}

func (c *Controller) launch(w *Watch, cfg pollers.TaskConfig, check pollers.CheckFunc) error {
	task, err := c.pollers.StartTask(cfg, check)
	if err != nil {
		return err
	}
	w.attach(task, cfg.MaxAttempts)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		result := task.Wait()
		c.finish(w, result)
	}()
	return nil
}

func (c *Controller) finish(w *Watch, result pollers.TaskResult) {
	log := c.log.With("watch_id", w.ID(), "kind", w.kind)

	// Only the watch still registered for a script may clear its generating
	// mark; a replaced watch leaves it to its successor, and a single watch
	// leaves it to any bulk watch still covering the script.
	c.mu.Lock()
	var release []int64
	if w.kind == database.JobKindBulk {
		delete(c.bulk, w.ID())
		for _, id := range w.scriptIDs {
			if _, single := c.watches[id]; !single {
				release = append(release, id)
			}
		}
	} else if id := w.scriptIDs[0]; c.watches[id] == w {
		delete(c.watches, id)
		if !c.bulkCoversLocked(id) {
			release = append(release, id)
		}
	}
	c.mu.Unlock()
	c.state.ClearGenerating(release...)

	completed, total := w.Progress()
	if w.jobID != uuid.Nil {
		if err := c.jobs.FinishJob(w.jobID, string(result.Outcome), completed, result.Attempts, result.LastErr); err != nil {
			log.Warn("Failed to finish generation job", "error", err)
		}
	}

	switch result.Outcome {
	case pollers.OutcomeSucceeded:
		log.Info("MP3 generation completed", "attempts", result.Attempts, "scripts", total)
		c.reload("mp3-ready")
		if total == 1 {
			c.notify.Alert(sse.LevelSuccess, "MP3 generated successfully")
		} else {
			c.notify.Alert(sse.LevelSuccess, fmt.Sprintf("Generated %d MP3 files", total))
		}
	case pollers.OutcomeTimedOut:
		log.Warn("MP3 watch timed out", "attempts", result.Attempts, "completed", completed, "total", total, "last_error", result.LastErr)
		if total == 1 {
			c.notify.Alert(sse.LevelInfo, timeoutNotice)
		} else {
			c.notify.Alert(sse.LevelInfo, fmt.Sprintf("%d of %d MP3 files ready. %s", completed, total, timeoutNotice))
		}
	case pollers.OutcomeCancelled:
		log.Info("MP3 watch cancelled", "attempts", result.Attempts)
	}

	for _, id := range release {
		if script, ok := c.state.Script(id); ok {
			c.notify.Publish(sse.Event{Type: sse.EventScriptChanged, Data: scriptChange{ScriptID: id, State: c.StateOf(script)}})
		}
	}
	c.notify.Publish(sse.Event{Type: sse.EventJobFinished, Data: w.finishedEvent(result)})
	w.close(result)
}

// bulkCoversLocked reports whether a running bulk watch includes the script.
// The caller holds c.mu.
func (c *Controller) bulkCoversLocked(id int64) bool {
	for _, b := range c.bulk {
		if slices.Contains(b.scriptIDs, id) {
			return true
		}
	}
	return false
}

type scriptChange struct {
	ScriptID int64 `json:"script_id"`
	State    State `json:"state"`
}

type discard struct{}

func (discard) Publish(sse.Event) {}
func (discard) Alert(sse.Level, string) {}

type noLedger struct{}

func (noLedger) StartJob(string, []int64, int64, string) (*database.GenerationJob, error) {
	return nil, nil
}

func (noLedger) UpdateProgress(uuid.UUID, int, int) error { return nil }

func (noLedger) FinishJob(uuid.UUID, string, int, int, error) error { return nil }
