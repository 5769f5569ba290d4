package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/database"
	"github.com/livecommerce/console/internal/emotion"
	"github.com/livecommerce/console/internal/pollers"
	"github.com/livecommerce/console/internal/sse"
)

func strPtr(s string) *string { return &s }

func TestRequestEdit(t *testing.T) {
	ctx := context.Background()

	t.Run("cached lock refuses without a request", func(t *testing.T) {
		h := newHarness(t, testConfig(), locked(1, 10))
		if _, err := h.ctrl.RequestEdit(ctx, 1); !errors.Is(err, ErrScriptLocked) {
			t.Fatalf("expected ErrScriptLocked, got %v", err)
		}
		if gets, _, _, _ := h.fake.requests(); gets != 0 {
			t.Errorf("expected no backend request, got %d", gets)
		}
		if !h.notifier.hasAlert(sse.LevelWarning, "delete the MP3") {
			t.Error("expected a locked-script alert")
		}
	})

	t.Run("fresh copy decides when cache is stale", func(t *testing.T) {
		h := newHarness(t, testConfig(), draft(1, 10))
		h.fake.scripts[1].SetMP3(true)

		if _, err := h.ctrl.RequestEdit(ctx, 1); !errors.Is(err, ErrScriptLocked) {
			t.Fatalf("expected ErrScriptLocked, got %v", err)
		}
		cached, _ := h.state.Script(1)
		if !cached.Locked() {
			t.Error("cache should be refreshed with the locked copy")
		}
	})

	t.Run("editable script yields a form", func(t *testing.T) {
		h := newHarness(t, testConfig(), draft(1, 10))

		form, err := h.ctrl.RequestEdit(ctx, 1)
		if err != nil {
			t.Fatalf("RequestEdit failed: %v", err)
		}
		if form.ScriptID != 1 || form.MarkupError != "" {
			t.Fatalf("form = %+v", form)
		}
		if len(form.Segments) != 2 || form.Segments[0].Emotion != "excited" {
			t.Errorf("segments = %+v", form.Segments)
		}
		if form.DurationEstimate != 30 || len(form.Emotions) != 10 {
			t.Errorf("duration = %d, emotions = %v", form.DurationEstimate, form.Emotions)
		}
	})

	t.Run("unknown script surfaces not found", func(t *testing.T) {
		h := newHarness(t, testConfig())
		if _, err := h.ctrl.RequestEdit(ctx, 99); !errors.Is(err, backend.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUpdateScript(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid markup is rejected before any request", func(t *testing.T) {
		h := newHarness(t, testConfig(), draft(1, 10))
		_, err := h.ctrl.UpdateScript(ctx, 1, backend.ScriptUpdate{Content: strPtr("{excited}never closed")})
		if !errors.Is(err, emotion.ErrUnbalancedTag) {
			t.Fatalf("expected ErrUnbalancedTag, got %v", err)
		}
		if gets, puts, _, _ := h.fake.requests(); gets+puts != 0 {
			t.Errorf("expected no requests, got %d gets %d puts", gets, puts)
		}
	})

	t.Run("locked script is never written", func(t *testing.T) {
		h := newHarness(t, testConfig(), draft(1, 10))
		h.fake.scripts[1].SetMP3(true)

		_, err := h.ctrl.UpdateScript(ctx, 1, backend.ScriptUpdate{Title: strPtr("New title")})
		if !errors.Is(err, ErrScriptLocked) {
			t.Fatalf("expected ErrScriptLocked, got %v", err)
		}
		if _, puts, _, _ := h.fake.requests(); puts != 0 {
			t.Errorf("PUT sent for locked script")
		}
	})

	t.Run("draft is updated and cached", func(t *testing.T) {
		h := newHarness(t, testConfig(), draft(1, 10))

		updated, err := h.ctrl.UpdateScript(ctx, 1, backend.ScriptUpdate{
			Title:   strPtr("New title"),
			Content: strPtr("{calm}Relax and enjoy.{/calm}"),
		})
		if err != nil {
			t.Fatalf("UpdateScript failed: %v", err)
		}
		if updated.Title != "New title" {
			t.Errorf("title = %q", updated.Title)
		}
		if cached, _ := h.state.Script(1); cached.Title != "New title" {
			t.Errorf("cache title = %q", cached.Title)
		}
	})
}

func TestGenerateMP3PollsUntilReady(t *testing.T) {
	h := newHarness(t, testConfig(), draft(42, 10))
	h.fake.readyAfter[42] = 3

	w, err := h.ctrl.GenerateMP3(context.Background(), 42, MP3Options{VoicePersonaID: 7, Quality: "medium"})
	if err != nil {
		t.Fatalf("GenerateMP3 failed: %v", err)
	}
	if !h.state.IsGenerating(42) {
		t.Error("script should be marked generating while the watch runs")
	}
	waitWatch(t, w)

	if err := w.Err(); err != nil {
		t.Fatalf("watch error: %v", err)
	}
	if got := w.Result().Attempts; got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}

	h.fake.mu.Lock()
	req := h.fake.generates[0]
	h.fake.mu.Unlock()
	if len(req.ScriptIDs) != 1 || req.ScriptIDs[0] != 42 || req.VoicePersonaID != 7 || req.Quality != "medium" {
		t.Errorf("generate request = %+v", req)
	}
	if n := h.fake.getCount(42); n != 3 {
		t.Errorf("GET /scripts/42 called %d times, want 3", n)
	}
	if n := h.reloader.count(); n != 1 {
		t.Errorf("script list reloaded %d times, want 1", n)
	}

	cached, _ := h.state.Script(42)
	if !cached.Locked() || h.state.IsGenerating(42) {
		t.Errorf("script should be locked and idle, got %+v generating=%v", cached, h.state.IsGenerating(42))
	}
	if h.ctrl.StateOf(cached) != StateLocked {
		t.Errorf("state = %s", h.ctrl.StateOf(cached))
	}

	job, err := h.jobs.GetJob(w.JobID())
	if err != nil {
		t.Fatalf("ledger lookup failed: %v", err)
	}
	if job.Status != database.JobStatusSucceeded || job.Completed != 1 || job.Kind != database.JobKindSingle {
		t.Errorf("job = %+v", job)
	}
}

func TestGenerateMP3TimesOut(t *testing.T) {
	cfg := testConfig()
	cfg.PollMaxAttempts = 5
	h := newHarness(t, cfg, draft(1, 10))

	w, err := h.ctrl.GenerateMP3(context.Background(), 1, MP3Options{VoicePersonaID: 7, Quality: "high"})
	if err != nil {
		t.Fatalf("GenerateMP3 failed: %v", err)
	}
	waitWatch(t, w)

	if !errors.Is(w.Err(), ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", w.Err())
	}
	if n := h.fake.getCount(1); n != 5 {
		t.Errorf("polled %d times, want 5", n)
	}
	if h.reloader.count() != 0 {
		t.Error("timeout must not reload the script list")
	}
	if !h.notifier.hasAlert(sse.LevelInfo, "refresh manually") {
		t.Error("expected a manual refresh notice")
	}
	if h.state.IsGenerating(1) {
		t.Error("generating mark should be cleared after timeout")
	}
	job, _ := h.jobs.GetJob(w.JobID())
	if job == nil || job.Status != database.JobStatusTimedOut {
		t.Errorf("job = %+v", job)
	}
}

func TestGenerateMP3CountsFetchErrorsAsAttempts(t *testing.T) {
	h := newHarness(t, testConfig(), draft(1, 10))
	h.fake.failFirst[1] = 2
	h.fake.readyAfter[1] = 3

	w, err := h.ctrl.GenerateMP3(context.Background(), 1, MP3Options{VoicePersonaID: 7, Quality: "low"})
	if err != nil {
		t.Fatalf("GenerateMP3 failed: %v", err)
	}
	waitWatch(t, w)

	res := w.Result()
	if res.Outcome != pollers.OutcomeSucceeded || res.Attempts != 3 {
		t.Errorf("result = %+v", res)
	}
}

func TestGenerateMP3RefusesCachedMP3(t *testing.T) {
	h := newHarness(t, testConfig(), locked(1, 10))

	if _, err := h.ctrl.GenerateMP3(context.Background(), 1, MP3Options{VoicePersonaID: 7, Quality: "medium"}); !errors.Is(err, ErrAlreadyHasMP3) {
		t.Fatalf("expected ErrAlreadyHasMP3, got %v", err)
	}
	if _, _, _, generates := h.fake.requests(); generates != 0 {
		t.Error("no generate request should be sent")
	}
}

func TestNewWatchReplacesPrevious(t *testing.T) {
	cfg := testConfig()
	cfg.PollMaxAttempts = 1000
	h := newHarness(t, cfg, draft(1, 10))
	ctx := context.Background()
	opts := MP3Options{VoicePersonaID: 7, Quality: "medium"}

	first, err := h.ctrl.GenerateMP3(ctx, 1, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.ctrl.GenerateMP3(ctx, 1, opts)
	if err != nil {
		t.Fatal(err)
	}
	waitWatch(t, first)

	if !errors.Is(first.Err(), ErrWatchCancelled) {
		t.Errorf("first watch: expected ErrWatchCancelled, got %v", first.Err())
	}
	if current, ok := h.ctrl.Watching(1); !ok || current != second {
		t.Error("second watch should be registered")
	}
	if !h.state.IsGenerating(1) {
		t.Error("replaced watch must not clear the generating mark")
	}

	second.Cancel()
	waitWatch(t, second)
	if h.state.IsGenerating(1) {
		t.Error("generating mark should clear when the last watch ends")
	}
}

func TestDeleteMP3IsOptimisticThenReconciles(t *testing.T) {
	h := newHarness(t, testConfig(), locked(1, 10))
	h.fake.scripts[1].SetMP3(true)

	res, err := h.ctrl.DeleteMP3(context.Background(), 1)
	if err != nil {
		t.Fatalf("DeleteMP3 failed: %v", err)
	}
	if !res.Success {
		t.Errorf("result = %+v", res)
	}

	cached, _ := h.state.Script(1)
	if cached.Locked() || cached.CanEdit == nil || !*cached.CanEdit {
		t.Errorf("cache should be unlocked immediately, got %+v", cached)
	}
	if h.reloader.count() != 0 {
		t.Error("reload should wait for the reconcile delay")
	}

	select {
	case <-h.reloader.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("script list was not reloaded after the reconcile delay")
	}
	if h.ctrl.StateOf(cached) != StateDraft {
		t.Errorf("state = %s", h.ctrl.StateOf(cached))
	}
}

func TestCloseCancelsWatches(t *testing.T) {
	cfg := testConfig()
	cfg.PollMaxAttempts = 1000
	h := newHarness(t, cfg, draft(1, 10))

	w, err := h.ctrl.GenerateMP3(context.Background(), 1, MP3Options{VoicePersonaID: 7, Quality: "medium"})
	if err != nil {
		t.Fatal(err)
	}
	h.ctrl.Close()

	select {
	case <-w.Done():
	default:
		t.Fatal("Close should wait for watches to finish")
	}
	if !errors.Is(w.Err(), ErrWatchCancelled) {
		t.Errorf("expected ErrWatchCancelled, got %v", w.Err())
	}
}
