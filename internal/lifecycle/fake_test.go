package lifecycle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/database"
	"github.com/livecommerce/console/internal/pollers"
	"github.com/livecommerce/console/internal/sse"
	"github.com/livecommerce/console/internal/state"
)

// fakeBackend serves the script and MP3 endpoints from memory.
type fakeBackend struct {
	mu         sync.Mutex
	scripts    map[int64]*backend.Script
	readyAfter map[int64]int // GETs after which has_mp3 flips to true
	failFirst  map[int64]int // GETs answered with 500 before serving
	gets       map[int64]int
	puts       int
	deletes    int
	generates  []backend.MP3Request
}

func newFakeBackend(scripts ...backend.Script) *fakeBackend {
	f := &fakeBackend{
		scripts:    make(map[int64]*backend.Script),
		readyAfter: make(map[int64]int),
		failFirst:  make(map[int64]int),
		gets:       make(map[int64]int),
	}
	for i := range scripts {
		s := scripts[i]
		f.scripts[s.ID] = &s
	}
	return f
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path == "/api/v1/dashboard/mp3/generate" && r.Method == http.MethodPost {
		var req backend.MP3Request
		json.NewDecoder(r.Body).Decode(&req)
		f.generates = append(f.generates, req)
		json.NewEncoder(w).Encode(backend.MP3Ack{Message: "started", Status: "processing", Quality: req.Quality})
		return
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/api/v1/dashboard/scripts/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	script, exists := f.scripts[id]
	if err != nil || !exists {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"detail": "Script not found"})
		return
	}

	switch {
	case len(parts) == 2 && parts[1] == "mp3" && r.Method == http.MethodDelete:
		f.deletes++
		script.SetMP3(false)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "MP3 deleted", "script_unlocked": true})
	case len(parts) == 1 && r.Method == http.MethodGet:
		f.gets[id]++
		if f.gets[id] <= f.failFirst[id] {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"detail": "temporary failure"})
			return
		}
		if n, ok := f.readyAfter[id]; ok && f.gets[id] >= n {
			script.SetMP3(true)
		}
		json.NewEncoder(w).Encode(script)
	case len(parts) == 1 && r.Method == http.MethodPut:
		f.puts++
		var update backend.ScriptUpdate
		json.NewDecoder(r.Body).Decode(&update)
		if update.Title != nil {
			script.Title = *update.Title
		}
		if update.Content != nil {
			script.Content = *update.Content
		}
		json.NewEncoder(w).Encode(script)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeBackend) getCount(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets[id]
}

func (f *fakeBackend) requests() (gets, puts, deletes, generates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.gets {
		gets += n
	}
	return gets, f.puts, f.deletes, len(f.generates)
}

type countingReloader struct {
	mu    sync.Mutex
	calls int
	ch    chan struct{}
}

func newCountingReloader() *countingReloader {
	return &countingReloader{ch: make(chan struct{}, 16)}
}

func (r *countingReloader) ReloadScripts(ctx context.Context) error {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	r.ch <- struct{}{}
	return nil
}

func (r *countingReloader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []sse.Event
	alerts []sse.Alert
}

func (n *recordingNotifier) Publish(event sse.Event) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) Alert(level sse.Level, message string) {
	n.mu.Lock()
	n.alerts = append(n.alerts, sse.Alert{Level: level, Message: message})
	n.mu.Unlock()
}

func (n *recordingNotifier) progress() []ProgressEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []ProgressEvent
	for _, ev := range n.events {
		if p, ok := ev.Data.(ProgressEvent); ok {
			out = append(out, p)
		}
	}
	return out
}

func (n *recordingNotifier) hasAlert(level sse.Level, substr string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, a := range n.alerts {
		if a.Level == level && strings.Contains(a.Message, substr) {
			return true
		}
	}
	return false
}

type harness struct {
	ctrl     *Controller
	fake     *fakeBackend
	state    *state.AppState
	reloader *countingReloader
	notifier *recordingNotifier
	jobs     *database.JobService
}

func testConfig() Config {
	return Config{
		PollInterval:        5 * time.Millisecond,
		PollMaxAttempts:     30,
		BulkPollInterval:    5 * time.Millisecond,
		BulkPollMaxAttempts: 60,
		ReconcileDelay:      20 * time.Millisecond,
	}
}

func newHarness(t *testing.T, cfg Config, scripts ...backend.Script) *harness {
	t.Helper()

	fake := newFakeBackend(scripts...)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	db, err := database.Open(&database.DatabaseConfig{Type: "sqlite", DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	st := state.New()
	st.SetScripts(state.AllProducts, scripts)

	h := &harness{
		fake:     fake,
		state:    st,
		reloader: newCountingReloader(),
		notifier: &recordingNotifier{},
		jobs:     database.NewJobService(db),
	}
	manager := pollers.NewManager()
	h.ctrl = New(cfg, Deps{
		Backend:  backend.New(srv.URL, 5*time.Second),
		State:    st,
		Reloader: h.reloader,
		Pollers:  manager,
		Notifier: h.notifier,
		Jobs:     h.jobs,
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func waitWatch(t *testing.T, w *Watch) {
	t.Helper()
	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not finish")
	}
}

func draft(id, productID int64) backend.Script {
	s := backend.Script{ID: id, ProductID: productID, Title: "Script " + strconv.FormatInt(id, 10), Content: "{excited}Big sale today!{/excited} Grab yours now."}
	s.SetMP3(false)
	return s
}

func locked(id, productID int64) backend.Script {
	s := draft(id, productID)
	s.SetMP3(true)
	return s
}
