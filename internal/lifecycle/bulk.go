package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/database"
	"github.com/livecommerce/console/internal/pollers"
	"github.com/livecommerce/console/internal/sse"
)

// Selection is the operator's set of scripts picked for bulk generation.
// Ids keep their selection order and never repeat.
type Selection struct {
	mu  sync.Mutex
	ids []int64
}

func NewSelection() *Selection {
	return &Selection{}
}

// Toggle flips id and reports whether it is now selected.
func (s *Selection) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// SelectAll adds every id not already selected.
func (s *Selection) SelectAll(ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if !slices.Contains(s.ids, id) {
			s.ids = append(s.ids, id)
		}
	}
}

func (s *Selection) DeselectAll() {
	s.mu.Lock()
	s.ids = nil
	s.mu.Unlock()
}

func (s *Selection) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.ids, id)
}

func (s *Selection) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64{}, s.ids...)
}

func (s *Selection) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// Selection returns the bulk selection.
func (c *Controller) Selection() *Selection {
	return c.selection
}

// SelectAllEligible selects every cached script that has no MP3 yet and
// returns the resulting selection.
func (c *Controller) SelectAllEligible() []int64 {
	c.selection.SelectAll(eligible(c.state.Scripts()))
	return c.selection.IDs()
}

func eligible(scripts []backend.Script) []int64 {
	ids := make([]int64, 0, len(scripts))
	for _, s := range scripts {
		if !s.Locked() {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// GenerateBulk submits one batched generate request for the given scripts,
// or for the current selection when ids is empty, and polls every script each
// tick until all have an MP3 or the bulk attempt cap is reached. Scripts the
// cache knows to have an MP3 already are skipped.
func (c *Controller) GenerateBulk(ctx context.Context, ids []int64, opts MP3Options) (*Watch, error) {
	if len(ids) == 0 {
		ids = c.selection.IDs()
	}

	targets := make([]int64, 0, len(ids))
	for _, id := range ids {
		if slices.Contains(targets, id) {
			continue
		}
		if cached, ok := c.state.Script(id); ok && cached.Locked() {
			continue
		}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		c.notify.Alert(sse.LevelWarning, "Select at least one script without an MP3")
		return nil, ErrNothingToGenerate
	}

	ack, err := c.api.GenerateMP3(ctx, opts.request(targets))
	if err != nil {
		c.notify.Alert(sse.LevelError, "Failed to start bulk MP3 generation: "+err.Error())
		return nil, err
	}
	c.log.Info("Bulk MP3 generation submitted", "scripts", len(targets), "status", ack.Status, "quality", opts.Quality)

	w := newWatch(database.JobKindBulk, targets)
	w.jobID = c.startJob(w, opts)

	c.selection.DeselectAll()
	c.state.MarkGenerating(targets...)
	c.notify.Alert(sse.LevelInfo, fmt.Sprintf("Started MP3 generation for %d scripts", len(targets)))

	cfg := pollers.TaskConfig{
		Name:        fmt.Sprintf("mp3-bulk-watch-%d", len(targets)),
		Interval:    c.cfg.BulkPollInterval,
		MaxAttempts: c.cfg.BulkPollMaxAttempts,
		Timeout:     c.cfg.CheckTimeout,
	}

	c.mu.Lock()
	if err := c.launch(w, cfg, c.checkScripts(w)); err != nil {
		c.mu.Unlock()
		c.state.ClearGenerating(targets...)
		return nil, err
	}
	c.bulk[w.ID()] = w
	c.mu.Unlock()
	return w, nil
}
