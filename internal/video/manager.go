// Package video manages generated marketing videos and playback on the
// display server.
package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/livecommerce/console/internal/backend"
	"github.com/livecommerce/console/internal/logging"
	"github.com/livecommerce/console/internal/pollers"
	"github.com/livecommerce/console/internal/sse"
)

var ErrInvalidFilename = errors.New("invalid video filename")

// Backend is the video and display-server part of the backend client.
type Backend interface {
	ListVideos(ctx context.Context) ([]backend.Video, error)
	GenerateVideo(ctx context.Context, req backend.VideoRequest) (*backend.VideoResult, error)
	PlayVideo(ctx context.Context, filename string) error
	DeleteVideo(ctx context.Context, filename string) error
	DisplayStatus(ctx context.Context) (*backend.DisplayStatus, error)
	StartDisplayServer(ctx context.Context) error
	StopDisplayServer(ctx context.Context) error
}

// Notifier pushes events to operator UIs.
type Notifier interface {
	Publish(event sse.Event)
	Alert(level sse.Level, message string)
}

type Config struct {
	StatusInterval time.Duration
	// StartGrace is how long Play waits after asking an offline display
	// server to start. Readiness is not verified.
	StartGrace time.Duration
}

// Manager owns the video cache and the display server health flag.
type Manager struct {
	cfg    Config
	api    Backend
	notify Notifier
	log    *slog.Logger
	poller *pollers.BasePoller

	mu        sync.RWMutex
	videos    []backend.Video
	videosAt  time.Time
	display   backend.DisplayStatus
	checkedAt time.Time
	statusErr string
}

func New(cfg Config, api Backend, notify Notifier) *Manager {
	m := &Manager{
		cfg:    cfg,
		api:    api,
		notify: notify,
		log:    logging.With(logging.ComponentVideo),
		videos: []backend.Video{},
	}
	if m.notify == nil {
		m.notify = discard{}
	}
	m.poller = pollers.NewBasePoller(pollers.DefaultConfig("display-status", cfg.StatusInterval), m.RefreshStatus)
	return m
}

// StatusPoller refreshes the display server health on its own interval.
func (m *Manager) StatusPoller() *pollers.BasePoller {
	return m.poller
}

// LoadVideos replaces the video cache.
func (m *Manager) LoadVideos(ctx context.Context) ([]backend.Video, error) {
	videos, err := m.api.ListVideos(ctx)
	if err != nil {
		return nil, fmt.Errorf("load videos: %w", err)
	}
	m.mu.Lock()
	m.videos = videos
	m.videosAt = time.Now()
	m.mu.Unlock()
	m.log.Debug("Videos loaded", "count", len(videos))
	return videos, nil
}

func (m *Manager) Videos() []backend.Video {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]backend.Video{}, m.videos...)
}

// Generate renders one video. The backend answers when the video is done,
// so there is nothing to poll; the list is reloaded afterwards.
func (m *Manager) Generate(ctx context.Context, req backend.VideoRequest) (*backend.VideoResult, error) {
	m.notify.Alert(sse.LevelInfo, "Generating video, this may take a moment")
	res, err := m.api.GenerateVideo(ctx, req)
	if err != nil {
		m.notify.Alert(sse.LevelError, "Video generation failed: "+err.Error())
		return res, err
	}
	m.log.Info("Video generated", "video_id", res.VideoID, "style", req.Style)
	m.notify.Alert(sse.LevelSuccess, "Video generated successfully")
	m.reloadVideos(ctx)
	return res, nil
}

// Play shows a video on the display server. When the server is known to be
// offline it is asked to start first, and playback follows after the fixed
// start grace period.
func (m *Manager) Play(ctx context.Context, filename string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}

	if !m.Online() {
		m.log.Info("Display server offline, starting it before playback", "filename", filename)
		m.notify.Alert(sse.LevelInfo, "Starting display server...")
		if err := m.api.StartDisplayServer(ctx); err != nil {
			m.notify.Alert(sse.LevelError, "Failed to start display server: "+err.Error())
			return fmt.Errorf("start display server: %w", err)
		}

		timer := time.NewTimer(m.cfg.StartGrace)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		m.poller.TriggerNow()
	}

	if err := m.api.PlayVideo(ctx, filename); err != nil {
		m.notify.Alert(sse.LevelError, "Failed to play video: "+err.Error())
		return fmt.Errorf("play video: %w", err)
	}
	m.log.Info("Video sent to display", "filename", filename)
	m.notify.Alert(sse.LevelSuccess, "Playing "+filename+" on the display")
	return nil
}

// Delete removes a video and reloads the list.
func (m *Manager) Delete(ctx context.Context, filename string) error {
	if err := checkFilename(filename); err != nil {
		return err
	}
	if err := m.api.DeleteVideo(ctx, filename); err != nil {
		m.notify.Alert(sse.LevelError, "Failed to delete video: "+err.Error())
		return fmt.Errorf("delete video: %w", err)
	}
	m.log.Info("Video deleted", "filename", filename)
	m.notify.Alert(sse.LevelSuccess, "Video deleted")
	m.reloadVideos(ctx)
	return nil
}

func (m *Manager) reloadVideos(ctx context.Context) {
	if _, err := m.LoadVideos(ctx); err != nil {
		m.log.Warn("Video list reload failed", "error", err)
		return
	}
	m.notify.Publish(sse.Event{Type: sse.EventVideosChanged, Data: map[string]int{"count": len(m.Videos())}})
}

// RefreshStatus fetches the display server status. A failed fetch marks the
// server offline.
func (m *Manager) RefreshStatus(ctx context.Context) error {
	status, err := m.api.DisplayStatus(ctx)

	m.mu.Lock()
	wasOnline := m.display.ServerRunning
	m.checkedAt = time.Now()
	if err != nil {
		m.display = backend.DisplayStatus{}
		m.statusErr = err.Error()
	} else {
		m.display = *status
		m.statusErr = ""
	}
	online := m.display.ServerRunning
	m.mu.Unlock()

	if online != wasOnline {
		logging.InfoWithComponent(logging.ComponentDisplay, "Display server status changed", "online", online)
		m.notify.Publish(sse.Event{Type: sse.EventDisplayStatus, Data: m.Status()})
	}
	if err != nil {
		return fmt.Errorf("display status: %w", err)
	}
	return nil
}

// StartServer and StopServer are explicit operator commands; both refresh
// the status afterwards.
func (m *Manager) StartServer(ctx context.Context) error {
	if err := m.api.StartDisplayServer(ctx); err != nil {
		m.notify.Alert(sse.LevelError, "Failed to start display server: "+err.Error())
		return err
	}
	m.notify.Alert(sse.LevelSuccess, "Display server started")
	m.refreshQuietly(ctx)
	return nil
}

func (m *Manager) StopServer(ctx context.Context) error {
	if err := m.api.StopDisplayServer(ctx); err != nil {
		m.notify.Alert(sse.LevelError, "Failed to stop display server: "+err.Error())
		return err
	}
	m.notify.Alert(sse.LevelSuccess, "Display server stopped")
	m.refreshQuietly(ctx)
	return nil
}

func (m *Manager) refreshQuietly(ctx context.Context) {
	if err := m.RefreshStatus(ctx); err != nil {
		m.log.Debug("Status refresh after command failed", "error", err)
	}
}

func (m *Manager) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.display.ServerRunning
}

// DisplayView is the display server health shown in the operator UI.
type DisplayView struct {
	Online            bool      `json:"online"`
	Port              int       `json:"port,omitempty"`
	ServerURL         string    `json:"server_url,omitempty"`
	ActiveConnections int       `json:"active_connections"`
	CheckedAt         time.Time `json:"checked_at"`
	Error             string    `json:"error,omitempty"`
}

func (m *Manager) Status() DisplayView {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return DisplayView{
		Online:            m.display.ServerRunning,
		Port:              m.display.Port,
		ServerURL:         m.display.ServerURL,
		ActiveConnections: m.display.ActiveConnections,
		CheckedAt:         m.checkedAt,
		Error:             m.statusErr,
	}
}

// VideoList is the video gallery view model.
type VideoList struct {
	Videos    []backend.Video `json:"videos"`
	Count     int             `json:"count"`
	UpdatedAt time.Time       `json:"updated_at"`
	Display   DisplayView     `json:"display"`
}

func (m *Manager) List() VideoList {
	videos := m.Videos()
	m.mu.RLock()
	updated := m.videosAt
	m.mu.RUnlock()
	return VideoList{
		Videos:    videos,
		Count:     len(videos),
		UpdatedAt: updated,
		Display:   m.Status(),
	}
}

func checkFilename(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

type discard struct{}

func (discard) Publish(sse.Event) {}

func (discard) Alert(sse.Level, string) {}
