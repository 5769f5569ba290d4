// Package sse fans console events (alerts, poll progress, job outcomes,
// display status) out to connected operator UIs.
package sse

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/livecommerce/console/internal/logging"
)

// Event types pushed to the operator UI.
const (
	EventConnected     = "connected"
	EventPing          = "ping"
	EventAlert         = "alert"
	EventPollProgress  = "poll_progress"
	EventJobFinished   = "job_finished"
	EventScriptChanged = "script_changed"
	EventDisplayStatus = "display_status"
	EventVideosChanged = "videos_changed"
)

// Event represents a server-sent event
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Client is one connected operator UI. Events are delivered through a
// buffered channel; a client that falls behind drops events rather than
// blocking publishers.
type Client struct {
	ID     string
	Events chan Event
	done   chan struct{}
}

// Done is closed when the client has been removed.
func (c *Client) Done() <-chan struct{} { return c.done }

// Service manages SSE clients and broadcasts
type Service struct {
	mu         sync.RWMutex
	clients    map[string]*Client
	bufferSize int
}

// NewService creates a new SSE service
func NewService() *Service {
	return &Service{
		clients:    make(map[string]*Client),
		bufferSize: 64,
	}
}

// AddClient registers a client and queues the connected event.
func (s *Service) AddClient() *Client {
	client := &Client{
		ID:     uuid.NewString(),
		Events: make(chan Event, s.bufferSize),
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	s.clients[client.ID] = client
	s.mu.Unlock()

	logging.InfoWithComponent(logging.ComponentSSE, "Client connected", "client_id", client.ID)

	client.Events <- Event{
		Type: EventConnected,
		Data: map[string]interface{}{
			"client_id": client.ID,
			"timestamp": time.Now().UTC(),
		},
	}
	return client
}

// RemoveClient removes a client connection
func (s *Service) RemoveClient(clientID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, exists := s.clients[clientID]; exists {
		close(client.done)
		delete(s.clients, clientID)
		logging.InfoWithComponent(logging.ComponentSSE, "Client disconnected", "client_id", clientID)
	}
}

// CloseAll disconnects every client so open streams return.
func (s *Service) CloseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, client := range s.clients {
		close(client.done)
		delete(s.clients, id)
	}
}

// Publish sends an event to every connected client
func (s *Service) Publish(event Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, client := range s.clients {
		select {
		case client.Events <- event:
		default:
			logging.WarnWithComponent(logging.ComponentSSE, "Client buffer full, dropping event", "client_id", client.ID, "type", event.Type)
		}
	}
}

// KeepAlive sends periodic pings to keep proxies from closing idle streams
func (s *Service) KeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Publish(Event{
				Type: EventPing,
				Data: map[string]interface{}{"timestamp": time.Now().UTC()},
			})
		}
	}
}

// GetClientCount returns the number of connected clients
func (s *Service) GetClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
