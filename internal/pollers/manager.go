package pollers

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/livecommerce/console/internal/logging"
)

// Manager owns the long-running pollers and every bounded task started
// through it, so shutdown can stop all of them.
type Manager struct {
	pollers map[string]Poller
	tasks   map[uuid.UUID]*Task
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
}

// NewManager creates a new poller manager
func NewManager() *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		pollers: make(map[string]Poller),
		tasks:   make(map[uuid.UUID]*Task),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a poller to the manager. Pollers registered after Start are started immediately.
func (m *Manager) Register(poller Poller) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pollers[poller.Name()] = poller
	logging.InfoWithComponent(logging.ComponentPoller, "Registered poller", "poller", poller.Name())
	if m.running {
		if err := poller.Start(m.ctx); err != nil {
			logging.ErrorWithComponent(logging.ComponentPoller, "Failed to start poller", "poller", poller.Name(), "error", err)
		}
	}
}

// Start starts all registered pollers under ctx
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	m.cancel()
	m.ctx, m.cancel = context.WithCancel(ctx)
	m.running = true

	logging.InfoWithComponent(logging.ComponentPoller, "Starting pollers", "count", len(m.pollers))

	for name, poller := range m.pollers {
		if err := poller.Start(m.ctx); err != nil {
			logging.ErrorWithComponent(logging.ComponentPoller, "Failed to start poller", "poller", name, "error", err)
		}
	}

	return nil
}

// StartTask launches a bounded task that is cancelled when the manager stops.
func (m *Manager) StartTask(cfg TaskConfig, check CheckFunc) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := StartTask(m.ctx, cfg, check)
	if err != nil {
		return nil, err
	}
	m.tasks[task.ID()] = task

	go func() {
		<-task.Done()
		m.mu.Lock()
		delete(m.tasks, task.ID())
		m.mu.Unlock()
	}()
	return task, nil
}

// ActiveTasks returns the number of bounded tasks still running.
func (m *Manager) ActiveTasks() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

// Stop stops all pollers and cancels all tasks
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logging.InfoWithComponent(logging.ComponentPoller, "Stopping pollers", "pollers", len(m.pollers), "tasks", len(m.tasks))

	var wg sync.WaitGroup
	for name, poller := range m.pollers {
		if poller.IsRunning() {
			wg.Add(1)
			go func(name string, p Poller) {
				defer wg.Done()
				if err := p.Stop(); err != nil {
					logging.ErrorWithComponent(logging.ComponentPoller, "Error stopping poller", "poller", name, "error", err)
				}
			}(name, poller)
		}
	}
	wg.Wait()

	m.cancel()
	m.running = false
	return nil
}

// Trigger asks the named poller for an immediate poll. It reports false when
// no such poller is registered or it is not running.
func (m *Manager) Trigger(name string) bool {
	poller, ok := m.GetPoller(name)
	if !ok || !poller.IsRunning() {
		return false
	}
	poller.TriggerNow()
	return true
}

// GetPoller returns a poller by name
func (m *Manager) GetPoller(name string) (Poller, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	poller, exists := m.pollers[name]
	return poller, exists
}

// ListPollers returns all registered poller names, sorted
func (m *Manager) ListPollers() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.pollers))
	for name := range m.pollers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRunning returns true if the manager is running
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}
