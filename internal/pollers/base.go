package pollers

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/livecommerce/console/internal/logging"
)

// BasePoller runs pollFunc immediately and then every Interval until stopped.
type BasePoller struct {
	config   PollerConfig
	running  bool
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	trigger  chan struct{}
	pollFunc func(ctx context.Context) error
	log      *slog.Logger
}

// NewBasePoller creates a new base poller instance
func NewBasePoller(config PollerConfig, pollFunc func(ctx context.Context) error) *BasePoller {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &BasePoller{
		config:   config,
		pollFunc: pollFunc,
		trigger:  make(chan struct{}, 1),
		log:      logging.With(logging.ComponentPoller).With("poller", config.Name),
	}
}

// Name returns the name of the poller
func (p *BasePoller) Name() string {
	return p.config.Name
}

// Start begins the polling loop
func (p *BasePoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}

	if !p.config.Enabled {
		p.log.Info("Poller disabled, skipping start")
		return nil
	}

	p.log.Info("Starting poller", "interval", p.config.Interval)

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.running = true

	p.wg.Add(1)
	go p.pollLoop()

	return nil
}

// Stop cancels the loop and waits for an in-flight poll to return
func (p *BasePoller) Stop() error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.cancel()
	p.running = false
	p.mu.Unlock()

	p.wg.Wait()
	p.log.Info("Poller stopped")
	return nil
}

// IsRunning returns true if the poller is currently running
func (p *BasePoller) IsRunning() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.running
}

// TriggerNow requests an out-of-schedule poll. Requests made while one is
// already pending are coalesced.
func (p *BasePoller) TriggerNow() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

func (p *BasePoller) pollLoop() {
	defer p.wg.Done()

	p.executeWithRetry()

	timer := time.NewTimer(p.config.Interval)
	defer timer.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}
		p.executeWithRetry()
		timer.Reset(p.config.Interval)
	}
}

func (p *BasePoller) executeWithRetry() {
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if p.ctx.Err() != nil {
			return
		}

		ctx, cancel := p.ctx, context.CancelFunc(func() {})
		if p.config.Timeout > 0 {
			ctx, cancel = context.WithTimeout(p.ctx, p.config.Timeout)
		}
		err := p.pollFunc(ctx)
		cancel()

		if err == nil {
			return
		}

		p.log.Warn("Poll attempt failed", "attempt", attempt+1, "max_attempts", p.config.MaxRetries, "error", err)

		if attempt < p.config.MaxRetries-1 {
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(p.config.RetryDelay):
			}
		}
	}

	if p.config.MaxRetries > 1 {
		p.log.Error("Poll failed after all attempts", "attempts", p.config.MaxRetries)
	}
}
