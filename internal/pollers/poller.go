package pollers

import (
	"context"
	"time"
)

// Poller is a long-running background refresh: display server health,
// dashboard stats, ledger housekeeping.
type Poller interface {
	Name() string
	Start(ctx context.Context) error
	// Stop cancels the loop and waits for an in-flight poll to return.
	Stop() error
	IsRunning() bool
	// TriggerNow asks for a poll ahead of schedule.
	TriggerNow()
}

type PollerConfig struct {
	Name     string
	Interval time.Duration
	Enabled  bool
	// MaxRetries is the number of attempts per tick, at least 1.
	MaxRetries int
	RetryDelay time.Duration
	// Timeout bounds one attempt; zero means no bound beyond the loop context.
	Timeout time.Duration
}

// DefaultConfig is for status pollers hitting the backend: one attempt per
// tick, since the next tick is the retry.
func DefaultConfig(name string, interval time.Duration) PollerConfig {
	return PollerConfig{
		Name:       name,
		Interval:   interval,
		Enabled:    true,
		MaxRetries: 1,
		RetryDelay: time.Second,
		Timeout:    10 * time.Second,
	}
}

// HousekeepingConfig is for infrequent local maintenance where a failed tick
// would otherwise wait hours for the next one.
func HousekeepingConfig(name string, interval time.Duration) PollerConfig {
	return PollerConfig{
		Name:       name,
		Interval:   interval,
		Enabled:    true,
		MaxRetries: 3,
		RetryDelay: 30 * time.Second,
		Timeout:    time.Minute,
	}
}
