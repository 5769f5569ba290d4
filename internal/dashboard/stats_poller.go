package dashboard

import (
	"context"
	"time"

	"github.com/livecommerce/console/internal/pollers"
)

// NewStatsPoller keeps the stats cache warm between operator actions.
func NewStatsPoller(loader *Loader, interval time.Duration) *pollers.BasePoller {
	return pollers.NewBasePoller(pollers.DefaultConfig("dashboard-stats", interval), func(ctx context.Context) error {
		_, err := loader.LoadStats(ctx)
		return err
	})
}
