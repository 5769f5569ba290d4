package backend

import (
	"context"
	"net/http"
)

// Stats returns the dashboard counters.
func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	if err := c.do(ctx, http.MethodGet, dashboardPrefix+"/stats", nil, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
