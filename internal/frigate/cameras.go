package frigate

import (
	"context"
	"fmt"
	"sort"

	"frigatebot/pkg/logx"
)

// Cameras returns the sorted camera names from the API's configuration
// endpoint. Only the camera-name set is consumed; the rest of the (large)
// config document is ignored. Returns an empty slice on any failure.
func (c *Client) Cameras(ctx context.Context) []string {
	var cfg struct {
		Cameras map[string]struct{} `json:"cameras"`
	}
	resp, err := c.http.R().SetContext(ctx).SetResult(&cfg).Get("/api/config")
	if err != nil {
		c.log.Error("camera list fetch failed", logx.Err(fmt.Errorf("%w: %v", ErrUnavailable, err)))
		return nil
	}
	if resp.IsError() {
		c.log.Error("camera list fetch failed", logx.Int("status", resp.StatusCode()))
		return nil
	}

	names := make([]string, 0, len(cfg.Cameras))
	for name := range cfg.Cameras {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
