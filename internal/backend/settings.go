package backend

import (
	"context"
)

// GetSettings fetches the persisted settings and recent-path history.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	return doGetJSON[Settings](ctx, c, "settings")
}

// SaveSettings persists settings together with the full recent-path history.
func (c *Client) SaveSettings(ctx context.Context, req SaveSettingsRequest) (*SaveSettingsResponse, error) {
	return doPostJSON[SaveSettingsResponse](ctx, c, "settings", req)
}
