package backend

import (
	"context"
)

// Predict runs a text-to-image search.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	return doPostJSON[PredictResponse](ctx, c, "predict", req)
}

// SelectFolder asks the service host to open a native folder picker. A
// cancelled or failed pick comes back in FolderSelection.Error, not as err.
func (c *Client) SelectFolder(ctx context.Context) (*FolderSelection, error) {
	return doGetJSON[FolderSelection](ctx, c, "select-folder")
}
