package backend

import (
	"context"
	"net/http"
	"net/url"
)

// checkEnvelope turns a {"success": false} payload into an *APIError so
// callers only have to look at err.
func checkEnvelope(endpoint string, env faceEnvelope) error {
	if env.Success {
		return nil
	}
	msg := env.Error
	if msg == "" {
		msg = env.Message
	}
	return &APIError{StatusCode: http.StatusOK, Endpoint: endpoint, Message: msg}
}

// KnownFaces lists the names of all registered faces.
func (c *Client) KnownFaces(ctx context.Context) ([]string, error) {
	result, err := doGetJSON[KnownFacesResponse](ctx, c, "face/known-faces")
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope("face/known-faces", result.faceEnvelope); err != nil {
		return nil, err
	}
	return result.Faces, nil
}

// FaceMetadata reports whether the folder has been scanned for faces and
// which registered faces were found in it.
func (c *Client) FaceMetadata(ctx context.Context, folder string) (*FaceMetadata, error) {
	endpoint := "face/metadata?folder=" + url.QueryEscape(folder)
	result, err := doGetJSON[FaceMetadata](ctx, c, endpoint)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope("face/metadata", result.faceEnvelope); err != nil {
		return nil, err
	}
	return result, nil
}

// RegisterFace registers a named face from a data-URL encoded image.
func (c *Client) RegisterFace(ctx context.Context, req RegisterFaceRequest) (*FaceActionResponse, error) {
	result, err := doPostJSON[FaceActionResponse](ctx, c, "face/register", req)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope("face/register", result.faceEnvelope); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteFace removes a registered face.
func (c *Client) DeleteFace(ctx context.Context, name string) (*FaceActionResponse, error) {
	result, err := doPostJSON[FaceActionResponse](ctx, c, "face/delete", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope("face/delete", result.faceEnvelope); err != nil {
		return nil, err
	}
	return result, nil
}

// ScanFaces scans a folder for the target faces and records face metadata for it.
func (c *Client) ScanFaces(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	return doScan(ctx, c, "face/scan", req)
}

// RecognizeFaces copies images containing the target faces into an output folder.
func (c *Client) RecognizeFaces(ctx context.Context, req RecognizeRequest) (*ScanResult, error) {
	return doScan(ctx, c, "face/recognize", req)
}

func doScan(ctx context.Context, c *Client, endpoint string, req any) (*ScanResult, error) {
	result, err := doPostJSON[ScanResult](ctx, c, endpoint, req)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(endpoint, result.faceEnvelope); err != nil {
		return nil, err
	}
	return result, nil
}
