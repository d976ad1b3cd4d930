package search

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/kozaktomas/image-search/internal/backend"
)

// Image is one decoded search hit.
type Image struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// ContentType sniffs the image MIME type, defaulting to JPEG.
func (i Image) ContentType() string {
	ct := http.DetectContentType(i.Data)
	if !strings.HasPrefix(ct, "image/") {
		return "image/jpeg"
	}
	return ct
}

// DataURL renders the image as an inline data URL for display.
func (i Image) DataURL() string {
	return "data:" + i.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// Result is the outcome of one successful search. It is replaced as a
// whole by the next successful search.
type Result struct {
	Query string `json:"query"`
	// CorrectedQuery is the query the service resolved when it differs from
	// Query, and empty otherwise.
	CorrectedQuery string   `json:"correctedQuery,omitempty"`
	Images         []Image  `json:"images"`
	Warnings       []string `json:"warnings,omitempty"`
}

// decodeImages decodes the base64 payloads, tolerating a data URL prefix.
// Undecodable images are dropped and reported as warnings.
func decodeImages(in []backend.PredictImage) ([]Image, []string) {
	images := make([]Image, 0, len(in))
	var warnings []string
	for _, img := range in {
		data, err := decodeBase64(img.Data)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("image %s could not be decoded: %v", img.Name, err))
			continue
		}
		images = append(images, Image{Name: img.Name, Data: data})
	}
	return images, warnings
}

func decodeBase64(s string) ([]byte, error) {
	if strings.HasPrefix(s, "data:") {
		if _, payload, ok := strings.Cut(s, "base64,"); ok {
			s = payload
		}
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		if raw, rawErr := base64.RawStdEncoding.DecodeString(s); rawErr == nil {
			return raw, nil
		}
		return nil, err
	}
	return data, nil
}
