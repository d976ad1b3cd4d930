// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Web server constants
const (
	// MaxUploadSize bounds multipart face image uploads
	MaxUploadSize = 32 << 20

	// MaxRequestBody bounds JSON request bodies
	MaxRequestBody = 1 << 20

	// RequestTimeout caps a single API request, including long face scans
	RequestTimeout = 10 * time.Minute

	// SSEKeepAlive is how often an idle event stream sends a comment line
	SSEKeepAlive = 30 * time.Second
)

// CLI constants
const (
	// ProgressBarWidth is the width of CLI progress bars in characters
	ProgressBarWidth = 40
)
