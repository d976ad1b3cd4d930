package search

import (
	"strings"

	"github.com/kozaktomas/image-search/internal/settings"
)

// Missing names one required input that blocks a search. The values are
// shown to the user verbatim.
type Missing string

const (
	MissingQuery     Missing = "query"
	MissingIndex     Missing = "index selection"
	MissingLocation  Missing = "URL"
	MissingThreshold Missing = "threshold"
)

// Readiness returns the required inputs that are missing, in a fixed order.
// An empty result means a search may run.
func Readiness(query string, cfg settings.Configuration) []Missing {
	var missing []Missing
	if query == "" {
		missing = append(missing, MissingQuery)
	}
	if cfg.IndexAlgorithm == "" {
		missing = append(missing, MissingIndex)
	}
	if cfg.CorpusLocation == "" {
		missing = append(missing, MissingLocation)
	}
	if cfg.SimilarityThreshold == nil {
		missing = append(missing, MissingThreshold)
	}
	return missing
}

// TooltipText renders a readiness result for display next to the search trigger.
func TooltipText(missing []Missing) string {
	if len(missing) == 0 {
		return "Ready to search"
	}
	names := make([]string, len(missing))
	for i, m := range missing {
		names[i] = string(m)
	}
	return "Please fill in: " + strings.Join(names, ", ")
}
