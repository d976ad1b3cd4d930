package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// IndexAlgorithm names the index structure the search service should use.
type IndexAlgorithm string

const (
	IndexFlatL2  IndexAlgorithm = "IndexFlatL2"
	IndexIVFFlat IndexAlgorithm = "IndexIVFFlat"
	IndexIVFPQ   IndexAlgorithm = "IndexIVFPQ"
)

// IndexAlgorithms lists the supported algorithms in display order.
var IndexAlgorithms = []IndexAlgorithm{IndexIVFPQ, IndexFlatL2, IndexIVFFlat}

// ParseIndexAlgorithm accepts the wire name or the short form without the
// "Index" prefix, case-insensitively.
func ParseIndexAlgorithm(s string) (IndexAlgorithm, error) {
	norm := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "Index"))
	norm = strings.TrimPrefix(norm, "index")
	for _, alg := range IndexAlgorithms {
		if strings.ToLower(strings.TrimPrefix(string(alg), "Index")) == norm {
			return alg, nil
		}
	}
	return "", fmt.Errorf("unknown index algorithm %q", s)
}

// ComputeDevice selects where the service runs the model.
type ComputeDevice string

const (
	DeviceCPU ComputeDevice = "cpu"
	DeviceGPU ComputeDevice = "gpu"
)

// ParseComputeDevice parses "cpu" or "gpu".
func ParseComputeDevice(s string) (ComputeDevice, error) {
	switch ComputeDevice(strings.ToLower(strings.TrimSpace(s))) {
	case DeviceCPU:
		return DeviceCPU, nil
	case DeviceGPU:
		return DeviceGPU, nil
	}
	return "", fmt.Errorf("unknown compute device %q", s)
}

// Configuration is the set of retrieval parameters searches run with.
// ResultCount and SimilarityThreshold are nil while unset.
type Configuration struct {
	CorpusLocation      string         `json:"url"`
	ResultCount         *int           `json:"k"`
	SimilarityThreshold *float64       `json:"threshold"`
	IndexAlgorithm      IndexAlgorithm `json:"selectedIndex"`
	ComputeDevice       ComputeDevice  `json:"selectedDevice"`
}

// Complete reports whether every field is set and the location is non-empty.
func (c Configuration) Complete() bool {
	return c.CorpusLocation != "" &&
		c.ResultCount != nil &&
		c.SimilarityThreshold != nil &&
		c.IndexAlgorithm != "" &&
		c.ComputeDevice != ""
}

// Clone returns a copy that shares no pointers with c.
func (c Configuration) Clone() Configuration {
	out := c
	if c.ResultCount != nil {
		k := *c.ResultCount
		out.ResultCount = &k
	}
	if c.SimilarityThreshold != nil {
		th := *c.SimilarityThreshold
		out.SimilarityThreshold = &th
	}
	return out
}

// Equal compares two configurations by value.
func (c Configuration) Equal(o Configuration) bool {
	return c.CorpusLocation == o.CorpusLocation &&
		c.IndexAlgorithm == o.IndexAlgorithm &&
		c.ComputeDevice == o.ComputeDevice &&
		equalPtr(c.ResultCount, o.ResultCount) &&
		equalPtr(c.SimilarityThreshold, o.SimilarityThreshold)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Draft is the editable copy of a Configuration plus the label used to name
// exported archives. The label is never sent to the search service.
type Draft struct {
	Configuration
	ExportLabel string `json:"folderName"`
}

// Field identifies an editable draft field by its wire name.
type Field string

const (
	FieldCorpusLocation Field = "url"
	FieldResultCount    Field = "k"
	FieldThreshold      Field = "threshold"
	FieldIndexAlgorithm Field = "selectedIndex"
	FieldComputeDevice  Field = "selectedDevice"
	FieldExportLabel    Field = "folderName"
)

// Fields lists every editable field.
var Fields = []Field{
	FieldCorpusLocation, FieldResultCount, FieldThreshold,
	FieldIndexAlgorithm, FieldComputeDevice, FieldExportLabel,
}

// Set parses raw into field. An empty raw clears the field, which is how a
// partially typed value is represented; only malformed or out-of-range
// input is rejected.
func (d *Draft) Set(field Field, raw string) error {
	raw = strings.TrimSpace(raw)
	switch field {
	case FieldCorpusLocation:
		d.CorpusLocation = raw
	case FieldExportLabel:
		d.ExportLabel = raw
	case FieldResultCount:
		if raw == "" {
			d.ResultCount = nil
			return nil
		}
		k, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid result count %q: %w", raw, err)
		}
		if k < 1 {
			return fmt.Errorf("result count must be at least 1, got %d", k)
		}
		d.ResultCount = &k
	case FieldThreshold:
		if raw == "" {
			d.SimilarityThreshold = nil
			return nil
		}
		th, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid threshold %q: %w", raw, err)
		}
		if th < -1 || th > 1 {
			return fmt.Errorf("threshold must be within [-1, 1], got %g", th)
		}
		d.SimilarityThreshold = &th
	case FieldIndexAlgorithm:
		if raw == "" {
			d.IndexAlgorithm = ""
			return nil
		}
		alg, err := ParseIndexAlgorithm(raw)
		if err != nil {
			return err
		}
		d.IndexAlgorithm = alg
	case FieldComputeDevice:
		if raw == "" {
			d.ComputeDevice = ""
			return nil
		}
		dev, err := ParseComputeDevice(raw)
		if err != nil {
			return err
		}
		d.ComputeDevice = dev
	default:
		return fmt.Errorf("unknown settings field %q", field)
	}
	return nil
}

func (d Draft) clone() Draft {
	return Draft{Configuration: d.Configuration.Clone(), ExportLabel: d.ExportLabel}
}
