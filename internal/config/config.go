package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Backend  BackendConfig
	Storage  StorageConfig
	Web      WebConfig
	Env      string
	Defaults Defaults
}

type BackendConfig struct {
	URL        string        // base URL of the search service (e.g., http://localhost:5000)
	Timeout    time.Duration // per-request timeout, defaults to 2 minutes
	CaptureDir string        // optional directory for captured API responses
}

type StorageConfig struct {
	Type string // memory, file, bolt or badger (default file)
	Path string // file or directory backing the store
}

type WebConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string // extra CORS origins; localhost is always allowed
}

// Defaults are the client-side values shipped in defaults.yaml.
type Defaults struct {
	Search  SearchDefaults  `yaml:"search" json:"search"`
	History HistoryDefaults `yaml:"history" json:"history"`
	Faces   FaceDefaults    `yaml:"faces" json:"faces"`
}

type SearchDefaults struct {
	ResultCount         int     `yaml:"result_count" json:"result_count"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold"`
	ComputeDevice       string  `yaml:"compute_device" json:"compute_device"`
	ExportLabel         string  `yaml:"export_label" json:"export_label"`
}

type HistoryDefaults struct {
	StorageKey       string `yaml:"storage_key" json:"storage_key"`
	Size             int    `yaml:"size" json:"size"`
	SearchCandidates int    `yaml:"search_candidates" json:"search_candidates"`
}

type FaceDefaults struct {
	RecognizeThreshold float64 `yaml:"recognize_threshold" json:"recognize_threshold"`
	OutputFolder       string  `yaml:"output_folder" json:"output_folder"`
	MaxImageSize       int     `yaml:"max_image_size" json:"max_image_size"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envString reads an environment variable, falling back to defaultVal when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, skipping blanks.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// LoadDefaults parses the embedded defaults.yaml.
func LoadDefaults() Defaults {
	var d Defaults
	if err := yaml.Unmarshal(defaultsYAML, &d); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return d
}

func Load() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:        os.Getenv("IMAGE_SEARCH_BACKEND_URL"),
			Timeout:    time.Duration(envInt("IMAGE_SEARCH_TIMEOUT_SECONDS", 120)) * time.Second,
			CaptureDir: os.Getenv("IMAGE_SEARCH_CAPTURE_DIR"),
		},
		Storage: StorageConfig{
			Type: envString("IMAGE_SEARCH_STORE", "file"),
			Path: envString("IMAGE_SEARCH_STORE_PATH", defaultStorePath()),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "127.0.0.1"),
			Port:           envInt("WEB_PORT", 8080),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Env:      envString("IMAGE_SEARCH_ENV", "development"),
		Defaults: LoadDefaults(),
	}
}

// defaultStorePath places local state under the user's config directory,
// or the working directory when that cannot be determined.
func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".image-search"
	}
	return dir + string(os.PathSeparator) + "image-search"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
