package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidThreshold is returned when a configured threshold lies outside [0,1]
var ErrInvalidThreshold = errors.New("threshold must be within [0,1]")

// Config is the complete runtime configuration
type Config struct {
	Thresholds    Thresholds          `yaml:"thresholds" mapstructure:"thresholds"`
	Synonyms      SynonymConfig       `yaml:"synonyms" mapstructure:"synonyms"`
	Embedding     EmbeddingConfig     `yaml:"embedding" mapstructure:"embedding"`
	Store         StoreConfig         `yaml:"store" mapstructure:"store"`
	Consolidation ConsolidationConfig `yaml:"consolidation" mapstructure:"consolidation"`
	Assign        AssignConfig        `yaml:"assign" mapstructure:"assign"`
	Workers       int                 `yaml:"workers" mapstructure:"workers"` // Batch reconcile concurrency
	Log           LogConfig           `yaml:"log" mapstructure:"log"`
}

// Thresholds are similarity gates, all inclusive
type Thresholds struct {
	Semantic float64 `yaml:"semantic" mapstructure:"semantic"` // Semantic stage acceptance
	Fuzzy    float64 `yaml:"fuzzy" mapstructure:"fuzzy"`       // Fuzzy stage acceptance
	Merge    float64 `yaml:"merge" mapstructure:"merge"`       // Consolidation edge threshold
	Assign   float64 `yaml:"assign" mapstructure:"assign"`     // Nearest-centroid snap threshold
}

// SynonymConfig controls the synonym stage
type SynonymConfig struct {
	AllowCreate bool              `yaml:"allow_create" mapstructure:"allow_create"` // Emit a family label absent from the existing set
	File        string            `yaml:"file" mapstructure:"file"`                 // YAML map of phrase -> family
	Extra       map[string]string `yaml:"extra,omitempty" mapstructure:"extra"`     // Inline phrase -> family entries
}

// EmbeddingConfig selects and tunes the embedding backend
type EmbeddingConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // "onnx", "openai", "ollama", "none"
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds, per encode call
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`

	CacheDir string `yaml:"cache_dir" mapstructure:"cache_dir"`
	CacheTTL string `yaml:"cache_ttl" mapstructure:"cache_ttl"` // Go duration, "" disables disk cache

	// onnx only
	ORTLibrary    string `yaml:"ort_library,omitempty" mapstructure:"ort_library"`
	ModelPath     string `yaml:"model_path,omitempty" mapstructure:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path,omitempty" mapstructure:"tokenizer_path"`
	MaxSeqLen     int    `yaml:"max_seq_len" mapstructure:"max_seq_len"`

	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// StoreConfig locates the item store
type StoreConfig struct {
	DSN string `yaml:"dsn" mapstructure:"dsn"` // sqlite path, postgres:// or mysql:// URL
}

// ConsolidationConfig controls the merge sweep
type ConsolidationConfig struct {
	AfterInsert    bool   `yaml:"after_insert" mapstructure:"after_insert"`       // Sweep the scope after every add
	InternalMarker string `yaml:"internal_marker" mapstructure:"internal_marker"` // Labels with this prefix lose canonical ties
}

// AssignConfig controls nearest-centroid snapping on add
type AssignConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LogConfig controls the logger
type LogConfig struct {
	Mode string `yaml:"mode" mapstructure:"mode"` // "dev" or "prod"
}

// DefaultModel is the sentence embedding model used when none is configured
const DefaultModel = "sentence-transformers/all-MiniLM-L6-v2"

// DefaultConfig returns the built-in defaults
func DefaultConfig() Config {
	return Config{
		Thresholds: Thresholds{
			Semantic: 0.58,
			Fuzzy:    0.88,
			Merge:    0.74,
			Assign:   0.72,
		},
		Synonyms: SynonymConfig{AllowCreate: true},
		Embedding: EmbeddingConfig{
			Provider:          "onnx",
			Model:             DefaultModel,
			Timeout:           30,
			RequestsPerSecond: 5,
			Burst:             5,
			CacheTTL:          "720h",
			MaxSeqLen:         256,
		},
		Store: StoreConfig{DSN: "categora.db"},
		Consolidation: ConsolidationConfig{
			AfterInsert:    true,
			InternalMarker: "_",
		},
		Assign:  AssignConfig{Enabled: true},
		Workers: 4,
		Log:     LogConfig{Mode: "dev"},
	}
}

// Validate fails fast on values that cannot produce sane reconciliation
func (c Config) Validate() error {
	checks := []struct {
		name  string
		value float64
	}{
		{"thresholds.semantic", c.Thresholds.Semantic},
		{"thresholds.fuzzy", c.Thresholds.Fuzzy},
		{"thresholds.merge", c.Thresholds.Merge},
		{"thresholds.assign", c.Thresholds.Assign},
	}
	for _, chk := range checks {
		if chk.value < 0 || chk.value > 1 || chk.value != chk.value {
			return fmt.Errorf("%s = %v: %w", chk.name, chk.value, ErrInvalidThreshold)
		}
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case "", "none", "onnx", "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, ollama, none)", c.Embedding.Provider)
	}

	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
