// Package config handles configuration loading, validation, and defaults
// for maxwell-demon.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete tool configuration.
type Config struct {
	// Analysis configuration for the windowed metrics engine.
	Analysis AnalysisConfig `toml:"analysis" json:"analysis" yaml:"analysis"`

	// Compression configuration for the per-window ratio metric.
	Compression CompressionConfig `toml:"compression" json:"compression" yaml:"compression"`

	// Reference configuration for the two reference models.
	Reference ReferenceConfig `toml:"reference" json:"reference" yaml:"reference"`

	// Tokenization strategy configuration.
	Tokenization TokenizationConfig `toml:"tokenization" json:"tokenization" yaml:"tokenization"`

	// Output configuration for result files.
	Output OutputConfig `toml:"output" json:"output" yaml:"output"`

	// Storage configuration for the optional SQLite results store.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Watch configuration for the continuous-analysis binary.
	Watch WatchConfig `toml:"watch" json:"watch" yaml:"watch"`
}

// AnalysisConfig holds windowing and metric parameters.
type AnalysisConfig struct {
	// Mode is "raw" or "diff".
	Mode string `toml:"mode" json:"mode" yaml:"mode"`

	// Window is the window size in tokens.
	Window int `toml:"window" json:"window" yaml:"window"`

	// Step is the stride between consecutive window starts in tokens.
	Step int `toml:"step" json:"step" yaml:"step"`

	// LogBase is the logarithm base for entropy and surprisal.
	// e yields nats, 2 yields bits.
	LogBase float64 `toml:"log_base" json:"log_base" yaml:"log_base"`

	// Workers bounds document-level parallelism. 0 means GOMAXPROCS.
	Workers int `toml:"workers" json:"workers" yaml:"workers"`
}

// CompressionConfig selects the algorithm for the compression ratio metric.
type CompressionConfig struct {
	// Algorithm is one of: lzma, gzip, bz2, zlib.
	Algorithm string `toml:"algorithm" json:"algorithm" yaml:"algorithm"`
}

// ReferenceConfig locates and parameterizes the reference models.
type ReferenceConfig struct {
	// PaisaPath is the human-anchored reference table JSON file.
	PaisaPath string `toml:"paisa_path" json:"paisa_path" yaml:"paisa_path"`

	// SyntheticPath is the AI-anchored reference table JSON file.
	SyntheticPath string `toml:"synthetic_path" json:"synthetic_path" yaml:"synthetic_path"`

	// SmoothingK is the add-k smoothing constant used when building tables.
	SmoothingK float64 `toml:"smoothing_k" json:"smoothing_k" yaml:"smoothing_k"`

	// UnknownProb is the probability assigned to out-of-vocabulary
	// tokens in diff mode.
	UnknownProb float64 `toml:"unknown_prob" json:"unknown_prob" yaml:"unknown_prob"`
}

// TokenizationConfig selects the tokenization strategy.
type TokenizationConfig struct {
	// Method is "legacy" or "tiktoken".
	Method string `toml:"method" json:"method" yaml:"method"`

	// EncodingName is the BPE encoding used by the tiktoken method.
	EncodingName string `toml:"encoding_name" json:"encoding_name" yaml:"encoding_name"`

	// IncludePunctuation keeps punctuation tokens in the BPE stream.
	IncludePunctuation bool `toml:"include_punctuation" json:"include_punctuation" yaml:"include_punctuation"`
}

// OutputConfig holds result file locations.
type OutputConfig struct {
	// DataDir is the output directory template. The placeholder
	// "{dataset}" is replaced with the dataset name.
	DataDir string `toml:"data_dir" json:"data_dir" yaml:"data_dir"`
}

// StorageConfig holds the optional SQLite results store settings.
type StorageConfig struct {
	// Enabled turns result persistence on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: text, json.
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log destination: stdout, stderr, file.
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file when Output is "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// WatchConfig holds the continuous-analysis settings.
type WatchConfig struct {
	// Paths is a list of corpus directories to monitor.
	Paths []string `toml:"paths" json:"paths" yaml:"paths"`

	// IncludePatterns are base-name glob patterns for files to analyze.
	IncludePatterns []string `toml:"include_patterns" json:"include_patterns" yaml:"include_patterns"`

	// DebounceMs is how long a file must be stable before re-analysis.
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms" yaml:"debounce_ms"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			Mode:    "raw",
			Window:  50,
			Step:    10,
			LogBase: math.E,
		},
		Compression: CompressionConfig{
			Algorithm: "lzma",
		},
		Reference: ReferenceConfig{
			SmoothingK:  0.0,
			UnknownProb: 1e-10,
		},
		Tokenization: TokenizationConfig{
			Method:             "legacy",
			EncodingName:       "cl100k_base",
			IncludePunctuation: true,
		},
		Output: OutputConfig{
			DataDir: filepath.Join("results", "{dataset}"),
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    filepath.Join("results", "maxwell.db"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Watch: WatchConfig{
			IncludePatterns: []string{"*.txt"},
			DebounceMs:      2000,
		},
	}
}

// Load reads configuration from path, merged over the defaults, applies
// environment overrides, and validates the result. A missing file yields
// the defaults. TOML, JSON, and YAML are selected by file extension,
// defaulting to TOML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to defaults
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := decode(path, data, cfg); err != nil {
				return nil, err
			}
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnvOverrides applies MDEMON_-prefixed environment variable overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("MDEMON_PAISA_PATH"); v != "" {
		c.Reference.PaisaPath = v
	}
	if v := os.Getenv("MDEMON_SYNTHETIC_PATH"); v != "" {
		c.Reference.SyntheticPath = v
	}
	if v := os.Getenv("MDEMON_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MDEMON_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("MDEMON_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Analysis.Workers = n
		}
	}
}
