package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	var errs ValidationErrors

	errs = append(errs, validateAnalysis(&c.Analysis)...)
	errs = append(errs, validateCompression(&c.Compression)...)
	errs = append(errs, validateReference(&c.Reference)...)
	errs = append(errs, validateTokenization(&c.Tokenization)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateWatch(&c.Watch)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateAnalysis(a *AnalysisConfig) ValidationErrors {
	var errs ValidationErrors

	switch a.Mode {
	case "raw", "diff":
	default:
		errs = append(errs, ValidationError{
			Field:   "analysis.mode",
			Message: fmt.Sprintf("must be raw or diff, got %q", a.Mode),
		})
	}
	if a.Window < 1 {
		errs = append(errs, ValidationError{
			Field:   "analysis.window",
			Message: "must be at least 1",
		})
	}
	if a.Step < 1 {
		errs = append(errs, ValidationError{
			Field:   "analysis.step",
			Message: "must be at least 1",
		})
	}
	if a.LogBase <= 0 || a.LogBase == 1 {
		errs = append(errs, ValidationError{
			Field:   "analysis.log_base",
			Message: "must be positive and not equal to 1",
		})
	}
	if a.Workers < 0 {
		errs = append(errs, ValidationError{
			Field:   "analysis.workers",
			Message: "cannot be negative",
		})
	}
	return errs
}

func validateCompression(c *CompressionConfig) ValidationErrors {
	switch c.Algorithm {
	case "lzma", "gzip", "bz2", "zlib":
		return nil
	}
	return ValidationErrors{{
		Field:   "compression.algorithm",
		Message: fmt.Sprintf("must be one of lzma, gzip, bz2, zlib, got %q", c.Algorithm),
	}}
}

func validateReference(r *ReferenceConfig) ValidationErrors {
	var errs ValidationErrors

	if r.SmoothingK < 0 {
		errs = append(errs, ValidationError{
			Field:   "reference.smoothing_k",
			Message: "cannot be negative",
		})
	}
	if r.UnknownProb <= 0 || r.UnknownProb > 1 {
		errs = append(errs, ValidationError{
			Field:   "reference.unknown_prob",
			Message: "must be in (0, 1]",
		})
	}
	return errs
}

func validateTokenization(t *TokenizationConfig) ValidationErrors {
	var errs ValidationErrors

	switch t.Method {
	case "legacy", "tiktoken":
	default:
		errs = append(errs, ValidationError{
			Field:   "tokenization.method",
			Message: fmt.Sprintf("must be legacy or tiktoken, got %q", t.Method),
		})
	}
	if t.Method == "tiktoken" && t.EncodingName == "" {
		errs = append(errs, ValidationError{
			Field:   "tokenization.encoding_name",
			Message: "required for the tiktoken method",
		})
	}
	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("must be debug, info, warn, or error, got %q", l.Level),
		})
	}
	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be text or json, got %q", l.Format),
		})
	}
	switch l.Output {
	case "stdout", "stderr":
	case "file":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "required when output is file",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("must be stdout, stderr, or file, got %q", l.Output),
		})
	}
	return errs
}

func validateWatch(w *WatchConfig) ValidationErrors {
	var errs ValidationErrors

	for i, path := range w.Paths {
		if path == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watch.paths[%d]", i),
				Message: "path cannot be empty",
			})
		}
	}
	for i, pattern := range w.IncludePatterns {
		if _, err := filepath.Match(pattern, "probe"); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("watch.include_patterns[%d]", i),
				Message: fmt.Sprintf("invalid glob pattern: %s", pattern),
			})
		}
	}
	if w.DebounceMs < 100 {
		errs = append(errs, ValidationError{
			Field:   "watch.debounce_ms",
			Message: "debounce must be at least 100ms",
		})
	}
	if w.DebounceMs > 60000 {
		errs = append(errs, ValidationError{
			Field:   "watch.debounce_ms",
			Message: "debounce cannot exceed 60000ms (1 minute)",
		})
	}
	return errs
}
