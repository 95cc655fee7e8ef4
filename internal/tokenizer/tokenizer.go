// Package tokenizer provides the tokenization strategies that feed the
// analysis engine. Tokenization is a boundary concern: the engine treats
// tokens as opaque atomic strings and does not normalize them further.
//
// Strategy selection is an explicit constructor-time decision. There is no
// implicit fallback from the BPE strategy to the legacy one; a caller that
// wants substitution on a missing encoding builds NewLegacy itself.
package tokenizer

import (
	"errors"
	"fmt"
)

// Methods accepted by New.
const (
	MethodLegacy   = "legacy"
	MethodTiktoken = "tiktoken"
)

// ErrUnknownMethod indicates an unsupported tokenization method name.
var ErrUnknownMethod = errors.New("tokenizer: method must be one of: legacy, tiktoken")

// Tokenizer turns raw text into an ordered token sequence.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Config selects and parameterizes a tokenization strategy.
type Config struct {
	// Method is "legacy" or "tiktoken".
	Method string

	// EncodingName is the BPE encoding for the tiktoken method,
	// e.g. "cl100k_base".
	EncodingName string

	// IncludePunctuation keeps punctuation in the BPE token stream. The
	// legacy method always strips punctuation.
	IncludePunctuation bool
}

// DefaultConfig returns the legacy whitespace strategy with the documented
// BPE defaults filled in.
func DefaultConfig() Config {
	return Config{
		Method:             MethodLegacy,
		EncodingName:       "cl100k_base",
		IncludePunctuation: true,
	}
}

// New builds the strategy named by cfg.Method, failing fast when the
// method is unknown or the BPE encoding cannot be loaded.
func New(cfg Config) (Tokenizer, error) {
	switch cfg.Method {
	case MethodLegacy:
		return NewLegacy(), nil
	case MethodTiktoken:
		bpe, err := NewBPE(cfg.EncodingName, cfg.IncludePunctuation)
		if err != nil {
			return nil, fmt.Errorf("tokenizer: load encoding %q: %w", cfg.EncodingName, err)
		}
		return bpe, nil
	default:
		return nil, fmt.Errorf("%w (got %q)", ErrUnknownMethod, cfg.Method)
	}
}
