// Package analysis implements the windowed metrics engine: deterministic
// segmentation of a token sequence into fixed-stride windows and pure,
// numerically stable per-window statistics (entropy, surprisal against a
// reference model, compression ratio, lexical uniqueness).
package analysis

import (
	"fmt"
	"math"
	"sort"

	"github.com/nikazzio/maxwell-demon/internal/refmodel"
)

// Mode selects the metric set computed per window.
type Mode string

const (
	// ModeRaw computes entropy and entropy variance from the window's own
	// empirical distribution; no reference model is needed.
	ModeRaw Mode = "raw"

	// ModeDiff computes surprisal mean and variance against a reference
	// model.
	ModeDiff Mode = "diff"
)

// WindowRecord is one window's metrics. WindowID is the 0-based positional
// index of the window within one document's segmentation; it is stable
// across repeated runs on the same input.
type WindowRecord struct {
	WindowID         int
	MeanEntropy      float64
	EntropyVariance  float64
	CompressionRatio float64
	UniqueRatio      float64
}

// Params holds validated analyzer configuration. Validation happens once at
// entry and is never partially applied.
type Params struct {
	Mode        Mode
	WindowSize  int
	Step        int
	LogBase     float64
	Compression string

	// UnknownProb is the out-of-vocabulary probability floor for diff
	// mode. Zero means DefaultUnknownProb.
	UnknownProb float64
}

// DefaultParams returns raw-mode parameters matching the documented
// defaults.
func DefaultParams() Params {
	return Params{
		Mode:        ModeRaw,
		WindowSize:  50,
		Step:        10,
		LogBase:     math.E,
		Compression: CompressionLZMA,
		UnknownProb: DefaultUnknownProb,
	}
}

// Validate checks every parameter and returns the first violation.
func (p Params) Validate() error {
	if p.Mode != ModeRaw && p.Mode != ModeDiff {
		return fmt.Errorf("%w: mode must be %q or %q", ErrInvalidParameter, ModeRaw, ModeDiff)
	}
	if p.WindowSize <= 0 || p.Step <= 0 {
		return fmt.Errorf("%w: window_size and step must be positive", ErrInvalidParameter)
	}
	if err := validateLogBase(p.LogBase); err != nil {
		return err
	}
	if err := ValidateCompression(p.Compression); err != nil {
		return err
	}
	if p.UnknownProb < 0 {
		return fmt.Errorf("%w: unknown_prob must be > 0 (zero selects the default)", ErrInvalidParameter)
	}
	return nil
}

func (p Params) unknownProb() float64 {
	if p.UnknownProb == 0 {
		return DefaultUnknownProb
	}
	return p.UnknownProb
}

// Analyze segments tokens and computes the metric set selected by p.Mode
// for each window, tagging records with their positional window index. In
// diff mode ref must be non-nil. The function is pure: identical inputs
// yield identical records.
func Analyze(tokens []string, p Params, ref *refmodel.Table) ([]WindowRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Mode == ModeDiff && ref == nil {
		return nil, ErrMissingReference
	}

	windows, err := Segment(tokens, p.WindowSize, p.Step)
	if err != nil {
		return nil, err
	}
	return analyzeWindows(windows, p, ref)
}

// AnalyzeBatch evaluates diff mode against multiple named reference tables
// over one shared segmentation, guaranteeing identical window boundaries
// across references. In raw mode it returns a single "raw" entry.
func AnalyzeBatch(tokens []string, p Params, refs map[string]*refmodel.Table) (map[string][]WindowRecord, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	windows, err := Segment(tokens, p.WindowSize, p.Step)
	if err != nil {
		return nil, err
	}

	if p.Mode == ModeRaw {
		records, err := analyzeWindows(windows, p, nil)
		if err != nil {
			return nil, err
		}
		return map[string][]WindowRecord{"raw": records}, nil
	}

	if len(refs) == 0 {
		return nil, ErrMissingReference
	}

	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string][]WindowRecord, len(refs))
	for _, name := range names {
		if refs[name] == nil {
			return nil, fmt.Errorf("%w (reference %q)", ErrMissingReference, name)
		}
		records, err := analyzeWindows(windows, p, refs[name])
		if err != nil {
			return nil, err
		}
		results[name] = records
	}
	return results, nil
}

func analyzeWindows(windows [][]string, p Params, ref *refmodel.Table) ([]WindowRecord, error) {
	records := make([]WindowRecord, 0, len(windows))
	for id, win := range windows {
		var mean, variance float64
		var err error

		switch p.Mode {
		case ModeRaw:
			mean, err = ShannonEntropy(win, p.LogBase)
			if err != nil {
				return nil, err
			}
			variance, err = EntropyVariance(win, p.LogBase)
			if err != nil {
				return nil, err
			}
		case ModeDiff:
			mean, variance, err = SurprisalStats(win, ref, p.LogBase, p.unknownProb())
			if err != nil {
				return nil, err
			}
		}

		ratio, err := CompressionRatio(win, p.Compression)
		if err != nil {
			return nil, err
		}

		records = append(records, WindowRecord{
			WindowID:         id,
			MeanEntropy:      mean,
			EntropyVariance:  variance,
			CompressionRatio: ratio,
			UniqueRatio:      UniqueRatio(win),
		})
	}
	return records, nil
}
