package analysis

import (
	"fmt"
	"math"

	"github.com/nikazzio/maxwell-demon/internal/refmodel"
)

// Epsilon is the probability floor applied before taking logarithms. A
// frequency-derived probability cannot actually round to zero, but clipping
// guards alternate call paths that feed externally loaded probabilities.
const Epsilon = 1e-10

// DefaultUnknownProb is the out-of-vocabulary probability floor used in
// diff mode for tokens absent from the reference table. It is distinct
// from any in-table smoothing mass.
const DefaultUnknownProb = 1e-10

func validateLogBase(logBase float64) error {
	if logBase <= 0 || logBase == 1 {
		return fmt.Errorf("%w: log_base must be > 0 and != 1", ErrInvalidParameter)
	}
	return nil
}

func clipProb(p float64) float64 {
	if p < Epsilon {
		return Epsilon
	}
	if p > 1 {
		return 1
	}
	return p
}

// logb returns log of p in the given base. Natural log is special-cased so
// the common default avoids a division.
func logb(p, logBase float64) float64 {
	if logBase == math.E {
		return math.Log(p)
	}
	return math.Log(p) / math.Log(logBase)
}

// countInOrder tallies token frequencies, keeping first-occurrence order so
// floating-point accumulation order (and therefore the result bits) is
// stable across runs.
func countInOrder(tokens []string) ([]string, map[string]int) {
	order := make([]string, 0, len(tokens))
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}
	return order, counts
}

// ShannonEntropy computes the Shannon entropy of the empirical unigram
// distribution over tokens, in units of the given log base.
func ShannonEntropy(tokens []string, logBase float64) (float64, error) {
	if err := validateLogBase(logBase); err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	order, counts := countInOrder(tokens)
	total := float64(len(tokens))
	var entropy float64
	for _, tok := range order {
		p := clipProb(float64(counts[tok]) / total)
		entropy -= p * logb(p, logBase)
	}
	return entropy, nil
}

// Surprisal computes -log_b(p) for a single token under a reference table,
// falling back to unknownProb for out-of-vocabulary tokens.
func Surprisal(token string, ref *refmodel.Table, logBase, unknownProb float64) (float64, error) {
	if err := validateLogBase(logBase); err != nil {
		return 0, err
	}
	p, ok := ref.Prob(token)
	if !ok {
		p = unknownProb
	}
	return -logb(clipProb(p), logBase), nil
}

// surprisals computes per-token surprisal for a window against an arbitrary
// probability lookup. Values are clipped before the logarithm; mean and
// variance downstream both consume these clipped values so the two stay
// mutually consistent.
func surprisals(tokens []string, lookup func(string) (float64, bool), logBase, unknownProb float64) []float64 {
	out := make([]float64, len(tokens))
	for i, tok := range tokens {
		p, ok := lookup(tok)
		if !ok {
			p = unknownProb
		}
		out[i] = -logb(clipProb(p), logBase)
	}
	return out
}

// meanVariance returns the mean and population variance of values.
func meanVariance(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, sq / float64(len(values))
}

// EntropyVariance computes the population variance of each token's
// self-information under the window's own empirical distribution. Unlike
// the aggregate entropy, this captures dispersion of surprisal within the
// window, a burstiness-like signal.
func EntropyVariance(tokens []string, logBase float64) (float64, error) {
	if err := validateLogBase(logBase); err != nil {
		return 0, err
	}
	if len(tokens) == 0 {
		return 0, nil
	}

	_, counts := countInOrder(tokens)
	total := float64(len(tokens))
	lookup := func(tok string) (float64, bool) {
		c, ok := counts[tok]
		if !ok {
			return 0, false
		}
		return float64(c) / total, true
	}
	_, variance := meanVariance(surprisals(tokens, lookup, logBase, Epsilon))
	return variance, nil
}

// SurprisalStats computes the mean and population variance of per-token
// surprisal for a window against a reference table.
func SurprisalStats(tokens []string, ref *refmodel.Table, logBase, unknownProb float64) (mean, variance float64, err error) {
	if err := validateLogBase(logBase); err != nil {
		return 0, 0, err
	}
	if len(tokens) == 0 {
		return 0, 0, nil
	}
	mean, variance = meanVariance(surprisals(tokens, ref.Prob, logBase, unknownProb))
	return mean, variance, nil
}

// UniqueRatio returns distinct-token-count / token-count, 0.0 for an empty
// window.
func UniqueRatio(tokens []string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		distinct[tok] = struct{}{}
	}
	return float64(len(distinct)) / float64(len(tokens))
}
