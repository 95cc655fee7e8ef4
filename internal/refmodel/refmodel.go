// Package refmodel builds and persists smoothed unigram reference models.
//
// A reference model maps each token observed in a corpus to its estimated
// probability. With smoothing disabled the estimate is pure maximum
// likelihood; with add-k (Lidstone) smoothing, probability mass is
// redistributed toward rare tokens so no observed token receives zero.
package refmodel

import "errors"

// Errors returned by the builder.
var (
	// ErrNegativeSmoothing indicates a smoothing constant below zero.
	ErrNegativeSmoothing = errors.New("refmodel: smoothing_k must be >= 0")

	// ErrMalformedTable indicates a persisted table that is not a valid
	// token -> probability mapping.
	ErrMalformedTable = errors.New("refmodel: malformed reference table")
)

// Table is an immutable token -> probability mapping.
//
// Tokens are kept in first-occurrence order so that serialization is
// byte-stable across runs on the same corpus. The table is read-only after
// construction and safe for concurrent use.
type Table struct {
	tokens []string
	probs  map[string]float64
}

// Build constructs a reference table from a token stream.
//
// Counts are accumulated in input order and probabilities computed by a
// fixed formula, so an identical token multiset always yields bit-identical
// probabilities. An empty stream yields an empty table.
func Build(tokens []string, smoothingK float64) (*Table, error) {
	if smoothingK < 0 {
		return nil, ErrNegativeSmoothing
	}

	order := make([]string, 0, len(tokens))
	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		if _, seen := counts[tok]; !seen {
			order = append(order, tok)
		}
		counts[tok]++
	}

	total := len(tokens)
	if total == 0 {
		return &Table{probs: map[string]float64{}}, nil
	}

	probs := make(map[string]float64, len(order))
	if smoothingK == 0 {
		for _, tok := range order {
			probs[tok] = float64(counts[tok]) / float64(total)
		}
	} else {
		denom := float64(total) + smoothingK*float64(len(order))
		for _, tok := range order {
			probs[tok] = (float64(counts[tok]) + smoothingK) / denom
		}
	}

	return &Table{tokens: order, probs: probs}, nil
}

// fromPairs builds a table from an ordered list of token/probability pairs,
// preserving the given order. Used by the loader.
func fromPairs(tokens []string, probs map[string]float64) *Table {
	return &Table{tokens: tokens, probs: probs}
}

// Prob returns the probability of token and whether it is in the table.
func (t *Table) Prob(token string) (float64, bool) {
	p, ok := t.probs[token]
	return p, ok
}

// Len returns the vocabulary size.
func (t *Table) Len() int {
	return len(t.probs)
}

// Tokens returns the vocabulary in first-occurrence order. The returned
// slice is a copy.
func (t *Table) Tokens() []string {
	out := make([]string, len(t.tokens))
	copy(out, t.tokens)
	return out
}

// Sum returns the total probability mass over the observed vocabulary.
func (t *Table) Sum() float64 {
	var sum float64
	for _, tok := range t.tokens {
		sum += t.probs[tok]
	}
	return sum
}
