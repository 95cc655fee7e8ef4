package tokenizer

import (
	"regexp"
	"strings"
)

// nonWord matches runs of characters that are neither word constituents
// nor whitespace, across the full Unicode range.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)

// Legacy is the original whitespace tokenizer: lowercase, strip
// punctuation, split on whitespace.
type Legacy struct{}

// NewLegacy returns the legacy whitespace strategy.
func NewLegacy() *Legacy {
	return &Legacy{}
}

// Tokenize implements Tokenizer.
func (*Legacy) Tokenize(text string) []string {
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, " ")
	return strings.Fields(text)
}
