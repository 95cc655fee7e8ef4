package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"
)

// BPE tokenizes with a tiktoken byte-pair encoding, decoding each token id
// back to its string form so downstream metrics see string tokens.
type BPE struct {
	enc                *tiktoken.Tiktoken
	includePunctuation bool
}

// NewBPE loads the named encoding. Loading fails when the encoding is
// unknown or its vocabulary cannot be fetched.
func NewBPE(encodingName string, includePunctuation bool) (*BPE, error) {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, err
	}
	return &BPE{enc: enc, includePunctuation: includePunctuation}, nil
}

// Tokenize implements Tokenizer.
func (b *BPE) Tokenize(text string) []string {
	if !b.includePunctuation {
		text = nonWord.ReplaceAllString(text, " ")
	}
	ids := b.enc.Encode(text, nil, nil)
	tokens := make([]string, len(ids))
	for i, id := range ids {
		tokens[i] = b.enc.Decode([]int{id})
	}
	return tokens
}
