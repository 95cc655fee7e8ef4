package analysis

import "fmt"

// Segment splits tokens into fixed-size, fixed-stride windows.
//
// Windows start at offsets 0, step, 2*step, ... while a full window still
// fits; leftover tokens that do not form a full window are dropped so every
// emitted window has exactly windowSize tokens and cross-window metrics stay
// length-normalized. A non-empty input shorter than windowSize yields a
// single window containing all tokens. Windows are subslices of tokens, not
// copies.
func Segment(tokens []string, windowSize, step int) ([][]string, error) {
	if windowSize <= 0 || step <= 0 {
		return nil, fmt.Errorf("%w: window_size and step must be positive", ErrInvalidParameter)
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	if len(tokens) < windowSize {
		return [][]string{tokens}, nil
	}

	windows := make([][]string, 0, WindowCount(len(tokens), windowSize, step))
	for start := 0; start+windowSize <= len(tokens); start += step {
		windows = append(windows, tokens[start:start+windowSize])
	}
	return windows, nil
}

// WindowCount returns the number of windows Segment produces for n tokens:
// floor((n-w)/s)+1 full windows when n >= w, one short window when
// 0 < n < w, zero otherwise.
func WindowCount(n, windowSize, step int) int {
	switch {
	case n == 0:
		return 0
	case n < windowSize:
		return 1
	default:
		return (n-windowSize)/step + 1
	}
}
