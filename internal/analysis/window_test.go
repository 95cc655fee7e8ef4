package analysis

import (
	"errors"
	"fmt"
	"testing"
)

func TestSegment(t *testing.T) {
	tokens := func(n int) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = fmt.Sprintf("t%d", i)
		}
		return out
	}

	tests := []struct {
		name       string
		tokens     []string
		windowSize int
		step       int
		want       int
	}{
		{"empty input", nil, 5, 2, 0},
		{"shorter than window", tokens(3), 5, 2, 1},
		{"exact window", tokens(5), 5, 2, 1},
		{"overlapping stride", tokens(10), 5, 2, 3},
		{"unit stride", tokens(4), 2, 1, 3},
		{"stride larger than window", tokens(10), 2, 5, 2},
		{"trailing partial dropped", tokens(11), 5, 5, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			windows, err := Segment(tt.tokens, tt.windowSize, tt.step)
			if err != nil {
				t.Fatalf("Segment: %v", err)
			}
			if len(windows) != tt.want {
				t.Fatalf("got %d windows, want %d", len(windows), tt.want)
			}
			if got := WindowCount(len(tt.tokens), tt.windowSize, tt.step); got != tt.want {
				t.Errorf("WindowCount = %d, want %d", got, tt.want)
			}
			if len(tt.tokens) >= tt.windowSize {
				for i, win := range windows {
					if len(win) != tt.windowSize {
						t.Errorf("window %d has %d tokens, want %d", i, len(win), tt.windowSize)
					}
				}
			}
		})
	}
}

func TestSegmentShortDocumentPolicy(t *testing.T) {
	tokens := []string{"uno", "due", "tre"}
	windows, err := Segment(tokens, 10, 5)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	if len(windows[0]) != 3 {
		t.Fatalf("short window has %d tokens, want all 3", len(windows[0]))
	}
}

func TestSegmentBoundaries(t *testing.T) {
	tokens := []string{"uno", "due", "uno", "tre"}
	windows, err := Segment(tokens, 2, 1)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	want := [][]string{
		{"uno", "due"},
		{"due", "uno"},
		{"uno", "tre"},
	}
	if len(windows) != len(want) {
		t.Fatalf("got %d windows, want %d", len(windows), len(want))
	}
	for i := range want {
		for j := range want[i] {
			if windows[i][j] != want[i][j] {
				t.Errorf("window %d = %v, want %v", i, windows[i], want[i])
			}
		}
	}
}

func TestSegmentInvalidParameters(t *testing.T) {
	tests := []struct {
		name       string
		windowSize int
		step       int
	}{
		{"zero window", 0, 1},
		{"negative window", -3, 1},
		{"zero step", 5, 0},
		{"negative step", 5, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Segment([]string{"a", "b"}, tt.windowSize, tt.step)
			if !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

// The boundary law: floor((L-w)/s)+1 full windows for L >= w.
func TestWindowCountLaw(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 9, 10, 50, 51, 101} {
		for _, w := range []int{1, 2, 5, 10} {
			for _, s := range []int{1, 2, 5, 7} {
				tokens := make([]string, n)
				for i := range tokens {
					tokens[i] = "x"
				}
				windows, err := Segment(tokens, w, s)
				if err != nil {
					t.Fatalf("Segment(n=%d,w=%d,s=%d): %v", n, w, s, err)
				}
				var want int
				switch {
				case n == 0:
					want = 0
				case n < w:
					want = 1
				default:
					want = (n-w)/s + 1
				}
				if len(windows) != want {
					t.Errorf("n=%d w=%d s=%d: got %d windows, want %d", n, w, s, len(windows), want)
				}
			}
		}
	}
}
