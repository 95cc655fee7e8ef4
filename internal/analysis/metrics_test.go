package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/nikazzio/maxwell-demon/internal/refmodel"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestShannonEntropy(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		logBase float64
		want    float64
	}{
		{"empty window", nil, 2, 0},
		{"single repeated token", []string{"a", "a", "a", "a"}, 2, 0},
		{"two equiprobable tokens bits", []string{"a", "b"}, 2, 1.0},
		{"four equiprobable tokens bits", []string{"a", "b", "c", "d"}, 2, 2.0},
		{"two equiprobable tokens nats", []string{"a", "b"}, math.E, math.Ln2},
		{"skewed distribution", []string{"a", "a", "a", "b"}, 2, -(0.75*math.Log2(0.75) + 0.25*math.Log2(0.25))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ShannonEntropy(tt.tokens, tt.logBase)
			if err != nil {
				t.Fatalf("ShannonEntropy: %v", err)
			}
			if !approxEqual(got, tt.want, 1e-12) {
				t.Errorf("ShannonEntropy = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShannonEntropyNonNegative(t *testing.T) {
	windows := [][]string{
		{"a"},
		{"a", "b", "c"},
		{"x", "x", "y", "z", "z", "z"},
	}
	for _, base := range []float64{0.5, 2, math.E, 10} {
		for _, win := range windows {
			got, err := ShannonEntropy(win, base)
			if err != nil {
				t.Fatalf("ShannonEntropy(base=%v): %v", base, err)
			}
			if got < 0 {
				t.Errorf("entropy = %v for base %v, want >= 0", got, base)
			}
		}
	}
}

func TestInvalidLogBase(t *testing.T) {
	for _, base := range []float64{0, -2, 1} {
		if _, err := ShannonEntropy([]string{"a"}, base); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("ShannonEntropy(base=%v) err = %v, want ErrInvalidParameter", base, err)
		}
		if _, err := EntropyVariance([]string{"a"}, base); !errors.Is(err, ErrInvalidParameter) {
			t.Errorf("EntropyVariance(base=%v) err = %v, want ErrInvalidParameter", base, err)
		}
	}
}

// Reference table {"a":0.5,"b":0.3,"c":0.2}, window [a b c], log base 2:
// mean surprisal = mean(1.0, 1.737, 2.322) ~= 1.686.
func TestSurprisalStatsFixture(t *testing.T) {
	ref, err := refmodel.Parse([]byte(`{"a": 0.5, "b": 0.3, "c": 0.2}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	mean, variance, err := SurprisalStats([]string{"a", "b", "c"}, ref, 2, 1e-10)
	if err != nil {
		t.Fatalf("SurprisalStats: %v", err)
	}

	s := []float64{-math.Log2(0.5), -math.Log2(0.3), -math.Log2(0.2)}
	wantMean := (s[0] + s[1] + s[2]) / 3
	if !approxEqual(mean, wantMean, 1e-12) {
		t.Errorf("mean = %v, want %v", mean, wantMean)
	}
	if !approxEqual(mean, 1.686, 0.001) {
		t.Errorf("mean = %v, want ~1.686", mean)
	}

	var wantVar float64
	for _, v := range s {
		d := v - wantMean
		wantVar += d * d
	}
	wantVar /= 3
	if !approxEqual(variance, wantVar, 1e-12) {
		t.Errorf("variance = %v, want %v", variance, wantVar)
	}
}

func TestSurprisalUnknownTokenFloor(t *testing.T) {
	ref, err := refmodel.Parse([]byte(`{"known": 0.5}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	got, err := Surprisal("absent", ref, 2, 1e-10)
	if err != nil {
		t.Fatalf("Surprisal: %v", err)
	}
	want := -math.Log2(1e-10)
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("Surprisal = %v, want %v", got, want)
	}

	// The configured floor is used, not the clipping epsilon.
	got, err = Surprisal("absent", ref, 2, 1e-4)
	if err != nil {
		t.Fatalf("Surprisal: %v", err)
	}
	want = -math.Log2(1e-4)
	if !approxEqual(got, want, 1e-9) {
		t.Errorf("Surprisal = %v, want %v", got, want)
	}
}

// Mean and variance must come from the same clipped values: a reference
// probability above 1 is clipped to 1 for both.
func TestSurprisalClippingConsistency(t *testing.T) {
	ref, err := refmodel.Parse([]byte(`{"a": 1.5}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	mean, variance, err := SurprisalStats([]string{"a", "a", "a"}, ref, 2, 1e-10)
	if err != nil {
		t.Fatalf("SurprisalStats: %v", err)
	}
	if !approxEqual(mean, 0, 1e-12) {
		t.Errorf("mean = %v, want 0 (clipped to p=1)", mean)
	}
	if !approxEqual(variance, 0, 1e-12) {
		t.Errorf("variance = %v, want 0", variance)
	}
}

func TestEntropyVariance(t *testing.T) {
	// Uniform window: every token has the same self-information, so the
	// variance is exactly zero.
	v, err := EntropyVariance([]string{"a", "b", "c", "d"}, 2)
	if err != nil {
		t.Fatalf("EntropyVariance: %v", err)
	}
	if !approxEqual(v, 0, 1e-12) {
		t.Errorf("variance = %v, want 0 for uniform window", v)
	}

	// Skewed window: surprisal differs between frequent and rare tokens.
	v, err = EntropyVariance([]string{"a", "a", "a", "b"}, 2)
	if err != nil {
		t.Fatalf("EntropyVariance: %v", err)
	}
	sA := -math.Log2(0.75)
	sB := -math.Log2(0.25)
	mean := (3*sA + sB) / 4
	want := (3*(sA-mean)*(sA-mean) + (sB-mean)*(sB-mean)) / 4
	if !approxEqual(v, want, 1e-12) {
		t.Errorf("variance = %v, want %v", v, want)
	}

	// Empty window yields zero, no error.
	v, err = EntropyVariance(nil, 2)
	if err != nil || v != 0 {
		t.Errorf("EntropyVariance(empty) = %v, %v; want 0, nil", v, err)
	}
}

func TestUniqueRatio(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
		want   float64
	}{
		{"empty", nil, 0},
		{"all distinct", []string{"a", "b", "c"}, 1.0},
		{"all same", []string{"a", "a", "a", "a"}, 0.25},
		{"mixed", []string{"a", "b", "a", "c"}, 0.75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UniqueRatio(tt.tokens); !approxEqual(got, tt.want, 1e-12) {
				t.Errorf("UniqueRatio = %v, want %v", got, tt.want)
			}
		})
	}
}
