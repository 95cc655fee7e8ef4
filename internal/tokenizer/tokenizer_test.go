package tokenizer

import (
	"errors"
	"reflect"
	"testing"
)

func TestLegacyTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "lowercases and splits",
			text: "Il Gatto DORME",
			want: []string{"il", "gatto", "dorme"},
		},
		{
			name: "strips punctuation",
			text: "ciao, mondo! come-va?",
			want: []string{"ciao", "mondo", "come", "va"},
		},
		{
			name: "collapses whitespace",
			text: "  uno \t due\n\ntre  ",
			want: []string{"uno", "due", "tre"},
		},
		{
			name: "keeps digits and underscores",
			text: "token_1 e token_2",
			want: []string{"token_1", "e", "token_2"},
		},
		{
			name: "unicode letters survive",
			text: "perché città è qui",
			want: []string{"perché", "città", "è", "qui"},
		},
		{
			name: "empty input",
			text: "",
			want: nil,
		},
		{
			name: "punctuation only",
			text: "?!... ---",
			want: nil,
		},
	}

	tok := NewLegacy()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tok.Tokenize(tt.text)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestNewSelectsStrategy(t *testing.T) {
	tok, err := New(Config{Method: MethodLegacy})
	if err != nil {
		t.Fatalf("New(legacy): %v", err)
	}
	if _, ok := tok.(*Legacy); !ok {
		t.Fatalf("New(legacy) returned %T", tok)
	}
}

func TestNewUnknownMethod(t *testing.T) {
	_, err := New(Config{Method: "whitespace"})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Fatalf("err = %v, want ErrUnknownMethod", err)
	}
}

// No fallback: a broken BPE encoding must surface, not silently degrade to
// the legacy strategy.
func TestNewFailsFastOnBadEncoding(t *testing.T) {
	_, err := New(Config{Method: MethodTiktoken, EncodingName: "no_such_encoding"})
	if err == nil {
		t.Fatal("expected error for unknown encoding, got nil")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Method != MethodLegacy {
		t.Errorf("default method = %q, want legacy", cfg.Method)
	}
	if cfg.EncodingName != "cl100k_base" {
		t.Errorf("default encoding = %q, want cl100k_base", cfg.EncodingName)
	}
	if !cfg.IncludePunctuation {
		t.Error("default include_punctuation = false, want true")
	}
}
