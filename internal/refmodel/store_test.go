package refmodel

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	table, err := Build([]string{"uno", "due", "uno", "tre"}, 0.5)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "refs", "paisa.json")
	require.NoError(t, Save(table, path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, table.Tokens(), loaded.Tokens())
	assert.Equal(t, table.Marshal(), loaded.Marshal(), "round trip must be byte-identical")
	for _, tok := range table.Tokens() {
		want, _ := table.Prob(tok)
		got, ok := loaded.Prob(tok)
		require.True(t, ok, "token %q missing after load", tok)
		assert.InDelta(t, want, got, 0)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestParseRejectsMalformedBlobs(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"not json", "nope"},
		{"array", `["a", "b"]`},
		{"string value", `{"a": "0.5"}`},
		{"zero probability", `{"a": 0}`},
		{"negative probability", `{"a": -0.5}`},
		{"nested object", `{"a": {"p": 0.5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.blob))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedTable)
		})
	}
}

func TestParsePreservesFileOrder(t *testing.T) {
	blob := []byte(`{"zeta": 0.5, "alpha": 0.3, "mu": 0.2}`)
	table, err := Parse(blob)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "mu"}, table.Tokens())
}

func TestFingerprintStable(t *testing.T) {
	tokens := []string{"a", "b", "a", "c"}
	first, err := Build(tokens, 0)
	require.NoError(t, err)
	second, err := Build(tokens, 0)
	require.NoError(t, err)

	assert.Equal(t, first.Fingerprint(), second.Fingerprint())
	assert.Len(t, first.Fingerprint(), 64)

	smoothed, err := Build(tokens, 1)
	require.NoError(t, err)
	assert.NotEqual(t, first.Fingerprint(), smoothed.Fingerprint())
}
