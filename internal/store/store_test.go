package store

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikazzio/maxwell-demon/internal/analysis"
	"github.com/nikazzio/maxwell-demon/internal/tournament"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results", "maxwell.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndGetRun(t *testing.T) {
	s := openTestStore(t)

	run := &Run{
		Kind:                 "tournament",
		Mode:                 "diff",
		WindowSize:           50,
		Step:                 10,
		LogBase:              math.E,
		Compression:          "lzma",
		Tokenizer:            "legacy",
		PaisaFingerprint:     "aaaa",
		SyntheticFingerprint: "bbbb",
	}
	id, err := s.InsertRun(run)
	require.NoError(t, err)
	require.NotZero(t, id)

	got, err := s.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "tournament", got.Kind)
	assert.Equal(t, "diff", got.Mode)
	assert.Equal(t, 50, got.WindowSize)
	assert.Equal(t, "aaaa", got.PaisaFingerprint)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGetRunNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetRun(42)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWindowRecordsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertRun(&Run{Kind: "analyze", Mode: "raw", WindowSize: 10, Step: 5, LogBase: 2, Compression: "zlib", Tokenizer: "legacy"})
	require.NoError(t, err)

	records := []analysis.WindowRecord{
		{WindowID: 0, MeanEntropy: 1.5, EntropyVariance: 0.2, CompressionRatio: 0.8, UniqueRatio: 1.0},
		{WindowID: 1, MeanEntropy: 1.7, EntropyVariance: 0.1, CompressionRatio: 0.75, UniqueRatio: 0.9},
	}
	require.NoError(t, s.InsertWindowRecords(id, "doc.txt", "raw", records))

	got, err := s.WindowRecords(id)
	require.NoError(t, err)
	require.Contains(t, got, "doc.txt")
	assert.Equal(t, records, got["doc.txt"]["raw"])
}

func TestTournamentRecordsRoundTrip(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertRun(&Run{Kind: "tournament", Mode: "diff", WindowSize: 10, Step: 5, LogBase: 2, Compression: "lzma", Tokenizer: "legacy"})
	require.NoError(t, err)

	records := []tournament.Record{
		{Filename: "a.txt", WindowID: 0, Label: "human", DeltaH: -0.4, BurstinessPaisa: 0.05},
		{Filename: "a.txt", WindowID: 1, Label: "human", DeltaH: -0.3, BurstinessPaisa: 0.07},
		{Filename: "b.txt", WindowID: 0, Label: "ai", DeltaH: 0.6, BurstinessPaisa: 0.01},
	}
	require.NoError(t, s.InsertTournamentRecords(id, records))

	got, err := s.TournamentRecords(id)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestListRunsNewestFirst(t *testing.T) {
	s := openTestStore(t)

	base := Run{Kind: "analyze", Mode: "raw", WindowSize: 10, Step: 5, LogBase: 2, Compression: "gzip", Tokenizer: "legacy"}
	first := base
	second := base
	_, err := s.InsertRun(&first)
	require.NoError(t, err)
	_, err = s.InsertRun(&second)
	require.NoError(t, err)

	runs, err := s.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Greater(t, runs[0].ID, runs[1].ID)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "maxwell.db")

	s, err := Open(path)
	require.NoError(t, err)
	id, err := s.InsertRun(&Run{Kind: "analyze", Mode: "raw", WindowSize: 10, Step: 5, LogBase: 2, Compression: "bz2", Tokenizer: "legacy"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetRun(id)
	require.NoError(t, err)
	assert.Equal(t, "bz2", got.Compression)
}
