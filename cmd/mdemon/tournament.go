package main

import (
	"flag"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/nikazzio/maxwell-demon/internal/aggregate"
	"github.com/nikazzio/maxwell-demon/internal/classify"
	"github.com/nikazzio/maxwell-demon/internal/config"
	"github.com/nikazzio/maxwell-demon/internal/corpus"
	"github.com/nikazzio/maxwell-demon/internal/logging"
	"github.com/nikazzio/maxwell-demon/internal/refmodel"
	"github.com/nikazzio/maxwell-demon/internal/store"
	"github.com/nikazzio/maxwell-demon/internal/tournament"
)

var tournamentCSVColumns = []string{
	"filename", "label", "window_id", "delta_h", "burstiness_paisa",
}

func cmdTournament(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("tournament", flag.ExitOnError)
	humanDir := fs.String("human", "", "directory of human-authored documents")
	aiDir := fs.String("ai", "", "directory of AI-generated documents")
	paisaPath := fs.String("paisa", cfg.Reference.PaisaPath, "human-anchored reference table")
	syntheticPath := fs.String("synthetic", cfg.Reference.SyntheticPath, "AI-anchored reference table")
	window := fs.Int("window", cfg.Analysis.Window, "window size in tokens")
	step := fs.Int("step", cfg.Analysis.Step, "stride between window starts")
	logBase := fs.Float64("log-base", cfg.Analysis.LogBase, "logarithm base for surprisal")
	compression := fs.String("compression", cfg.Compression.Algorithm, "compression algorithm")
	workers := fs.Int("workers", cfg.Analysis.Workers, "document-level parallelism (0 = GOMAXPROCS)")
	keepGoing := fs.Bool("continue-on-error", false, "keep processing when a document fails")
	convention := fs.String("convention", "", "evaluate a sign rule: positive-is-human or negative-is-human")
	threshold := fs.Float64("threshold", 0, "decision threshold for the sign rule")
	out := fs.String("out", "", "output CSV path (default derived from output.data_dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *humanDir == "" || *aiDir == "" {
		return fmt.Errorf("usage: mdemon tournament -human <dir> -ai <dir> [options]")
	}
	if *paisaPath == "" || *syntheticPath == "" {
		return fmt.Errorf("tournament needs both -paisa and -synthetic reference tables")
	}

	humanFiles, err := corpus.Collect(*humanDir)
	if err != nil {
		return err
	}
	aiFiles, err := corpus.Collect(*aiDir)
	if err != nil {
		return err
	}

	refPaisa, err := refmodel.Load(*paisaPath)
	if err != nil {
		return err
	}
	refSynthetic, err := refmodel.Load(*syntheticPath)
	if err != nil {
		return err
	}

	tok, err := newTokenizer(cfg)
	if err != nil {
		return err
	}

	tcfg := tournament.Config{
		WindowSize:      *window,
		Step:            *step,
		LogBase:         *logBase,
		Compression:     *compression,
		UnknownProb:     cfg.Reference.UnknownProb,
		Workers:         *workers,
		ContinueOnError: *keepGoing,
	}

	records, failures, err := tournament.Run(humanFiles, aiFiles, refPaisa, refSynthetic, tok, tcfg)
	if err != nil {
		return err
	}
	for _, f := range failures {
		logging.Warn("document skipped", "path", f.Path, "label", f.Label, "err", f.Err)
	}

	frame := &aggregate.Frame{Columns: tournamentCSVColumns}
	for _, rec := range records {
		frame.Rows = append(frame.Rows, []string{
			rec.Filename, rec.Label,
			strconv.Itoa(rec.WindowID),
			formatMetric(rec.DeltaH),
			formatMetric(rec.BurstinessPaisa),
		})
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(dataDir(cfg, *humanDir), "tournament.csv")
	}
	if err := aggregate.WriteCSV(frame, outPath); err != nil {
		return err
	}
	logging.Info("tournament complete",
		"human_docs", len(humanFiles), "ai_docs", len(aiFiles),
		"windows", len(records), "skipped", len(failures), "out", outPath)

	if *convention != "" {
		if err := evaluateRule(records, *convention, *threshold); err != nil {
			return err
		}
	}

	if cfg.Storage.Enabled {
		if err := persistTournament(cfg, tcfg, refPaisa, refSynthetic, records); err != nil {
			return err
		}
	}
	return nil
}

func evaluateRule(records []tournament.Record, convention string, threshold float64) error {
	rule := classify.Rule{Threshold: threshold}
	switch convention {
	case "positive-is-human":
		rule.Convention = classify.PositiveIsHuman
	case "negative-is-human":
		rule.Convention = classify.NegativeIsHuman
	default:
		return fmt.Errorf("unknown convention %q (want positive-is-human or negative-is-human)", convention)
	}

	m, err := classify.Evaluate(records, rule)
	if err != nil {
		return err
	}
	fmt.Printf("Samples:   %d\n", m.Samples)
	fmt.Printf("Accuracy:  %.4f\n", m.Accuracy)
	fmt.Printf("Precision: %.4f\n", m.Precision)
	fmt.Printf("Recall:    %.4f\n", m.Recall)
	fmt.Printf("F1:        %.4f\n", m.F1)
	fmt.Printf("Confusion: TP=%d TN=%d FP=%d FN=%d\n",
		m.TruePositives, m.TrueNegatives, m.FalsePositives, m.FalseNegatives)
	return nil
}

func persistTournament(cfg *config.Config, tcfg tournament.Config, refPaisa, refSynthetic *refmodel.Table, records []tournament.Record) error {
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	runID, err := st.InsertRun(&store.Run{
		Kind:                 "tournament",
		Mode:                 "diff",
		WindowSize:           tcfg.WindowSize,
		Step:                 tcfg.Step,
		LogBase:              tcfg.LogBase,
		Compression:          tcfg.Compression,
		Tokenizer:            cfg.Tokenization.Method,
		PaisaFingerprint:     refPaisa.Fingerprint(),
		SyntheticFingerprint: refSynthetic.Fingerprint(),
	})
	if err != nil {
		return err
	}
	if err := st.InsertTournamentRecords(runID, records); err != nil {
		return err
	}
	logging.Info("run recorded", "run_id", runID, "db", cfg.Storage.Path)
	return nil
}
