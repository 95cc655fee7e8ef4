package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nikazzio/maxwell-demon/internal/aggregate"
	"github.com/nikazzio/maxwell-demon/internal/analysis"
	"github.com/nikazzio/maxwell-demon/internal/config"
	"github.com/nikazzio/maxwell-demon/internal/corpus"
	"github.com/nikazzio/maxwell-demon/internal/logging"
	"github.com/nikazzio/maxwell-demon/internal/refmodel"
	"github.com/nikazzio/maxwell-demon/internal/store"
)

// windowCSVColumns is the per-window record layout shared by analyze
// output and aggregate input.
var windowCSVColumns = []string{
	"filename", "label", "mode", "reference", "window_id",
	"mean_entropy", "entropy_variance", "compression_ratio", "unique_ratio",
}

func cmdAnalyze(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	mode := fs.String("mode", cfg.Analysis.Mode, "analysis mode: raw or diff")
	window := fs.Int("window", cfg.Analysis.Window, "window size in tokens")
	step := fs.Int("step", cfg.Analysis.Step, "stride between window starts")
	logBase := fs.Float64("log-base", cfg.Analysis.LogBase, "logarithm base for entropy")
	compression := fs.String("compression", cfg.Compression.Algorithm, "compression algorithm")
	label := fs.String("label", "", "label recorded with every row (e.g. human, ai)")
	humanOnly := fs.Bool("human-only", false, "in a dataset directory with human/ and ai/ subdirectories, analyze only human/")
	perFile := fs.Bool("per-file", false, "write one CSV per document instead of a combined file")
	out := fs.String("out", "", "output CSV path or directory (default derived from output.data_dir)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: mdemon analyze [options] <file-or-directory>")
	}
	input := fs.Arg(0)

	params := analysis.Params{
		Mode:        analysis.Mode(*mode),
		WindowSize:  *window,
		Step:        *step,
		LogBase:     *logBase,
		Compression: *compression,
		UnknownProb: cfg.Reference.UnknownProb,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	refs := map[string]*refmodel.Table{}
	if params.Mode == analysis.ModeDiff {
		var err error
		refs, err = loadReferences(cfg)
		if err != nil {
			return err
		}
	}

	groups, err := collectLabeled(input, *label, *humanOnly)
	if err != nil {
		return err
	}

	tok, err := newTokenizer(cfg)
	if err != nil {
		return err
	}

	frame := &aggregate.Frame{Columns: windowCSVColumns}
	docs := 0
	for _, g := range groups {
		for _, path := range g.files {
			text, err := corpus.ReadDocument(path)
			if err != nil {
				return err
			}
			tokens := tok.Tokenize(text)

			byRef, err := analysis.AnalyzeBatch(tokens, params, refs)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", path, err)
			}

			name := filepath.Base(path)
			for _, ref := range sortedKeys(byRef) {
				for _, rec := range byRef[ref] {
					frame.Rows = append(frame.Rows, []string{
						name, g.label, string(params.Mode), ref,
						strconv.Itoa(rec.WindowID),
						formatMetric(rec.MeanEntropy),
						formatMetric(rec.EntropyVariance),
						formatMetric(rec.CompressionRatio),
						formatMetric(rec.UniqueRatio),
					})
				}
			}
			docs++
			logging.Debug("analyzed document", "path", path, "label", g.label, "tokens", len(tokens))
		}
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(dataDir(cfg, input), "analysis.csv")
	}
	if *perFile {
		if err := writePerFile(frame, outPath); err != nil {
			return err
		}
	} else if err := aggregate.WriteCSV(frame, outPath); err != nil {
		return err
	}
	logging.Info("analysis complete", "documents", docs, "rows", len(frame.Rows), "out", outPath)

	if cfg.Storage.Enabled {
		if err := persistAnalysis(cfg, params, refs, frame); err != nil {
			return err
		}
	}
	return nil
}

// persistAnalysis records the run and its window records in the results
// store.
func persistAnalysis(cfg *config.Config, params analysis.Params, refs map[string]*refmodel.Table, frame *aggregate.Frame) error {
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	run := &store.Run{
		Kind:        "analyze",
		Mode:        string(params.Mode),
		WindowSize:  params.WindowSize,
		Step:        params.Step,
		LogBase:     params.LogBase,
		Compression: params.Compression,
		Tokenizer:   cfg.Tokenization.Method,
	}
	if t, ok := refs["paisa"]; ok {
		run.PaisaFingerprint = t.Fingerprint()
	}
	if t, ok := refs["synthetic"]; ok {
		run.SyntheticFingerprint = t.Fingerprint()
	}
	runID, err := st.InsertRun(run)
	if err != nil {
		return err
	}

	// Re-group the frame rows per document and reference.
	type key struct{ filename, reference string }
	groups := make(map[key][]analysis.WindowRecord)
	var order []key
	for _, row := range frame.Rows {
		k := key{row[0], row[3]}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		rec, err := parseWindowRow(row)
		if err != nil {
			return err
		}
		groups[k] = append(groups[k], rec)
	}
	for _, k := range order {
		if err := st.InsertWindowRecords(runID, k.filename, k.reference, groups[k]); err != nil {
			return err
		}
	}
	logging.Info("run recorded", "run_id", runID, "db", cfg.Storage.Path)
	return nil
}

func parseWindowRow(row []string) (analysis.WindowRecord, error) {
	var (
		rec analysis.WindowRecord
		err error
	)
	if rec.WindowID, err = strconv.Atoi(row[4]); err != nil {
		return rec, fmt.Errorf("bad window_id %q: %w", row[4], err)
	}
	fields := []*float64{&rec.MeanEntropy, &rec.EntropyVariance, &rec.CompressionRatio, &rec.UniqueRatio}
	for i, dst := range fields {
		if *dst, err = strconv.ParseFloat(row[5+i], 64); err != nil {
			return rec, fmt.Errorf("bad metric %q: %w", row[5+i], err)
		}
	}
	return rec, nil
}

type labeledFiles struct {
	label string
	files []string
}

// collectLabeled gathers input documents. A directory containing human/
// and ai/ subdirectories is treated as a labeled dataset; humanOnly
// restricts such a dataset to its human half. Any other path is a flat
// corpus carrying the explicit label.
func collectLabeled(input, label string, humanOnly bool) ([]labeledFiles, error) {
	humanDir := filepath.Join(input, "human")
	aiDir := filepath.Join(input, "ai")
	if isDir(humanDir) && isDir(aiDir) {
		humanFiles, err := corpus.Collect(humanDir)
		if err != nil {
			return nil, err
		}
		groups := []labeledFiles{{label: "human", files: humanFiles}}
		if !humanOnly {
			aiFiles, err := corpus.Collect(aiDir)
			if err != nil {
				return nil, err
			}
			groups = append(groups, labeledFiles{label: "ai", files: aiFiles})
		}
		return groups, nil
	}

	files, err := corpus.Collect(input)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no documents found under %s", input)
	}
	return []labeledFiles{{label: label, files: files}}, nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// writePerFile splits the combined frame into one CSV per document next
// to the combined output location.
func writePerFile(frame *aggregate.Frame, outPath string) error {
	dir := filepath.Dir(outPath)
	byFile := make(map[string]*aggregate.Frame)
	var order []string
	for _, row := range frame.Rows {
		name := row[0]
		if byFile[name] == nil {
			byFile[name] = &aggregate.Frame{Columns: frame.Columns}
			order = append(order, name)
		}
		byFile[name].Rows = append(byFile[name].Rows, row)
	}
	for _, name := range order {
		base := strings.TrimSuffix(name, filepath.Ext(name))
		if err := aggregate.WriteCSV(byFile[name], filepath.Join(dir, base+".csv")); err != nil {
			return err
		}
	}
	return nil
}

// loadReferences loads the configured reference tables. At least one must
// be configured for diff mode.
func loadReferences(cfg *config.Config) (map[string]*refmodel.Table, error) {
	refs := make(map[string]*refmodel.Table)
	if cfg.Reference.PaisaPath != "" {
		t, err := refmodel.Load(cfg.Reference.PaisaPath)
		if err != nil {
			return nil, err
		}
		refs["paisa"] = t
	}
	if cfg.Reference.SyntheticPath != "" {
		t, err := refmodel.Load(cfg.Reference.SyntheticPath)
		if err != nil {
			return nil, err
		}
		refs["synthetic"] = t
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("diff mode needs reference.paisa_path or reference.synthetic_path")
	}
	return refs, nil
}

// dataDir resolves the output directory template against a dataset name
// derived from the input path.
func dataDir(cfg *config.Config, input string) string {
	dataset := strings.TrimSuffix(filepath.Base(filepath.Clean(input)), filepath.Ext(input))
	return strings.ReplaceAll(cfg.Output.DataDir, "{dataset}", dataset)
}

func formatMetric(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
