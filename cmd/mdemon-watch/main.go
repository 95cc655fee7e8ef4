// mdemon-watch monitors corpus directories and recomputes windowed
// metrics whenever a document settles after a change.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/nikazzio/maxwell-demon/internal/aggregate"
	"github.com/nikazzio/maxwell-demon/internal/analysis"
	"github.com/nikazzio/maxwell-demon/internal/config"
	"github.com/nikazzio/maxwell-demon/internal/corpus"
	"github.com/nikazzio/maxwell-demon/internal/logging"
	"github.com/nikazzio/maxwell-demon/internal/refmodel"
	"github.com/nikazzio/maxwell-demon/internal/store"
	"github.com/nikazzio/maxwell-demon/internal/tokenizer"
)

var (
	configPath = flag.String("config", "", "path to config file")
	outDir     = flag.String("out", "", "output directory for per-document CSVs (default from output.data_dir)")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if len(cfg.Watch.Paths) == 0 && flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: mdemon-watch [options] [dir]...")
		fmt.Fprintln(os.Stderr, "Watch paths come from arguments or the [watch] config section.")
		os.Exit(1)
	}

	level, _ := logging.ParseLevel(cfg.Logging.Level)
	format, _ := logging.ParseFormat(cfg.Logging.Format)
	logger, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "mdemon-watch",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	if err := run(cfg); err != nil {
		logging.Error("watch failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	paths := cfg.Watch.Paths
	if flag.NArg() > 0 {
		paths = flag.Args()
	}

	params := analysis.Params{
		Mode:        analysis.Mode(cfg.Analysis.Mode),
		WindowSize:  cfg.Analysis.Window,
		Step:        cfg.Analysis.Step,
		LogBase:     cfg.Analysis.LogBase,
		Compression: cfg.Compression.Algorithm,
		UnknownProb: cfg.Reference.UnknownProb,
	}
	if err := params.Validate(); err != nil {
		return err
	}

	refs := map[string]*refmodel.Table{}
	if params.Mode == analysis.ModeDiff {
		var err error
		if refs, err = loadReferences(cfg); err != nil {
			return err
		}
	}

	tok, err := tokenizer.New(tokenizer.Config{
		Method:             cfg.Tokenization.Method,
		EncodingName:       cfg.Tokenization.EncodingName,
		IncludePunctuation: cfg.Tokenization.IncludePunctuation,
	})
	if err != nil {
		return err
	}

	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	watcher, err := corpus.NewWatcher(paths, cfg.Watch.IncludePatterns, debounce)
	if err != nil {
		return err
	}
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	var st *store.Store
	if cfg.Storage.Enabled {
		if st, err = store.Open(cfg.Storage.Path); err != nil {
			return err
		}
		defer st.Close()
	}

	logging.Info("watching corpora", "paths", paths, "mode", params.Mode, "debounce", debounce)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	for {
		select {
		case sig := <-sigChan:
			logging.Info("shutting down", "signal", sig.String())
			return nil
		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			logging.Warn("watch error", "err", err)
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if err := analyzeChanged(cfg, params, refs, tok, st, event); err != nil {
				logging.Warn("analysis failed", "path", event.Path, "err", err)
			}
		}
	}
}

func analyzeChanged(cfg *config.Config, params analysis.Params, refs map[string]*refmodel.Table, tok tokenizer.Tokenizer, st *store.Store, event corpus.ChangeEvent) error {
	text, err := corpus.ReadDocument(event.Path)
	if err != nil {
		return err
	}
	tokens := tok.Tokenize(text)

	byRef, err := analysis.AnalyzeBatch(tokens, params, refs)
	if err != nil {
		return err
	}

	name := filepath.Base(event.Path)
	frame := &aggregate.Frame{Columns: []string{
		"filename", "label", "mode", "reference", "window_id",
		"mean_entropy", "entropy_variance", "compression_ratio", "unique_ratio",
	}}
	refNames := make([]string, 0, len(byRef))
	for ref := range byRef {
		refNames = append(refNames, ref)
	}
	sort.Strings(refNames)
	for _, ref := range refNames {
		for _, rec := range byRef[ref] {
			frame.Rows = append(frame.Rows, []string{
				name, "", string(params.Mode), ref,
				strconv.Itoa(rec.WindowID),
				strconv.FormatFloat(rec.MeanEntropy, 'g', -1, 64),
				strconv.FormatFloat(rec.EntropyVariance, 'g', -1, 64),
				strconv.FormatFloat(rec.CompressionRatio, 'g', -1, 64),
				strconv.FormatFloat(rec.UniqueRatio, 'g', -1, 64),
			})
		}
	}

	dir := *outDir
	if dir == "" {
		dir = filepath.Join(filepath.Dir(event.Path), "mdemon-results")
	}
	outPath := filepath.Join(dir, name+".csv")
	if err := aggregate.WriteCSV(frame, outPath); err != nil {
		return err
	}

	logging.Info("document re-analyzed",
		"path", event.Path, "size", event.Size, "tokens", len(tokens), "out", outPath)

	if st != nil {
		if err := persistChange(cfg, params, refs, st, name, byRef); err != nil {
			return err
		}
	}
	return nil
}

func persistChange(cfg *config.Config, params analysis.Params, refs map[string]*refmodel.Table, st *store.Store, name string, byRef map[string][]analysis.WindowRecord) error {
	run := &store.Run{
		Kind:        "watch",
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
	refNames := make([]string, 0, len(byRef))
	for ref := range byRef {
		refNames = append(refNames, ref)
	}
	sort.Strings(refNames)
	for _, ref := range refNames {
		if err := st.InsertWindowRecords(runID, name, ref, byRef[ref]); err != nil {
			return err
		}
	}
	return nil
}

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
