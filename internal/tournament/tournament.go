// Package tournament implements the dual-reference comparison protocol:
// every document is analyzed in diff mode against two competing reference
// models over one shared segmentation, and the window-aligned results are
// combined into a signed per-window delta and a burstiness signal.
package tournament

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/nikazzio/maxwell-demon/internal/analysis"
	"github.com/nikazzio/maxwell-demon/internal/corpus"
	"github.com/nikazzio/maxwell-demon/internal/refmodel"
	"github.com/nikazzio/maxwell-demon/internal/tokenizer"
)

// ErrWindowMismatch indicates that the two reference analyses of one
// document produced different window counts. Pairing is purely positional,
// so a mismatch is a fatal integrity failure for that document: the
// comparison aborts rather than truncating or padding.
var ErrWindowMismatch = errors.New("tournament: mismatched window counts between reference analyses")

// Reference names used throughout the tournament outputs.
const (
	RefPaisa     = "paisa"
	RefSynthetic = "synthetic"
)

// Document labels.
const (
	LabelHuman = "human"
	LabelAI    = "ai"
)

// Record is one window's tournament result. DeltaH is the difference in
// mean surprisal between the paisa (human-anchored) and synthetic
// (AI-anchored) references, exactly as computed; the sign convention for
// classification is a downstream policy (see the classify package) and is
// never flipped here.
type Record struct {
	Filename        string
	WindowID        int
	Label           string
	DeltaH          float64
	BurstinessPaisa float64
}

// DocumentError ties a per-document failure to its source.
type DocumentError struct {
	Path  string
	Label string
	Err   error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("tournament: %s document %s: %v", e.Label, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

// Config holds validated tournament parameters.
type Config struct {
	WindowSize  int
	Step        int
	LogBase     float64
	Compression string
	UnknownProb float64

	// Workers bounds document-level parallelism; 0 means GOMAXPROCS.
	Workers int

	// ContinueOnError keeps processing remaining documents when one
	// fails, reporting failures alongside the surviving records. When
	// false the first failing document (in input order) aborts the run.
	ContinueOnError bool
}

func (c Config) params() analysis.Params {
	return analysis.Params{
		Mode:        analysis.ModeDiff,
		WindowSize:  c.WindowSize,
		Step:        c.Step,
		LogBase:     c.LogBase,
		Compression: c.Compression,
		UnknownProb: c.UnknownProb,
	}
}

type document struct {
	path  string
	label string
}

// Run analyzes every human and AI document against both references and
// returns the concatenated per-window records: human documents first, then
// AI documents, each group in input order, windows in positional order.
// Documents are processed by a worker pool but the output order is
// independent of scheduling.
func Run(humanFiles, aiFiles []string, refPaisa, refSynthetic *refmodel.Table, tok tokenizer.Tokenizer, cfg Config) ([]Record, []*DocumentError, error) {
	if err := cfg.params().Validate(); err != nil {
		return nil, nil, err
	}
	if refPaisa == nil || refSynthetic == nil {
		return nil, nil, analysis.ErrMissingReference
	}

	docs := make([]document, 0, len(humanFiles)+len(aiFiles))
	for _, path := range humanFiles {
		docs = append(docs, document{path: path, label: LabelHuman})
	}
	for _, path := range aiFiles {
		docs = append(docs, document{path: path, label: LabelAI})
	}

	refs := map[string]*refmodel.Table{
		RefPaisa:     refPaisa,
		RefSynthetic: refSynthetic,
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(docs) {
		workers = len(docs)
	}

	type slot struct {
		records []Record
		err     error
	}
	slots := make([]slot, len(docs))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				records, err := analyzeDocument(docs[i], refs, tok, cfg.params())
				slots[i] = slot{records: records, err: err}
			}
		}()
	}
	for i := range docs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var out []Record
	var docErrs []*DocumentError
	for i, s := range slots {
		if s.err != nil {
			docErr := &DocumentError{Path: docs[i].path, Label: docs[i].label, Err: s.err}
			if !cfg.ContinueOnError {
				return nil, nil, docErr
			}
			docErrs = append(docErrs, docErr)
			continue
		}
		out = append(out, s.records...)
	}
	return out, docErrs, nil
}

func analyzeDocument(doc document, refs map[string]*refmodel.Table, tok tokenizer.Tokenizer, p analysis.Params) ([]Record, error) {
	text, err := corpus.ReadDocument(doc.path)
	if err != nil {
		return nil, err
	}

	byRef, err := analysis.AnalyzeBatch(tok.Tokenize(text), p, refs)
	if err != nil {
		return nil, err
	}
	return pairRecords(filepath.Base(doc.path), doc.label, byRef[RefPaisa], byRef[RefSynthetic])
}

// pairRecords combines the two window-aligned result streams positionally.
func pairRecords(filename, label string, paisa, synthetic []analysis.WindowRecord) ([]Record, error) {
	if len(paisa) != len(synthetic) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrWindowMismatch, len(paisa), len(synthetic))
	}

	records := make([]Record, 0, len(paisa))
	for i := range paisa {
		records = append(records, Record{
			Filename:        filename,
			WindowID:        paisa[i].WindowID,
			Label:           label,
			DeltaH:          paisa[i].MeanEntropy - synthetic[i].MeanEntropy,
			BurstinessPaisa: paisa[i].EntropyVariance,
		})
	}
	return records, nil
}
