package main

import (
	"flag"
	"fmt"

	"github.com/nikazzio/maxwell-demon/internal/config"
	"github.com/nikazzio/maxwell-demon/internal/corpus"
	"github.com/nikazzio/maxwell-demon/internal/logging"
	"github.com/nikazzio/maxwell-demon/internal/refmodel"
)

func cmdBuildRef(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("build-ref", flag.ExitOnError)
	out := fs.String("out", "", "output reference table path (required)")
	smoothingK := fs.Float64("smoothing-k", cfg.Reference.SmoothingK, "add-k smoothing constant")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("usage: mdemon build-ref -out <table.json> <file-or-directory>...")
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("build-ref needs at least one corpus path")
	}

	tok, err := newTokenizer(cfg)
	if err != nil {
		return err
	}

	var tokens []string
	var docs int
	for _, root := range fs.Args() {
		files, err := corpus.Collect(root)
		if err != nil {
			return err
		}
		for _, path := range files {
			text, err := corpus.ReadDocument(path)
			if err != nil {
				return err
			}
			tokens = append(tokens, tok.Tokenize(text)...)
			docs++
		}
	}
	if len(tokens) == 0 {
		return fmt.Errorf("no tokens found in the given corpora")
	}

	table, err := refmodel.Build(tokens, *smoothingK)
	if err != nil {
		return err
	}
	if err := refmodel.Save(table, *out); err != nil {
		return err
	}

	logging.Info("reference table built",
		"documents", docs, "tokens", len(tokens), "vocabulary", table.Len(), "out", *out)
	fmt.Printf("Documents:   %d\n", docs)
	fmt.Printf("Tokens:      %d\n", len(tokens))
	fmt.Printf("Vocabulary:  %d\n", table.Len())
	fmt.Printf("Fingerprint: %s\n", table.Fingerprint())
	return nil
}
