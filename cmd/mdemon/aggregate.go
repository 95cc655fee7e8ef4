package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/nikazzio/maxwell-demon/internal/aggregate"
	"github.com/nikazzio/maxwell-demon/internal/config"
	"github.com/nikazzio/maxwell-demon/internal/logging"
)

func cmdAggregate(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("aggregate", flag.ExitOnError)
	out := fs.String("out", "", "output CSV path (required)")
	groupBy := fs.String("group-by", "", "comma-separated grouping columns (default filename,label,mode,reference)")
	metrics := fs.String("metrics", "", "comma-separated metric columns (default all known metrics present)")
	stats := fs.String("stats", "", "comma-separated statistics (default mean,median,std,min,max,p10,p25,p75,p90)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" || fs.NArg() < 1 {
		return fmt.Errorf("usage: mdemon aggregate -out <summary.csv> <records.csv>...")
	}

	frame, err := aggregate.LoadCSV(fs.Args())
	if err != nil {
		return err
	}

	result, err := aggregate.Run(frame, aggregate.Options{
		GroupBy: splitList(*groupBy),
		Metrics: splitList(*metrics),
		Stats:   splitList(*stats),
	})
	if err != nil {
		return err
	}

	for _, col := range result.IgnoredGroups {
		logging.Warn("grouping column missing from input", "column", col)
	}
	for _, col := range result.IgnoredMetrics {
		logging.Warn("metric column missing from input", "column", col)
	}

	if err := aggregate.WriteCSV(result.Frame, *out); err != nil {
		return err
	}
	logging.Info("aggregation complete",
		"inputs", fs.NArg(), "groups", len(result.Frame.Rows), "out", *out)
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
