// mdemon is the command-line interface for the maxwell-demon text
// metrics engine.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nikazzio/maxwell-demon/internal/config"
	"github.com/nikazzio/maxwell-demon/internal/logging"
	"github.com/nikazzio/maxwell-demon/internal/tokenizer"
)

var (
	configPath = flag.String("config", "", "path to config file")
	logLevel   = flag.String("log-level", "", "override log level (debug, info, warn, error)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	cfg := loadConfig()
	setupLogging(cfg)

	cmd := flag.Arg(0)
	args := flag.Args()[1:]

	var err error
	switch cmd {
	case "analyze":
		err = cmdAnalyze(cfg, args)
	case "tournament":
		err = cmdTournament(cfg, args)
	case "build-ref":
		err = cmdBuildRef(cfg, args)
	case "aggregate":
		err = cmdAggregate(cfg, args)
	case "runs":
		err = cmdRuns(cfg, args)
	case "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `mdemon - windowed text metrics and authorship comparison

Usage: mdemon [options] <command> [args]

Commands:
  analyze <path>       Compute windowed metrics for a file or corpus directory
  tournament           Compare human and AI corpora against dual references
  build-ref <path>...  Build a reference probability table from corpora
  aggregate <csv>...   Aggregate per-window records into summary statistics
  runs                 List recorded runs in the results store
  help                 Show this help message

Options:
  -config <path>     Path to config file (TOML, JSON, or YAML)
  -log-level <level> Override the configured log level`)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	format, err := logging.ParseFormat(cfg.Logging.Format)
	if err != nil {
		format = logging.FormatText
	}
	logger, err := logging.New(&logging.Config{
		Level:     level,
		Format:    format,
		Output:    cfg.Logging.Output,
		FilePath:  cfg.Logging.FilePath,
		Component: "mdemon",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
}

func newTokenizer(cfg *config.Config) (tokenizer.Tokenizer, error) {
	return tokenizer.New(tokenizer.Config{
		Method:             cfg.Tokenization.Method,
		EncodingName:       cfg.Tokenization.EncodingName,
		IncludePunctuation: cfg.Tokenization.IncludePunctuation,
	})
}
