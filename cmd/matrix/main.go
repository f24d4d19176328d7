package main

import (
	"context"
	"flag"
	"os"

	"stixgraph/internal/config"
	"stixgraph/internal/logger"
	"stixgraph/internal/stixcore"
	"stixgraph/internal/workbook"
)

// matrix converts the workbook in memory and prints the tactic-by-technique
// view as markdown.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	source := flag.String("source", "", "workbook to read (overrides config)")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}
	if *source != "" {
		cfg.Source = *source
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		log.Fatal("invalid settings", "error", err)
	}

	tables, err := workbook.XLSX{Path: cfg.Source}.Tables(context.Background())
	if err != nil {
		log.Fatal("failed to read workbook", "error", err)
	}
	res, err := stixcore.NewPipeline(opts, log).Run(tables)
	if err != nil {
		log.Fatal("conversion failed", "error", err)
	}
	if err := res.Matrix.WriteMarkdown(os.Stdout); err != nil {
		log.Fatal("failed to write matrix", "error", err)
	}
}
