package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"stixgraph/internal/config"
	"stixgraph/internal/logger"
	"stixgraph/internal/stixcore"
	"stixgraph/internal/storage"
	"stixgraph/internal/workbook"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file")
		source     = flag.String("source", "", "workbook to convert (overrides config)")
		out        = flag.String("out", "", "output directory (overrides config)")
		schema     = flag.String("schema", "", "output schema: stix-2.0 or stix-2.1 (overrides config)")
		saveDB     = flag.Bool("db", false, "also save the bundle to the BoltDB store")
		matrixPath = flag.String("matrix", "", "write the markdown matrix to this file")
	)
	flag.Parse()

	bootLog, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	cfg, err := config.Load(*configPath, bootLog)
	if err != nil {
		bootLog.Fatal("failed to load config", "error", err)
	}
	if *source != "" {
		cfg.Source = *source
	}
	if *out != "" {
		cfg.OutputDir = *out
	}
	if *schema != "" {
		cfg.Schema = *schema
	}
	if err := cfg.Validate(); err != nil {
		bootLog.Fatal("invalid settings", "error", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		bootLog.Fatal("failed to build logger", "error", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	log.Info("converting workbook", "source", cfg.Source, "schema", cfg.Schema, "out", cfg.OutputDir)

	res, err := convert(ctx, cfg, log)
	if err != nil {
		log.Fatal("conversion failed", "error", err)
	}

	w := storage.DirWriter{Root: cfg.OutputDir}
	path, err := w.WriteAggregate(res.Bundle)
	if err != nil {
		log.Fatal("failed to write aggregate bundle", "error", err)
	}
	written, err := w.WriteObjects(res.Exporter.Split(res.Bundle))
	if err != nil {
		log.Fatal("failed to write object bundles", "written", written, "error", err)
	}
	log.Info("bundles written", "aggregate", path, "objects", written)

	if *saveDB {
		if err := saveBundle(cfg.DBPath, filepath.Base(filepath.Clean(cfg.OutputDir)), res.Bundle); err != nil {
			log.Fatal("failed to save bundle", "db", cfg.DBPath, "error", err)
		}
		log.Info("bundle saved", "db", cfg.DBPath)
	}

	if *matrixPath != "" {
		if err := writeMatrix(*matrixPath, res.Matrix); err != nil {
			log.Fatal("failed to write matrix", "path", *matrixPath, "error", err)
		}
		log.Info("matrix written", "path", *matrixPath, "tactics", len(res.Matrix.Columns))
	}

	log.Info("conversion complete",
		"tactics", res.Stats.Entities[stixcore.KindTactic],
		"techniques", res.Stats.Entities[stixcore.KindTechnique],
		"incidents", res.Stats.Entities[stixcore.KindIncident],
		"relationships", res.Stats.Link.Edges,
		"dropped_relationships", res.Stats.Unjoined+res.Stats.Link.Unresolved+res.Stats.Link.Ambiguous,
		"objects", res.Stats.Objects,
		"duration", time.Since(start),
	)
}

// convert reads the configured workbook and runs the pipeline over it.
func convert(ctx context.Context, cfg *config.Config, log *logger.Logger) (*stixcore.Result, error) {
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	tables, err := workbook.XLSX{Path: cfg.Source}.Tables(ctx)
	if err != nil {
		return nil, err
	}
	return stixcore.NewPipeline(opts, log).Run(tables)
}

func saveBundle(dbPath, name string, b *stixcore.Bundle) error {
	store, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.SaveBundle(name, b)
}

func writeMatrix(path string, m *stixcore.Matrix) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := m.WriteMarkdown(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
