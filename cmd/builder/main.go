package main

import (
	"flag"
	"os"
	"path/filepath"
	"strings"

	"stixgraph/internal/config"
	"stixgraph/internal/logger"
	"stixgraph/internal/storage"
)

// builder loads an exported aggregate bundle into the BoltDB store.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	bundlePath := flag.String("bundle", "", "aggregate bundle to load (default: the configured output)")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With("component", "Builder")

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	path := *bundlePath
	if path == "" {
		path = storage.DirWriter{Root: cfg.OutputDir}.AggregatePath()
	}
	bundle, err := storage.ReadBundle(path)
	if err != nil {
		log.Fatal("failed to read bundle", "error", err)
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open store", "db", cfg.DBPath, "error", err)
	}
	defer store.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if err := store.SaveBundle(name, bundle); err != nil {
		log.Fatal("failed to save bundle", "error", err)
	}

	stats, err := store.Stats()
	if err != nil {
		log.Fatal("failed to read store stats", "error", err)
	}
	for typ, n := range stats {
		log.Info("stored objects", "type", typ, "count", n)
	}
	log.Info("bundle loaded", "bundle", name, "objects", len(bundle.Objects), "db", cfg.DBPath)
}
