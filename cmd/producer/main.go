package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"stixgraph/internal/config"
	"stixgraph/internal/logger"
	"stixgraph/internal/storage"
	"stixgraph/internal/stream"
)

// producer publishes every object of an aggregate bundle to Kafka.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	bundlePath := flag.String("bundle", "", "aggregate bundle to publish (default: the configured output)")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With("component", "Producer")

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	publisher := stream.NewPublisher(cfg.Kafka.Broker, cfg.Kafka.Topic, log)
	defer publisher.Close()

	log.Info("publishing bundle", "bundle", bundle.ID, "objects", len(bundle.Objects), "broker", cfg.Kafka.Broker, "topic", cfg.Kafka.Topic)
	if err := publisher.Publish(ctx, bundle.Objects); err != nil {
		log.Fatal("failed to publish objects", "error", err)
	}
	log.Info("finished publishing objects")
}
