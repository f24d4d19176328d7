package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stixgraph/internal/config"
	"stixgraph/internal/logger"
	"stixgraph/internal/search"
	"stixgraph/internal/stixcore"
	"stixgraph/internal/storage"
	"stixgraph/internal/stream"
)

const (
	maxRetries = 10
	retryDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	fromKafka := flag.Bool("from-kafka", false, "consume objects from Kafka instead of reading the store")
	overwrite := flag.Bool("overwrite", false, "delete and recreate the index first")
	countOnly := flag.Bool("count", false, "print the number of indexed documents and exit")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With("component", "Indexer")

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	open := search.Open
	if *overwrite && !*countOnly {
		open = search.Recreate
	}
	index, err := open(cfg.IndexPath, log)
	if err != nil {
		log.Fatal("failed to open index", "error", err)
	}
	defer index.Close()

	if *countOnly {
		n, err := index.Count()
		if err != nil {
			log.Fatal("failed to count documents", "error", err)
		}
		log.Info("indexed documents", "index", cfg.IndexPath, "count", n)
		return
	}

	if *fromKafka {
		consume(cfg, index, log)
		return
	}

	store, err := openStore(cfg.DBPath, log)
	if err != nil {
		log.Fatal("failed to open store", "db", cfg.DBPath, "attempts", maxRetries, "error", err)
	}
	defer store.Close()

	objects, err := store.ListObjects("")
	if err != nil {
		log.Fatal("failed to list objects", "error", err)
	}
	log.Info("loaded objects from store", "count", len(objects))

	n, err := index.IndexObjects(objects)
	if err != nil {
		log.Fatal("indexing failed", "indexed", n, "error", err)
	}
	log.Info("indexing complete", "indexed", n)
}

// openStore retries while another process (the builder) holds the file lock.
func openStore(path string, log *logger.Logger) (*storage.Store, error) {
	var (
		store *storage.Store
		err   error
	)
	for i := 0; i < maxRetries; i++ {
		store, err = storage.Open(path)
		if err == nil {
			return store, nil
		}
		log.Warn("failed to open store, retrying", "attempt", i+1, "delay", retryDelay, "error", err)
		time.Sleep(retryDelay)
	}
	return nil, err
}

// consume indexes every object published to the configured topic until
// interrupted.
func consume(cfg *config.Config, index *search.Index, log *logger.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := stream.NewConsumer(cfg.Kafka.Broker, cfg.Kafka.Topic, cfg.Kafka.GroupID, log)
	defer consumer.Close()

	log.Info("consuming objects", "broker", cfg.Kafka.Broker, "topic", cfg.Kafka.Topic, "group", cfg.Kafka.GroupID)
	indexed := 0
	err := consumer.Run(ctx, func(o stixcore.Object) error {
		if err := index.IndexObject(o); err != nil {
			return err
		}
		indexed++
		return nil
	})
	if err != nil {
		log.Error("consumer failed", "error", err)
	}
	log.Info("indexer stopped", "indexed", indexed)
}
