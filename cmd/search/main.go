package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stixgraph/internal/config"
	"stixgraph/internal/logger"
	"stixgraph/internal/search"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log = log.With("component", "SearchAPI")

	cfg, err := config.Load(*configPath, log)
	if err != nil {
		log.Fatal("failed to load config", "error", err)
	}

	index, err := search.Open(cfg.IndexPath, log)
	if err != nil {
		log.Fatal("failed to open index", "error", err)
	}
	defer index.Close()

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           search.NewServer(index, log).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}()

	log.Info("starting search API", "addr", cfg.ListenAddr, "index", cfg.IndexPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server failed", "error", err)
	}
	log.Info("search API stopped")
}
