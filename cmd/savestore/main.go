package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/franco-game/internal/config"
	"github.com/tatianab/franco-game/internal/engine"
	"github.com/tatianab/franco-game/internal/observability"
	"github.com/tatianab/franco-game/internal/savestore"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	allowOrigin := flag.String("allow-origin", "*", "value of Access-Control-Allow-Origin")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng, err := engine.NewDefaultEngine()
	if err != nil {
		logger.Fatal("loading world", zap.Error(err))
	}

	var repo savestore.Repository
	if cfg.SaveStore.Database == "" {
		logger.Info("keeping saves in memory")
		repo = savestore.NewMemoryRepository()
	} else {
		repo, err = savestore.NewSQLiteRepository(ctx, cfg.SaveStore.Database)
		if err != nil {
			logger.Fatal("opening database", zap.String("path", cfg.SaveStore.Database), zap.Error(err))
		}
	}
	defer repo.Close(context.Background())

	server := savestore.NewServer(savestore.NewServerOptions{
		Addr:        cfg.SaveStore.Addr,
		Repository:  repo,
		Engine:      eng,
		Logger:      logger,
		AllowOrigin: *allowOrigin,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("save store failed", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop save store", zap.Error(err))
		}
	}
}
