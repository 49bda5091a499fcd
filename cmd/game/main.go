package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/tatianab/franco-game/internal/config"
	"github.com/tatianab/franco-game/internal/engine"
	"github.com/tatianab/franco-game/internal/observability"
	"github.com/tatianab/franco-game/internal/persistence"
	"github.com/tatianab/franco-game/internal/session"
	"github.com/tatianab/franco-game/internal/tui"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	listSaves := flag.Bool("list-saves", false, "list players with a local save and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *listSaves {
		users, err := persistence.NewFileStore(cfg.Persistence.SaveDir).ListUsers()
		if err != nil {
			fmt.Printf("Error listing saves: %v\n", err)
			os.Exit(1)
		}
		for _, u := range users {
			fmt.Println(u)
		}
		return
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	eng, err := engine.NewDefaultEngine()
	if err != nil {
		fmt.Printf("Error loading world: %v\n", err)
		os.Exit(1)
	}

	gateway, err := persistence.NewGatewayFromConfig(cfg.Persistence, logger)
	if err != nil {
		fmt.Printf("Error setting up persistence: %v\n", err)
		os.Exit(1)
	}
	go gateway.Run(ctx)

	userID, err := session.ResolveUserID(cfg.Player.UserID, filepath.Join(cfg.Persistence.SaveDir, "player"))
	if err != nil {
		fmt.Printf("Error resolving player: %v\n", err)
		os.Exit(1)
	}
	logger.Info("starting game", zap.String("user_id", userID), zap.String("backend", cfg.Persistence.Backend))

	sess := session.New(eng, gateway, userID, logger)
	if err := tui.Run(ctx, sess, cfg.Player.Name); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}

	// Saves started by the last keys may still be running.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sess.Settle(shutdownCtx); err != nil {
		logger.Warn("could not save the last move before exit", zap.Error(err))
	}
	if gateway.Pending() > 0 {
		gateway.Reconnect(shutdownCtx)
	}
}
