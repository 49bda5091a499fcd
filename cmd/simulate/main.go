package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/tatianab/franco-game/internal/autoplay"
	"github.com/tatianab/franco-game/internal/config"
	"github.com/tatianab/franco-game/internal/engine"
	"github.com/tatianab/franco-game/internal/observability"
	"github.com/tatianab/franco-game/internal/persistence"
	"github.com/tatianab/franco-game/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	eng, err := engine.NewDefaultEngine()
	if err != nil {
		log.Fatalf("Failed to load world: %v", err)
	}

	gateway, err := persistence.NewGatewayFromConfig(cfg.Persistence, logger)
	if err != nil {
		log.Fatalf("Failed to set up persistence: %v", err)
	}
	go gateway.Run(ctx)

	// A fresh player per run unless one is configured.
	userID := cfg.Player.UserID
	if userID == "" {
		userID = session.NewUserID()
	}
	sess := session.New(eng, gateway, userID, logger)

	var player autoplay.Player = autoplay.NewRoutePlayer(eng)
	if cfg.Simulate.Player == "gemini" {
		gp, err := autoplay.NewGeminiPlayer(ctx, autoplay.NewGeminiPlayerOptions{
			APIKey:   cfg.Gemini.APIKey,
			Model:    cfg.Gemini.Model,
			Fallback: player,
			Logger:   logger,
		})
		if err != nil {
			log.Fatalf("Failed to create player: %v", err)
		}
		defer gp.Close()
		player = gp
	}

	fmt.Printf("--- %s ---\n", eng.World().Title())
	fmt.Printf("Player: %s (%s)\n\n", userID, cfg.Simulate.Player)

	res, err := autoplay.Play(ctx, autoplay.PlayOptions{
		Session:  sess,
		Player:   player,
		MaxTurns: cfg.Simulate.MaxTurns,
		Logger:   logger,
		OnTurn: func(t autoplay.TurnResult) {
			fmt.Printf("--- Turn %d ---\n", t.Number)
			fmt.Printf("Player Action: %s\n", autoplay.DescribeIntent(t.Intent))
			if t.Rejected != nil {
				fmt.Printf("Refused: %v\n", t.Rejected)
			}
			if t.PersistErr != nil {
				fmt.Printf("Save failed: %v\n", t.PersistErr)
			}
			fmt.Printf("Room: %s, Inventory: %v\n\n", t.State.CurrentRoom, t.State.Inventory)
		},
	})
	if err != nil {
		logger.Error("simulation stopped", zap.Error(err))
		fmt.Printf("Simulation stopped: %v\n", err)
	}

	if failed := gateway.Flush(context.Background()); failed > 0 {
		fmt.Printf("%d queued saves could not be delivered\n", failed)
	}

	switch {
	case res.Won():
		fmt.Printf("Game Ended: Player Won in %d turns!\n", res.Turns)
	case res.Lost():
		fmt.Printf("Game Ended: Player Lost in %d turns!\n", res.Turns)
	default:
		fmt.Printf("Game Ended: out of turns after %d.\n", res.Turns)
	}
}
