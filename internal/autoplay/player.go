// Package autoplay plays the game without a human, for demos and soak tests
// of the persistence path.
package autoplay

import (
	"context"
	"errors"

	"github.com/tatianab/franco-game/internal/models"
	"github.com/tatianab/franco-game/internal/session"
)

// ErrStuck is returned when a player has no useful intent left.
var ErrStuck = errors.New("no way forward")

// Turn is what a player sees before choosing.
type Turn struct {
	Number     int
	State      models.GameState
	Room       models.Room
	Directions []models.Direction
	// History holds one line per earlier turn, oldest first.
	History []string
}

// Player chooses the next intent.
type Player interface {
	Next(ctx context.Context, turn Turn) (session.Intent, error)
}
