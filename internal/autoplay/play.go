package autoplay

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tatianab/franco-game/internal/models"
	"github.com/tatianab/franco-game/internal/session"
)

// TurnResult records one played turn.
type TurnResult struct {
	Number int
	Intent session.Intent
	State  models.GameState
	// Rejected is set when the engine refused the intent.
	Rejected error
	// PersistErr is set when the state could not be saved.
	PersistErr error
}

// Result sums up a finished run.
type Result struct {
	Turns int
	State models.GameState
}

func (r Result) Won() bool  { return r.State.GameOver && r.State.IsWin }
func (r Result) Lost() bool { return r.State.GameOver && !r.State.IsWin }

type PlayOptions struct {
	Session  *session.Session
	Player   Player
	MaxTurns int
	Logger   *zap.Logger
	// OnTurn, if set, is called after every turn.
	OnTurn func(TurnResult)
}

// Play resumes the session and lets the player act until the game ends or
// MaxTurns is reached. Every accepted intent is persisted.
func Play(ctx context.Context, opts PlayOptions) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	sess := opts.Session
	eng := sess.Engine()

	if err := sess.Resume(ctx); err != nil {
		logger.Warn("starting without saved game", zap.Error(err))
	}

	var history []string
	state := sess.State()
	turns := 0
	for turns < opts.MaxTurns && !state.GameOver {
		if err := ctx.Err(); err != nil {
			return Result{Turns: turns, State: state}, err
		}
		turns++

		room, err := eng.DescribeRoom(state.CurrentRoom)
		if err != nil {
			return Result{Turns: turns, State: state}, err
		}
		turn := Turn{
			Number:     turns,
			State:      state,
			Room:       room,
			Directions: eng.AvailableDirections(state),
			History:    history,
		}
		in, err := opts.Player.Next(ctx, turn)
		if err != nil {
			return Result{Turns: turns, State: state}, fmt.Errorf("turn %d: %w", turns, err)
		}

		res := TurnResult{Number: turns, Intent: in}
		cp, err := sess.Accept(in)
		next := cp.State
		if err != nil {
			res.Rejected = err
			res.State = state
			history = append(history, fmt.Sprintf("%s was refused: %v", DescribeIntent(in), err))
		} else {
			state = next
			res.State = next
			res.PersistErr = sess.Commit(ctx, cp)
			history = append(history, fmt.Sprintf("%s, now in %s with %d items", DescribeIntent(in), next.CurrentRoom, len(next.Inventory)))
		}
		if opts.OnTurn != nil {
			opts.OnTurn(res)
		}
	}

	logger.Info("simulation finished",
		zap.Int("turns", turns),
		zap.String("room", string(state.CurrentRoom)),
		zap.Int("items", len(state.Inventory)),
		zap.Bool("won", state.IsWin),
	)
	return Result{Turns: turns, State: state}, nil
}

// DescribeIntent names an intent for display.
func DescribeIntent(in session.Intent) string {
	switch in := in.(type) {
	case session.MoveIntent:
		return "went " + string(in.Direction)
	case session.CollectIntent:
		return "collected"
	case session.RestartIntent:
		return "restarted"
	default:
		return fmt.Sprintf("%T", in)
	}
}
