// Package session ties one player's game state to the world engine and the
// persistence gateway. Frontends turn input into intents and hand them here.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tatianab/franco-game/internal/engine"
	"github.com/tatianab/franco-game/internal/models"
)

// ErrNotResumed is returned by Apply until Resume has completed.
var ErrNotResumed = errors.New("session not resumed")

// Gateway is the persistence surface a session needs. Writes carry a
// position from Reserve; a write at an earlier position never replaces one at
// a later position.
type Gateway interface {
	Load(ctx context.Context, userID string) (*models.Snapshot, error)
	Reserve(userID string) uint64
	SaveAt(ctx context.Context, userID string, snap models.Snapshot, seq uint64) error
	DeleteAt(ctx context.Context, userID string, seq uint64) error
}

// Intent is a player action.
type Intent interface {
	intent()
}

type MoveIntent struct {
	Direction models.Direction
}

type CollectIntent struct{}

type RestartIntent struct{}

func (MoveIntent) intent()    {}
func (CollectIntent) intent() {}
func (RestartIntent) intent() {}

// Checkpoint is an accepted state and the write position it was given when
// the intent was accepted.
type Checkpoint struct {
	State    models.GameState
	Revision uint64
}

type Session struct {
	engine  *engine.Engine
	gateway Gateway
	userID  string
	logger  *zap.Logger

	mu       sync.Mutex
	state    models.GameState
	resumed  bool
	latest   Checkpoint
	stored   uint64
	inflight int
	idle     chan struct{}
}

func New(eng *engine.Engine, gateway Gateway, userID string, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		engine:  eng,
		gateway: gateway,
		userID:  userID,
		logger:  logger.With(zap.String("user_id", userID)),
		state:   eng.Restart(),
	}
}

// Resume loads the player's saved game. Without a save, or when loading
// fails, the game starts fresh; the failure is still returned so it can be
// shown to the player. Input is accepted once Resume returns.
func (s *Session) Resume(ctx context.Context) error {
	state := s.engine.Restart()
	var err error

	snap, loadErr := s.gateway.Load(ctx, s.userID)
	switch {
	case loadErr != nil:
		s.logger.Warn("could not load saved game, starting fresh", zap.Error(loadErr))
		err = loadErr
	case snap == nil:
		s.logger.Info("no saved game, starting fresh")
	default:
		hydrated, hydrateErr := s.engine.Hydrate(*snap)
		if hydrateErr != nil {
			s.logger.Warn("discarding unusable saved game", zap.Error(hydrateErr))
			err = fmt.Errorf("restoring saved game: %w", hydrateErr)
			break
		}
		state = hydrated
		s.logger.Info("resumed saved game",
			zap.String("room", string(state.CurrentRoom)),
			zap.Int("items", len(state.Inventory)),
		)
	}

	s.mu.Lock()
	s.state = state
	s.resumed = true
	s.mu.Unlock()
	return err
}

// Apply runs one intent against the current state. A rejected intent leaves
// the state untouched.
func (s *Session) Apply(in Intent) (models.GameState, error) {
	cp, err := s.Accept(in)
	return cp.State, err
}

// Accept is Apply that also returns the write position of the new state.
// Positions follow the order intents are accepted in, so committing
// checkpoints concurrently still leaves the newest one stored.
func (s *Session) Accept(in Intent) (Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.resumed {
		return Checkpoint{State: s.state.Clone()}, ErrNotResumed
	}

	var (
		next models.GameState
		err  error
	)
	switch in := in.(type) {
	case MoveIntent:
		next, err = s.engine.Move(s.state, in.Direction)
	case CollectIntent:
		next, err = s.engine.Collect(s.state)
	case RestartIntent:
		next = s.engine.Restart()
	default:
		err = fmt.Errorf("unknown intent %T", in)
	}
	if err != nil {
		return Checkpoint{State: s.state.Clone()}, err
	}

	s.state = next
	s.latest = Checkpoint{State: next, Revision: s.gateway.Reserve(s.userID)}
	s.logger.Debug("applied intent",
		zap.String("intent", fmt.Sprintf("%T", in)),
		zap.String("room", string(next.CurrentRoom)),
		zap.Int("items", len(next.Inventory)),
		zap.Bool("game_over", next.GameOver),
	)
	return Checkpoint{State: next.Clone(), Revision: s.latest.Revision}, nil
}

// Persist writes state for the player at a new position. A fresh game
// removes the stored one. Failures are logged and returned; the in-memory
// state is never rolled back.
func (s *Session) Persist(ctx context.Context, state models.GameState) error {
	return s.Commit(ctx, Checkpoint{State: state, Revision: s.gateway.Reserve(s.userID)})
}

// Commit writes a checkpoint from Accept. It is safe to call from several
// goroutines in any order.
func (s *Session) Commit(ctx context.Context, cp Checkpoint) error {
	s.begin()
	var err error
	defer func() { s.end(cp.Revision, err == nil) }()

	if cp.State.IsInitial() {
		err = s.gateway.DeleteAt(ctx, s.userID, cp.Revision)
	} else {
		err = s.gateway.SaveAt(ctx, s.userID, s.engine.Snapshot(cp.State), cp.Revision)
	}
	if err != nil {
		s.logger.Warn("could not persist game",
			zap.String("room", string(cp.State.CurrentRoom)),
			zap.Uint64("revision", cp.Revision),
			zap.Error(err),
		)
	}
	return err
}

// Settle waits for commits still running and then commits the latest
// accepted state if none of them stored it. It gives up when ctx is done.
func (s *Session) Settle(ctx context.Context) error {
	s.mu.Lock()
	var idle chan struct{}
	if s.inflight > 0 {
		if s.idle == nil {
			s.idle = make(chan struct{})
		}
		idle = s.idle
	}
	s.mu.Unlock()

	if idle != nil {
		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	s.mu.Lock()
	latest := s.latest
	pending := latest.Revision > s.stored
	s.mu.Unlock()

	if !pending {
		return nil
	}
	return s.Commit(ctx, Checkpoint{State: latest.State.Clone(), Revision: latest.Revision})
}

func (s *Session) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight++
}

func (s *Session) end(rev uint64, stored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stored {
		s.stored = max(s.stored, rev)
	}
	s.inflight--
	if s.inflight == 0 && s.idle != nil {
		close(s.idle)
		s.idle = nil
	}
}

// State returns a copy of the current state.
func (s *Session) State() models.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) UserID() string {
	return s.userID
}

func (s *Session) Engine() *engine.Engine {
	return s.engine
}
