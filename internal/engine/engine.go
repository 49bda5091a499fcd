package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tatianab/franco-game/internal/models"
)

var (
	// ErrIllegalMove is returned when the game is over or the room has no exit that way.
	ErrIllegalMove = errors.New("illegal move")
	// ErrIllegalCollect is returned when there is nothing collectible here.
	ErrIllegalCollect = errors.New("illegal collect")
	// ErrUnknownRoom is returned for room ids not in the world.
	ErrUnknownRoom = errors.New("unknown room")
	// ErrInvalidSnapshot is returned when persisted data cannot describe a game.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
)

// Engine applies the game rules to a GameState. It holds no mutable state.
type Engine struct {
	world *models.World
}

func NewEngine(world *models.World) *Engine {
	return &Engine{world: world}
}

// NewDefaultEngine builds an engine over the built-in world.
func NewDefaultEngine() (*Engine, error) {
	w, err := models.DefaultWorld()
	if err != nil {
		return nil, err
	}
	return NewEngine(w), nil
}

func (e *Engine) World() *models.World {
	return e.world
}

// Restart returns the state every new game starts in.
func (e *Engine) Restart() models.GameState {
	return models.GameState{CurrentRoom: models.StartRoom, Inventory: []models.Item{}}
}

// Move walks through the exit in direction dir. Entering the danger room ends the
// game as a loss no matter what the player holds.
func (e *Engine) Move(state models.GameState, dir models.Direction) (models.GameState, error) {
	if state.GameOver {
		return state, fmt.Errorf("%w: game is over", ErrIllegalMove)
	}
	room, err := e.DescribeRoom(state.CurrentRoom)
	if err != nil {
		return state, err
	}
	target, ok := room.Exits[dir]
	if !ok {
		return state, fmt.Errorf("%w: no exit %s from %s", ErrIllegalMove, dir, room.ID)
	}
	dest, err := e.DescribeRoom(target)
	if err != nil {
		return state, err
	}

	next := state.Clone()
	next.CurrentRoom = dest.ID
	if dest.HasDanger() {
		next.GameOver = true
		next.IsWin = false
	}
	return next, nil
}

// Collect picks up the item in the current room. Holding all six wins the game.
func (e *Engine) Collect(state models.GameState) (models.GameState, error) {
	if state.GameOver {
		return state, fmt.Errorf("%w: game is over", ErrIllegalCollect)
	}
	item, ok := e.CollectibleItem(state)
	if !ok {
		return state, fmt.Errorf("%w: nothing to collect in %s", ErrIllegalCollect, state.CurrentRoom)
	}

	next := state.Clone()
	next.Inventory = append(next.Inventory, item)
	if len(next.Inventory) == len(models.AllItems) {
		next.GameOver = true
		next.IsWin = true
	}
	return next, nil
}

// CollectibleItem reports the item Collect would pick up in the current room.
func (e *Engine) CollectibleItem(state models.GameState) (models.Item, bool) {
	room, ok := e.world.Room(state.CurrentRoom)
	if !ok || !room.Item.IsCollectible() || state.Has(room.Item) {
		return "", false
	}
	return room.Item, true
}

// AvailableDirections lists the exits of the current room in display order.
func (e *Engine) AvailableDirections(state models.GameState) []models.Direction {
	room, ok := e.world.Room(state.CurrentRoom)
	if !ok {
		return nil
	}
	var dirs []models.Direction
	for _, d := range models.Directions {
		if _, ok := room.Exits[d]; ok {
			dirs = append(dirs, d)
		}
	}
	return dirs
}

func (e *Engine) DescribeRoom(id models.RoomID) (models.Room, error) {
	room, ok := e.world.Room(id)
	if !ok {
		return models.Room{}, fmt.Errorf("%w: %q", ErrUnknownRoom, id)
	}
	return room, nil
}

// Snapshot reduces a state to what gets persisted.
func (e *Engine) Snapshot(state models.GameState) models.Snapshot {
	inv := make([]string, 0, len(state.Inventory))
	for _, item := range state.Inventory {
		inv = append(inv, string(item))
	}
	return models.Snapshot{CurrentRoom: string(state.CurrentRoom), Inventory: inv}
}

// Hydrate rebuilds a state from persisted data, which is not trusted.
func (e *Engine) Hydrate(snap models.Snapshot) (models.GameState, error) {
	room, err := e.DescribeRoom(models.RoomID(snap.CurrentRoom))
	if err != nil {
		return models.GameState{}, err
	}

	state := models.GameState{CurrentRoom: room.ID, Inventory: make([]models.Item, 0, len(snap.Inventory))}
	for _, name := range snap.Inventory {
		item := models.Item(name)
		if !item.IsCollectible() {
			return models.GameState{}, fmt.Errorf("%w: %q is not a collectible item", ErrInvalidSnapshot, name)
		}
		if slices.Contains(state.Inventory, item) {
			return models.GameState{}, fmt.Errorf("%w: %s held twice", ErrInvalidSnapshot, item)
		}
		state.Inventory = append(state.Inventory, item)
	}

	switch {
	case room.HasDanger():
		state.GameOver = true
	case len(state.Inventory) == len(models.AllItems):
		state.GameOver = true
		state.IsWin = true
	}
	return state, nil
}
