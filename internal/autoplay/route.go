package autoplay

import (
	"context"
	"fmt"

	"github.com/tatianab/franco-game/internal/engine"
	"github.com/tatianab/franco-game/internal/models"
	"github.com/tatianab/franco-game/internal/session"
)

// RoutePlayer walks the shortest safe path to the nearest item it still
// needs and picks it up. It never enters the danger room.
type RoutePlayer struct {
	engine *engine.Engine
}

func NewRoutePlayer(eng *engine.Engine) *RoutePlayer {
	return &RoutePlayer{engine: eng}
}

func (p *RoutePlayer) Next(_ context.Context, turn Turn) (session.Intent, error) {
	if turn.State.GameOver {
		return nil, fmt.Errorf("%w: game is over", ErrStuck)
	}
	if _, ok := p.engine.CollectibleItem(turn.State); ok {
		return session.CollectIntent{}, nil
	}
	dir, ok := p.firstStep(turn.State)
	if !ok {
		return nil, fmt.Errorf("%w: no reachable item from %s", ErrStuck, turn.State.CurrentRoom)
	}
	return session.MoveIntent{Direction: dir}, nil
}

// firstStep runs a breadth-first search from the current room and returns the
// first move towards the closest room holding an item not yet collected.
func (p *RoutePlayer) firstStep(state models.GameState) (models.Direction, bool) {
	world := p.engine.World()
	danger := world.DangerRoom()

	type node struct {
		room  models.RoomID
		first models.Direction
	}
	seen := map[models.RoomID]bool{state.CurrentRoom: true}
	queue := []node{}

	start, ok := world.Room(state.CurrentRoom)
	if !ok {
		return "", false
	}
	for _, dir := range models.Directions {
		next, ok := start.Exits[dir]
		if !ok || next == danger || seen[next] {
			continue
		}
		seen[next] = true
		queue = append(queue, node{room: next, first: dir})
	}

	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		room, ok := world.Room(n.room)
		if !ok {
			continue
		}
		if room.Item.IsCollectible() && !state.Has(room.Item) {
			return n.first, true
		}
		for _, dir := range models.Directions {
			next, ok := room.Exits[dir]
			if !ok || next == danger || seen[next] {
				continue
			}
			seen[next] = true
			queue = append(queue, node{room: next, first: n.first})
		}
	}
	return "", false
}
