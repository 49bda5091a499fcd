package models

import (
	_ "embed"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed world.yaml
var defaultWorldYAML []byte

// ErrInvalidWorld is returned when a room graph fails validation.
var ErrInvalidWorld = errors.New("invalid world")

// World is the immutable room graph. Build one with ParseWorld or DefaultWorld.
type World struct {
	title string
	order []RoomID
	rooms map[RoomID]Room
}

type worldFile struct {
	Title string `yaml:"title"`
	Rooms []Room `yaml:"rooms"`
}

var defaultWorld = sync.OnceValues(func() (*World, error) {
	return ParseWorld(defaultWorldYAML)
})

// DefaultWorld returns the built-in world, parsed and validated once per process.
func DefaultWorld() (*World, error) {
	return defaultWorld()
}

// ParseWorld decodes a YAML room graph and validates it.
func ParseWorld(data []byte) (*World, error) {
	var f worldFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidWorld, err)
	}

	w := &World{
		title: f.Title,
		rooms: make(map[RoomID]Room, len(f.Rooms)),
	}
	for _, r := range f.Rooms {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: room without id", ErrInvalidWorld)
		}
		if !slices.Contains(AllRooms, r.ID) {
			return nil, fmt.Errorf("%w: unknown room id %q", ErrInvalidWorld, r.ID)
		}
		if _, dup := w.rooms[r.ID]; dup {
			return nil, fmt.Errorf("%w: room %q defined twice", ErrInvalidWorld, r.ID)
		}
		w.rooms[r.ID] = r
		w.order = append(w.order, r.ID)
	}

	for _, id := range AllRooms {
		if _, ok := w.rooms[id]; !ok {
			return nil, fmt.Errorf("%w: room %q is not defined", ErrInvalidWorld, id)
		}
	}

	if err := w.validate(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *World) validate() error {
	start, ok := w.rooms[StartRoom]
	if !ok {
		return fmt.Errorf("%w: start room %q not found", ErrInvalidWorld, StartRoom)
	}
	if start.Item != "" {
		return fmt.Errorf("%w: start room %q must be empty", ErrInvalidWorld, StartRoom)
	}

	placed := make(map[Item]RoomID)
	dangerRooms := 0
	for _, id := range w.order {
		r := w.rooms[id]
		if len(r.Exits) == 0 {
			return fmt.Errorf("%w: room %q has no exits", ErrInvalidWorld, id)
		}
		for dir, target := range r.Exits {
			if !slices.Contains(Directions, dir) {
				return fmt.Errorf("%w: room %q has unknown direction %q", ErrInvalidWorld, id, dir)
			}
			if _, ok := w.rooms[target]; !ok {
				return fmt.Errorf("%w: exit %s from %q leads to unknown room %q", ErrInvalidWorld, dir, id, target)
			}
		}

		switch {
		case r.Item == "":
		case r.Item == Franco:
			dangerRooms++
		case r.Item.IsCollectible():
			if other, dup := placed[r.Item]; dup {
				return fmt.Errorf("%w: item %s placed in both %q and %q", ErrInvalidWorld, r.Item, other, id)
			}
			placed[r.Item] = id
		default:
			return fmt.Errorf("%w: room %q has unknown item %q", ErrInvalidWorld, id, r.Item)
		}
	}

	if dangerRooms != 1 {
		return fmt.Errorf("%w: expected exactly one danger room, found %d", ErrInvalidWorld, dangerRooms)
	}
	for _, item := range AllItems {
		if _, ok := placed[item]; !ok {
			return fmt.Errorf("%w: item %s is not placed in any room", ErrInvalidWorld, item)
		}
	}
	return nil
}

// Title is the game's display name.
func (w *World) Title() string { return w.title }

// Room looks up a room by id. The returned room is a copy.
func (w *World) Room(id RoomID) (Room, bool) {
	r, ok := w.rooms[id]
	if !ok {
		return Room{}, false
	}
	r.Exits = maps.Clone(r.Exits)
	return r, true
}

// RoomIDs returns every room id in declaration order.
func (w *World) RoomIDs() []RoomID {
	return slices.Clone(w.order)
}

// DangerRoom returns the id of the room holding Franco.
func (w *World) DangerRoom() RoomID {
	for _, id := range w.order {
		if w.rooms[id].HasDanger() {
			return id
		}
	}
	return ""
}
