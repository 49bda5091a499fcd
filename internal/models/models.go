package models

import (
	"fmt"
	"slices"
	"strings"
)

// Direction is a compass direction an exit can lead in.
type Direction string

const (
	North Direction = "North"
	South Direction = "South"
	East  Direction = "East"
	West  Direction = "West"
)

// Directions lists every direction in display order.
var Directions = []Direction{North, South, East, West}

// ParseDirection accepts a direction name in any case, or its first letter.
func ParseDirection(s string) (Direction, error) {
	s = strings.TrimSpace(s)
	for _, d := range Directions {
		if strings.EqualFold(s, string(d)) || strings.EqualFold(s, string(d)[:1]) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown direction %q", s)
}

// Item is something that can sit in a room.
type Item string

const (
	Chocolate Item = "Chocolate"
	Cracker   Item = "Cracker"
	Steak     Item = "Steak"
	Tomato    Item = "Tomato"
	Water     Item = "Water"
	Potato    Item = "Potato"

	// Franco is not collectible: the room holding him ends the game on entry.
	Franco Item = "Franco"
)

// AllItems lists the collectible items in canonical order.
var AllItems = []Item{Chocolate, Cracker, Steak, Tomato, Water, Potato}

// IsCollectible reports whether i is one of the six food items.
func (i Item) IsCollectible() bool {
	return slices.Contains(AllItems, i)
}

// RoomID names a room in the world.
type RoomID string

const (
	Lobby          RoomID = "Lobby"
	DirectorOffice RoomID = "Director office"
	Daycare        RoomID = "Daycare"
	DeepFreezer    RoomID = "Deep Freezer"
	Greenhouse     RoomID = "Greenhouse"
	Garage         RoomID = "Garage"
	Lounge         RoomID = "Lounge"
	StorageRoom    RoomID = "Storage Room"
)

// AllRooms lists every room a world must define.
var AllRooms = []RoomID{Lobby, DirectorOffice, Daycare, DeepFreezer, Greenhouse, Garage, Lounge, StorageRoom}

// Room is a location in the world.
type Room struct {
	ID          RoomID               `yaml:"id"`
	Exits       map[Direction]RoomID `yaml:"exits"`
	Item        Item                 `yaml:"item,omitempty"`
	Description string               `yaml:"description"`
}

// HasDanger reports whether entering the room ends the game.
func (r Room) HasDanger() bool {
	return r.Item == Franco
}

// GameState is the player's progress. It is a value: transitions return a new one.
type GameState struct {
	CurrentRoom RoomID `yaml:"current_room"`
	Inventory   []Item `yaml:"inventory"`
	GameOver    bool   `yaml:"game_over"`
	IsWin       bool   `yaml:"is_win"`
}

// Has reports whether item is in the inventory.
func (s GameState) Has(item Item) bool {
	return slices.Contains(s.Inventory, item)
}

// IsInitial reports whether s is the state a fresh game starts in.
func (s GameState) IsInitial() bool {
	return s.CurrentRoom == StartRoom && len(s.Inventory) == 0 && !s.GameOver && !s.IsWin
}

// Clone returns a copy that shares no memory with s.
func (s GameState) Clone() GameState {
	s.Inventory = slices.Clone(s.Inventory)
	return s
}

// StartRoom is where every new game begins.
const StartRoom = Lobby

// Snapshot is the persisted part of a GameState. Derived flags are not stored.
type Snapshot struct {
	CurrentRoom string   `json:"currentRoom" yaml:"current_room"`
	Inventory   []string `json:"inventory" yaml:"inventory"`
}
