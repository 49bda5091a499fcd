package models

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultWorld(t *testing.T) {
	w, err := DefaultWorld()
	require.NoError(t, err)

	assert.Equal(t, "Defeating Franco the Food Monster", w.Title())
	assert.Len(t, w.RoomIDs(), 8)
	assert.Equal(t, Garage, w.DangerRoom())

	lobby, ok := w.Room(Lobby)
	require.True(t, ok)
	assert.Empty(t, lobby.Item)
	assert.Equal(t, DirectorOffice, lobby.Exits[East])
	assert.Equal(t, Daycare, lobby.Exits[South])
}

func TestDefaultWorldHasNoDanglingExits(t *testing.T) {
	w, err := DefaultWorld()
	require.NoError(t, err)

	for _, id := range w.RoomIDs() {
		r, ok := w.Room(id)
		require.True(t, ok)
		assert.NotEmpty(t, r.Exits, "room %q has no exits", id)
		for dir, target := range r.Exits {
			_, ok := w.Room(target)
			assert.True(t, ok, "exit %s from %q leads to unknown room %q", dir, id, target)
		}
	}
}

func TestDefaultWorldPlacesEveryItemOnce(t *testing.T) {
	w, err := DefaultWorld()
	require.NoError(t, err)

	counts := map[Item]int{}
	for _, id := range w.RoomIDs() {
		r, _ := w.Room(id)
		if r.Item != "" {
			counts[r.Item]++
		}
	}
	for _, item := range AllItems {
		assert.Equal(t, 1, counts[item], "item %s", item)
	}
	assert.Equal(t, 1, counts[Franco])
}

func TestRoomReturnsCopy(t *testing.T) {
	w, err := DefaultWorld()
	require.NoError(t, err)

	r, _ := w.Room(Lobby)
	r.Exits[North] = Garage

	again, _ := w.Room(Lobby)
	_, ok := again.Exits[North]
	assert.False(t, ok)
}

func TestParseWorldRejects(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *worldFile)
		message string
	}{
		{
			name:   "dangling exit",
			mutate: func(f *worldFile) { roomIn(f, Lounge).Exits[East] = "Nowhere" },
		},
		{
			name:    "duplicate item",
			mutate:  func(f *worldFile) { roomIn(f, DirectorOffice).Item = Cracker },
			message: "placed in both",
		},
		{
			name:   "unknown direction",
			mutate: func(f *worldFile) { roomIn(f, Lobby).Exits["Up"] = Lounge },
		},
		{
			name:    "item in start room",
			mutate:  func(f *worldFile) { roomIn(f, Lobby).Item = Water },
			message: "must be empty",
		},
		{
			name:    "unknown room id",
			mutate:  func(f *worldFile) { roomIn(f, Daycare).ID = "Pantry" },
			message: `"Pantry"`,
		},
		{
			name:    "missing room",
			mutate:  func(f *worldFile) { dropRoom(f, StorageRoom) },
			message: `"Storage Room" is not defined`,
		},
		{
			name:    "room defined twice",
			mutate:  func(f *worldFile) { f.Rooms = append(f.Rooms, *roomIn(f, Lounge)) },
			message: "defined twice",
		},
		{
			name:   "second danger room",
			mutate: func(f *worldFile) { roomIn(f, Lounge).Item = Franco },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultWorldFile(t)
			tt.mutate(&f)

			_, err := ParseWorld(encodeWorld(t, f))
			require.ErrorIs(t, err, ErrInvalidWorld)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}

	_, err := ParseWorld([]byte("rooms: ["))
	assert.ErrorIs(t, err, ErrInvalidWorld)
}

func TestParseWorldAcceptsAsymmetricExits(t *testing.T) {
	f := defaultWorldFile(t)
	delete(roomIn(&f, DirectorOffice).Exits, West)

	w, err := ParseWorld(encodeWorld(t, f))
	require.NoError(t, err)

	office, _ := w.Room(DirectorOffice)
	_, back := office.Exits[West]
	assert.False(t, back)
	lobby, _ := w.Room(Lobby)
	assert.Equal(t, DirectorOffice, lobby.Exits[East])
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{
		"North": North,
		"south": South,
		"E":     East,
		" w ":   West,
	} {
		got, err := ParseDirection(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDirection("up")
	assert.Error(t, err)
}

func TestGameStateHelpers(t *testing.T) {
	s := GameState{CurrentRoom: Lobby}
	assert.True(t, s.IsInitial())

	s.Inventory = []Item{Steak}
	assert.False(t, s.IsInitial())
	assert.True(t, s.Has(Steak))
	assert.False(t, s.Has(Water))

	c := s.Clone()
	c.Inventory[0] = Water
	assert.Equal(t, Steak, s.Inventory[0])
}

func TestSnapshotYAML(t *testing.T) {
	data, err := yaml.Marshal(Snapshot{CurrentRoom: "Lounge", Inventory: []string{"Chocolate", "Water"}})
	require.NoError(t, err)
	assert.Contains(t, string(data), "current_room: Lounge")
}

func defaultWorldFile(t *testing.T) worldFile {
	t.Helper()
	var f worldFile
	require.NoError(t, yaml.Unmarshal(defaultWorldYAML, &f))
	return f
}

func encodeWorld(t *testing.T, f worldFile) []byte {
	t.Helper()
	data, err := yaml.Marshal(f)
	require.NoError(t, err)
	return data
}

func roomIn(f *worldFile, id RoomID) *Room {
	for i := range f.Rooms {
		if f.Rooms[i].ID == id {
			return &f.Rooms[i]
		}
	}
	panic("no room " + string(id))
}

func dropRoom(f *worldFile, id RoomID) {
	f.Rooms = slices.DeleteFunc(f.Rooms, func(r Room) bool { return r.ID == id })
}
