package core

import "sync"

// RoomRegistry owns every chat room, keyed by a monotonically
// increasing numeric id starting at 0. Ids are never reused and rooms
// are never destroyed, so the map only grows.
type RoomRegistry struct {
	mu     sync.Mutex
	rooms  map[int]*Room
	nextID int
}

// NewRoomRegistry builds an empty registry.
func NewRoomRegistry() *RoomRegistry {
	return &RoomRegistry{rooms: make(map[int]*Room)}
}

// Create allocates the next id and an empty room under it. The
// counter bump and the insertion share one critical section, so
// concurrent creates never collide on an id.
func (r *RoomRegistry) Create(name string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	room := NewRoom(r.nextID, name)
	r.rooms[r.nextID] = room
	r.nextID++
	return room
}

// Get looks up a room by id. A nil result is a normal outcome that
// callers are expected to handle.
func (r *RoomRegistry) Get(id int) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[id]
}

// Len returns the number of rooms ever created.
func (r *RoomRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
