package core

import "sync"

const outBufferSize = 32

// Session is a connected chat participant as seen by the core layer.
// The session goroutine owns the joined-room set exclusively; the
// nickname is read concurrently by registry lookups and is guarded.
type Session struct {
	ID  string
	Out chan string

	mu       sync.Mutex
	nickname string

	rooms map[int]struct{}
}

// NewSession constructs a session with an initialized output channel.
func NewSession(id string) *Session {
	return &Session{
		ID:    id,
		Out:   make(chan string, outBufferSize),
		rooms: make(map[int]struct{}),
	}
}

// Nickname returns the current nickname.
func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

// SetNickname replaces the nickname. Uniqueness is not enforced.
func (s *Session) SetNickname(name string) {
	s.mu.Lock()
	s.nickname = name
	s.mu.Unlock()
}

// Send queues a line for delivery to the client. The send never
// blocks; a slow or gone client simply stops receiving once its
// buffer fills.
func (s *Session) Send(line string) {
	select {
	case s.Out <- line:
	default:
	}
}

// MarkJoined records membership in a room. Owner goroutine only.
func (s *Session) MarkJoined(roomID int) {
	s.rooms[roomID] = struct{}{}
}

// MarkLeft removes a recorded membership. Owner goroutine only.
func (s *Session) MarkLeft(roomID int) {
	delete(s.rooms, roomID)
}

// InRoom reports whether the session has joined the room.
func (s *Session) InRoom(roomID int) bool {
	_, ok := s.rooms[roomID]
	return ok
}

// JoinedRooms returns a snapshot of the joined room ids.
func (s *Session) JoinedRooms() []int {
	ids := make([]int, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}
