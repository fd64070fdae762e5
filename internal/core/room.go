package core

import "sync"

// member pairs the nickname captured at join time with the client's
// output sink. Keeping the pair in one list rules out the index skew
// that two parallel lists would allow.
type member struct {
	nick string
	out  chan string
}

// Room groups sessions that joined the same named channel. Rooms are
// created by the registry and live for the whole server process; a
// room with zero members stays joinable.
type Room struct {
	ID   int
	Name string

	mu      sync.Mutex
	members []member
}

// NewRoom constructs an empty room.
func NewRoom(id int, name string) *Room {
	return &Room{ID: id, Name: name}
}

// Join appends the (nickname, sink) pair. Returns false without
// changing anything when the nickname is already a member.
func (r *Room) Join(nick string, out chan string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.nick == nick {
			return false
		}
	}
	r.members = append(r.members, member{nick: nick, out: out})
	return true
}

// Leave removes the first pair matching the nickname and tells the
// remaining members. Returns false when the nickname is not a member.
func (r *Room) Leave(nick string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, m := range r.members {
		if m.nick == nick {
			r.members = append(r.members[:i], r.members[i+1:]...)
			r.broadcastLocked(nick + " has left the chat.")
			return true
		}
	}
	return false
}

// HasMember reports whether the nickname is currently a member.
func (r *Room) HasMember(nick string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.nick == nick {
			return true
		}
	}
	return false
}

// Len returns the current member count.
func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// Broadcast sends the line, prefixed with the room name, to every
// member. One call's deliveries are never interleaved with another's.
func (r *Room) Broadcast(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(line)
}

func (r *Room) broadcastLocked(line string) {
	msg := "[" + r.Name + "]" + line
	for _, m := range r.members {
		select {
		case m.out <- msg:
		default:
			// Skip full sinks; the rest still get the line.
		}
	}
}
