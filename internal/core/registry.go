package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// DefaultCapacity is the connection limit used when none is configured.
const DefaultCapacity = 4

// ConnRegistry holds every admitted session and enforces the
// concurrent-connection capacity. Sessions are kept in admission
// order so that nickname lookups over duplicate nicknames stay
// deterministic (first admitted wins).
type ConnRegistry struct {
	mu       sync.Mutex
	capacity int
	sessions []*Session
	log      *zerolog.Logger
}

// NewConnRegistry builds a registry bounded by capacity.
func NewConnRegistry(capacity int, logger *zerolog.Logger) *ConnRegistry {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ConnRegistry{
		capacity: capacity,
		log:      logger,
	}
}

// TryAdmit registers the session if a slot is free. The count check
// and the insertion happen under one lock, so concurrent accepts can
// never overshoot the capacity.
func (r *ConnRegistry) TryAdmit(s *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.sessions) >= r.capacity {
		return false
	}
	r.sessions = append(r.sessions, s)
	r.log.Debug().Str("session_id", s.ID).Int("count", len(r.sessions)).Msg("session admitted")
	return true
}

// Remove deregisters the session by identity. Removing a session that
// is not registered is a no-op.
func (r *ConnRegistry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, cur := range r.sessions {
		if cur == s {
			r.sessions = append(r.sessions[:i], r.sessions[i+1:]...)
			r.log.Debug().Str("session_id", s.ID).Int("count", len(r.sessions)).Msg("session removed")
			return
		}
	}
}

// Len returns the number of admitted sessions.
func (r *ConnRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// BroadcastAll delivers the line to every admitted session, the
// sender included. Delivery runs under the registry lock so two
// broadcasts never interleave; a full sink is skipped without
// affecting the rest.
func (r *ConnRegistry) BroadcastAll(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		s.Send(line)
	}
}

// FindByNickname returns the first admitted session whose current
// nickname matches, or nil. Nicknames are not unique; first-match
// semantics are intentional.
func (r *ConnRegistry) FindByNickname(name string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Nickname() == name {
			return s
		}
	}
	return nil
}
