package tcp

import (
	"errors"
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vkurochkin/linechat-server/internal/core"
	"github.com/vkurochkin/linechat-server/internal/metrics"
)

const capacityReply = "Server full at this time, try again later."

// Server accepts TCP connections and runs one session goroutine per
// admitted client. Admission is decided at accept time, before the
// nickname handshake; a rejected socket gets a single line and is
// closed without ever being registered.
type Server struct {
	addr   string
	conns  *core.ConnRegistry
	rooms  *core.RoomRegistry
	log    *zerolog.Logger
	router *router

	mu       sync.Mutex
	listener net.Listener
	open     map[net.Conn]struct{}

	wg sync.WaitGroup
}

// NewServer builds a server over the shared registries.
func NewServer(addr string, conns *core.ConnRegistry, rooms *core.RoomRegistry, logger *zerolog.Logger) *Server {
	return &Server{
		addr:   addr,
		conns:  conns,
		rooms:  rooms,
		log:    logger,
		router: newRouter(conns, rooms, logger),
		open:   make(map[net.Conn]struct{}),
	}
}

// Listen binds the listening socket. A bind failure is fatal to the
// whole server and is returned to the caller.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	return nil
}

// Addr returns the bound address. Valid after Listen.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve runs the accept loop until the listener fails or Shutdown
// closes it. Returns nil on a clean close.
func (s *Server) Serve() error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		sess := core.NewSession(uuid.NewString())
		if !s.conns.TryAdmit(sess) {
			metrics.RejectedConnections.Inc()
			s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("connection rejected, server full")
			_, _ = conn.Write([]byte(capacityReply + "\n"))
			_ = conn.Close()
			continue
		}
		metrics.ConnectedClients.Set(float64(s.conns.Len()))

		s.track(conn)
		s.wg.Add(1)
		go s.handleConn(conn, sess)
	}
}

// Shutdown stops admissions, closes every live connection so each
// blocked read unwinds into its cleanup path, and waits for the
// session goroutines to finish.
func (s *Server) Shutdown() {
	s.mu.Lock()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for conn := range s.open {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	s.open[conn] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.open, conn)
	s.mu.Unlock()
}
