package tcp

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/vkurochkin/linechat-server/internal/core"
	"github.com/vkurochkin/linechat-server/internal/metrics"
)

const nicknamePrompt = "please enter a nickname: "

// handleConn drives one client from handshake to teardown. The
// session was already admitted by the accept loop.
func (s *Server) handleConn(conn net.Conn, sess *core.Session) {
	defer s.wg.Done()
	defer s.untrack(conn)
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go writeLoop(conn, sess.Out, done)

	reader := bufio.NewReader(conn)

	// Handshake: the next full line is the nickname, taken verbatim.
	sess.Send(nicknamePrompt)
	nick, err := readLine(reader)
	if err != nil {
		s.conns.Remove(sess)
		metrics.ConnectedClients.Set(float64(s.conns.Len()))
		return
	}
	sess.SetNickname(nick)
	s.log.Info().Str("session_id", sess.ID).Str("nickname", nick).Msg("client connected")
	s.conns.BroadcastAll(nick + " joined the chat!")

	for {
		line, err := readLine(reader)
		if err != nil {
			break
		}
		if !s.router.dispatch(sess, line) {
			break
		}
	}

	s.teardown(sess)
}

// teardown runs for /quit and for implicit disconnects alike: leave
// every joined room, tell the server-wide audience, free the slot.
func (s *Server) teardown(sess *core.Session) {
	nick := sess.Nickname()
	for _, id := range sess.JoinedRooms() {
		if room := s.rooms.Get(id); room != nil {
			room.Leave(nick)
		}
		sess.MarkLeft(id)
	}
	s.conns.BroadcastAll(nick + " left the chat!")
	s.conns.Remove(sess)
	metrics.ConnectedClients.Set(float64(s.conns.Len()))
	s.log.Info().Str("session_id", sess.ID).Str("nickname", nick).Msg("client disconnected")
}

// writeLoop drains the session's output channel onto the socket. It
// stops on write failure or when the handler signals done; the
// channel itself is never closed, so concurrent broadcasts stay safe.
func writeLoop(conn net.Conn, out <-chan string, done <-chan struct{}) {
	w := bufio.NewWriter(conn)
	for {
		select {
		case line := <-out:
			if _, err := w.WriteString(line + "\n"); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err == nil {
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF && line != "" {
		// last line without newline
		return strings.TrimRight(line, "\r\n"), nil
	}
	if err == io.EOF {
		return "", io.EOF
	}
	return "", fmt.Errorf("read: %w", err)
}
