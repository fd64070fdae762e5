package tcp

import (
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/vkurochkin/linechat-server/internal/core"
	"github.com/vkurochkin/linechat-server/internal/metrics"
)

const (
	errNickFormat   = "no nickname provided!"
	errToFormat     = "Error: invalid /to command format. Use /to [recipient] [message]"
	errChatFormat   = "Error: invalid /chat command format. Use /chat [chat room ID] [message]"
	errCreateFormat = "Error: invalid /create command format. Use /create [chat room name]"
	errJoinFormat   = "Error: invalid /join command format. Use /join [chat room id]"
	errLeaveFormat  = "Error: invalid /leave command format. Use /leave [chat room id]"
	errRoomIDNaN    = "Error: chat room id must be a number"
)

// router turns input lines into operations against the shared
// registries. Lines whose first token is not a known command are
// broadcast server-wide.
type router struct {
	conns *core.ConnRegistry
	rooms *core.RoomRegistry
	log   *zerolog.Logger
}

func newRouter(conns *core.ConnRegistry, rooms *core.RoomRegistry, logger *zerolog.Logger) *router {
	return &router{conns: conns, rooms: rooms, log: logger}
}

// dispatch handles one line. Returns false when the session should
// close (/quit); every error is answered on the sender's sink and the
// session keeps running.
func (rt *router) dispatch(sess *core.Session, line string) bool {
	cmd := line
	if i := strings.IndexByte(line, ' '); i >= 0 {
		cmd = line[:i]
	}

	start := time.Now()
	label := "broadcast"
	alive := true

	switch cmd {
	case "/nick":
		label = "nick"
		rt.handleNick(sess, line)
	case "/to":
		label = "private"
		rt.handleTo(sess, line)
	case "/chat":
		label = "room_message"
		rt.handleChat(sess, line)
	case "/create":
		label = "create"
		rt.handleCreate(sess, line)
	case "/join":
		label = "join"
		rt.handleJoin(sess, line)
	case "/leave":
		label = "leave"
		rt.handleLeave(sess, line)
	case "/quit":
		label = "quit"
		alive = false
	default:
		rt.conns.BroadcastAll(sess.Nickname() + ": " + line)
	}

	metrics.CommandsTotal.WithLabelValues(label).Inc()
	metrics.DispatchDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	return alive
}

func (rt *router) handleNick(sess *core.Session, line string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		sess.Send(errNickFormat)
		return
	}
	old := sess.Nickname()
	rt.conns.BroadcastAll(old + " renamed themselves to " + parts[1])
	sess.SetNickname(parts[1])
	sess.Send("Successfully changed nickname to " + parts[1])
	rt.log.Info().Str("old", old).Str("new", parts[1]).Msg("nickname changed")
}

func (rt *router) handleTo(sess *core.Session, line string) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		sess.Send(errToFormat)
		return
	}
	target := rt.conns.FindByNickname(parts[1])
	if target == nil {
		sess.Send("Error: recipient " + parts[1] + " not found.")
		return
	}
	target.Send("[PM from " + sess.Nickname() + "]: " + parts[2])
}

func (rt *router) handleChat(sess *core.Session, line string) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		sess.Send(errChatFormat)
		return
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		sess.Send(errRoomIDNaN)
		return
	}
	room := rt.rooms.Get(id)
	if room == nil {
		sess.Send("Chat room with ID " + strconv.Itoa(id) + " does not exist")
		return
	}
	if !sess.InRoom(id) {
		sess.Send("You are not a member of chat room " + strconv.Itoa(id))
		return
	}
	room.Broadcast(sess.Nickname() + ": " + parts[2])
}

func (rt *router) handleCreate(sess *core.Session, line string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		sess.Send(errCreateFormat)
		return
	}
	room := rt.rooms.Create(parts[1])
	room.Join(sess.Nickname(), sess.Out)
	sess.MarkJoined(room.ID)
	sess.Send("You have created a new chat room with ID " + strconv.Itoa(room.ID))
	metrics.RoomsCreated.Inc()
	rt.log.Info().Int("room_id", room.ID).Str("name", room.Name).Msg("chat room created")
}

func (rt *router) handleJoin(sess *core.Session, line string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		sess.Send(errJoinFormat)
		return
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		sess.Send(errRoomIDNaN)
		return
	}
	room := rt.rooms.Get(id)
	if room == nil {
		sess.Send("Chat room with ID " + strconv.Itoa(id) + " does not exist")
		return
	}
	if !room.Join(sess.Nickname(), sess.Out) {
		sess.Send("You are a member of this chat " + strconv.Itoa(id) + " already!")
		return
	}
	sess.MarkJoined(id)
	sess.Send("You have joined chat room " + strconv.Itoa(id))
}

func (rt *router) handleLeave(sess *core.Session, line string) {
	parts := strings.SplitN(line, " ", 2)
	if len(parts) != 2 || parts[1] == "" {
		sess.Send(errLeaveFormat)
		return
	}
	id, err := strconv.Atoi(parts[1])
	if err != nil {
		sess.Send(errRoomIDNaN)
		return
	}
	room := rt.rooms.Get(id)
	if room == nil {
		sess.Send("Chat room with ID " + strconv.Itoa(id) + " does not exist")
		return
	}
	if !room.Leave(sess.Nickname()) {
		sess.Send("Can't leave chat id " + strconv.Itoa(id) + "  not member of it!")
		return
	}
	sess.MarkLeft(id)
	sess.Send("You have leaved chat room " + strconv.Itoa(id))
}
