package tcp

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vkurochkin/linechat-server/internal/core"
)

func newTestRouter() (*router, *core.ConnRegistry, *core.RoomRegistry) {
	nop := zerolog.Nop()
	conns := core.NewConnRegistry(4, &nop)
	rooms := core.NewRoomRegistry()
	return newRouter(conns, rooms, &nop), conns, rooms
}

func admitSession(t *testing.T, conns *core.ConnRegistry, nick string) *core.Session {
	t.Helper()
	s := core.NewSession(nick + "-id")
	s.SetNickname(nick)
	if !conns.TryAdmit(s) {
		t.Fatalf("failed to admit %s", nick)
	}
	return s
}

func recvLine(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for line")
	}
	return ""
}

func expectLine(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	if got := recvLine(t, ch); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestDispatchDefaultBroadcast(t *testing.T) {
	rt, conns, _ := newTestRouter()
	alice := admitSession(t, conns, "alice")
	bob := admitSession(t, conns, "bob")

	if !rt.dispatch(alice, "hello everyone") {
		t.Fatal("plain broadcast closed the session")
	}

	expectLine(t, alice.Out, "alice: hello everyone")
	expectLine(t, bob.Out, "alice: hello everyone")
}

func TestDispatchNick(t *testing.T) {
	rt, conns, _ := newTestRouter()
	alice := admitSession(t, conns, "alice")
	bob := admitSession(t, conns, "bob")

	rt.dispatch(alice, "/nick queen bee")

	expectLine(t, bob.Out, "alice renamed themselves to queen bee")
	expectLine(t, alice.Out, "alice renamed themselves to queen bee")
	expectLine(t, alice.Out, "Successfully changed nickname to queen bee")
	if got := alice.Nickname(); got != "queen bee" {
		t.Fatalf("nickname not updated: %q", got)
	}

	rt.dispatch(alice, "/nick")
	expectLine(t, alice.Out, "no nickname provided!")
}

func TestDispatchPrivateMessage(t *testing.T) {
	rt, conns, _ := newTestRouter()
	alice := admitSession(t, conns, "alice")
	bob := admitSession(t, conns, "bob")

	rt.dispatch(alice, "/to bob hi over there")
	expectLine(t, bob.Out, "[PM from alice]: hi over there")

	rt.dispatch(alice, "/to carol hi")
	expectLine(t, alice.Out, "Error: recipient carol not found.")
	select {
	case got := <-bob.Out:
		t.Fatalf("bob received %q for a message addressed to carol", got)
	default:
	}

	rt.dispatch(alice, "/to bob")
	expectLine(t, alice.Out, "Error: invalid /to command format. Use /to [recipient] [message]")
}

func TestDispatchCreateAutoJoins(t *testing.T) {
	rt, conns, rooms := newTestRouter()
	alice := admitSession(t, conns, "alice")

	rt.dispatch(alice, "/create lounge")
	expectLine(t, alice.Out, "You have created a new chat room with ID 0")

	room := rooms.Get(0)
	if room == nil || room.Name != "lounge" {
		t.Fatalf("room 0 not created: %+v", room)
	}
	if !room.HasMember("alice") {
		t.Fatal("creator not auto-joined")
	}
	if !alice.InRoom(0) {
		t.Fatal("creator's session does not track the room")
	}

	rt.dispatch(alice, "/create")
	expectLine(t, alice.Out, "Error: invalid /create command format. Use /create [chat room name]")
}

func TestDispatchJoinAndRoomMessage(t *testing.T) {
	rt, conns, _ := newTestRouter()
	alice := admitSession(t, conns, "alice")
	bob := admitSession(t, conns, "bob")

	rt.dispatch(alice, "/create lounge")
	expectLine(t, alice.Out, "You have created a new chat room with ID 0")

	rt.dispatch(bob, "/join 0")
	expectLine(t, bob.Out, "You have joined chat room 0")

	rt.dispatch(bob, "/join 0")
	expectLine(t, bob.Out, "You are a member of this chat 0 already!")

	rt.dispatch(bob, "/join 7")
	expectLine(t, bob.Out, "Chat room with ID 7 does not exist")

	rt.dispatch(alice, "/chat 0 hi")
	expectLine(t, alice.Out, "[lounge]alice: hi")
	expectLine(t, bob.Out, "[lounge]alice: hi")
}

func TestDispatchRoomMessageErrors(t *testing.T) {
	rt, conns, _ := newTestRouter()
	alice := admitSession(t, conns, "alice")
	carol := admitSession(t, conns, "carol")

	rt.dispatch(alice, "/create lounge")
	expectLine(t, alice.Out, "You have created a new chat room with ID 0")

	rt.dispatch(carol, "/chat 0 psst")
	expectLine(t, carol.Out, "You are not a member of chat room 0")

	rt.dispatch(carol, "/chat 3 psst")
	expectLine(t, carol.Out, "Chat room with ID 3 does not exist")

	rt.dispatch(carol, "/chat abc psst")
	expectLine(t, carol.Out, "Error: chat room id must be a number")

	rt.dispatch(carol, "/chat 0")
	expectLine(t, carol.Out, "Error: invalid /chat command format. Use /chat [chat room ID] [message]")
}

func TestDispatchLeave(t *testing.T) {
	rt, conns, rooms := newTestRouter()
	alice := admitSession(t, conns, "alice")
	bob := admitSession(t, conns, "bob")

	rt.dispatch(alice, "/create lounge")
	expectLine(t, alice.Out, "You have created a new chat room with ID 0")
	rt.dispatch(bob, "/join 0")
	expectLine(t, bob.Out, "You have joined chat room 0")

	rt.dispatch(bob, "/leave 0")
	expectLine(t, bob.Out, "You have leaved chat room 0")
	expectLine(t, alice.Out, "[lounge]bob has left the chat.")
	if bob.InRoom(0) {
		t.Fatal("session still tracks the room after leave")
	}

	rt.dispatch(bob, "/leave 0")
	expectLine(t, bob.Out, "Can't leave chat id 0  not member of it!")

	rt.dispatch(bob, "/leave 9")
	expectLine(t, bob.Out, "Chat room with ID 9 does not exist")

	rt.dispatch(bob, "/leave nine")
	expectLine(t, bob.Out, "Error: chat room id must be a number")

	// Leave then rejoin restores membership.
	rt.dispatch(bob, "/join 0")
	expectLine(t, bob.Out, "You have joined chat room 0")
	if !rooms.Get(0).HasMember("bob") {
		t.Fatal("membership not restored after rejoin")
	}
}

func TestDispatchQuitClosesSession(t *testing.T) {
	rt, conns, _ := newTestRouter()
	alice := admitSession(t, conns, "alice")

	if rt.dispatch(alice, "/quit") {
		t.Fatal("expected dispatch to report a closing session")
	}
}
