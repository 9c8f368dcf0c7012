package chat

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func testConnection(sessionID int64, role string) *Connection {
	return NewConnection(sessionID, role, nil, time.Second, zap.NewNop())
}

func receive(t *testing.T, conn *Connection) []byte {
	t.Helper()
	select {
	case msg := <-conn.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return nil
	}
}

func assertSilent(t *testing.T, conn *Connection) {
	t.Helper()
	select {
	case msg := <-conn.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestRelayReachesOtherLegsOnly(t *testing.T) {
	manager := NewManager(time.Minute, zap.NewNop())

	client := testConnection(1, "client")
	professional := testConnection(1, "professional")
	outsider := testConnection(2, "client")
	manager.Join(client)
	manager.Join(professional)
	manager.Join(outsider)

	manager.relay(context.Background(), client, []byte(`{"text":"hello"}`))

	if got := receive(t, professional); string(got) != `{"text":"hello"}` {
		t.Fatalf("professional leg received %s", got)
	}
	assertSilent(t, client)
	assertSilent(t, outsider)
}

func TestLeaveShrinksAndDropsRoom(t *testing.T) {
	manager := NewManager(time.Minute, zap.NewNop())

	client := testConnection(1, "client")
	professional := testConnection(1, "professional")
	manager.Join(client)
	manager.Join(professional)
	if got := manager.RoomSize(1); got != 2 {
		t.Fatalf("room size: got %d, want 2", got)
	}

	manager.leave(client)
	if got := manager.RoomSize(1); got != 1 {
		t.Fatalf("room size after leave: got %d, want 1", got)
	}

	manager.relay(context.Background(), professional, []byte("x"))
	assertSilent(t, client)

	manager.leave(professional)
	if got := manager.RoomSize(1); got != 0 {
		t.Fatalf("room size after both left: got %d", got)
	}
}

func TestCloseRoomNotifiesEveryLeg(t *testing.T) {
	manager := NewManager(time.Minute, zap.NewNop())

	client := testConnection(1, "client")
	professional := testConnection(1, "professional")
	manager.Join(client)
	manager.Join(professional)

	manager.CloseRoom(1)

	for _, leg := range []*Connection{client, professional} {
		if got := receive(t, leg); string(got) != `{"type":"session_ended"}` {
			t.Fatalf("leg received %s", got)
		}
	}
	if got := manager.RoomSize(1); got != 0 {
		t.Fatalf("room should be gone, size %d", got)
	}
}

func TestSendDropsWhenBufferFull(t *testing.T) {
	conn := testConnection(1, "client")
	for i := 0; i < cap(conn.send)+5; i++ {
		conn.Send([]byte("m"))
	}
	if got := len(conn.send); got != cap(conn.send) {
		t.Fatalf("buffer: got %d, want %d", got, cap(conn.send))
	}
}
