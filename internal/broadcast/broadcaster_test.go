package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

// broadcasterFixture bundles the broadcaster with its test HTTP server.
// dial returns the client side plus the matching server-side connection.
type broadcasterFixture struct {
	broadcaster *Broadcaster
	serverURL   string
	dial        func(roomCode string) (*ws.Conn, *ws.Conn)
}

// testBroadcaster sets up a Broadcaster with a test HTTP server that
// registers upgraded connections under the room code from the query string.
func testBroadcaster(t *testing.T, maxClients int) *broadcasterFixture {
	t.Helper()

	broadcaster := NewBroadcaster(clockwork.NewRealClock(), maxClients)
	t.Cleanup(func() { broadcaster.Stop() })

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	var mu sync.Mutex
	var lastServerConn *ws.Conn

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		roomCode := r.URL.Query().Get("room")
		if err := broadcaster.Register(roomCode, conn); err != nil {
			return
		}

		mu.Lock()
		lastServerConn = conn
		mu.Unlock()

		go func() {
			defer broadcaster.Unregister(roomCode, conn)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					break
				}
			}
		}()
	}))
	t.Cleanup(server.Close)

	expected := make(map[string]int)

	dial := func(roomCode string) (*ws.Conn, *ws.Conn) {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http") + "?room=" + roomCode
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })

		expected[roomCode]++
		require.True(t, waitForClientCount(broadcaster, roomCode, expected[roomCode]))

		mu.Lock()
		serverConn := lastServerConn
		mu.Unlock()
		return conn, serverConn
	}

	return &broadcasterFixture{broadcaster: broadcaster, serverURL: server.URL, dial: dial}
}

func waitForClientCount(b *Broadcaster, roomCode string, expected int) bool {
	for i := 0; i < 100; i++ {
		if b.ClientCount(roomCode) == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return b.ClientCount(roomCode) == expected
}

func readEvent(t *testing.T, conn *ws.Conn) testEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var event testEvent
	require.NoError(t, json.Unmarshal(msg, &event))
	return event
}

func TestBroadcaster_BroadcastReachesAllRoomClients(t *testing.T) {
	f := testBroadcaster(t, 10)

	conn1, _ := f.dial("ROOM1")
	conn2, _ := f.dial("ROOM1")
	require.Equal(t, 2, f.broadcaster.ClientCount("ROOM1"))

	f.broadcaster.Broadcast("ROOM1", testEvent{Type: "vote_update", Payload: "3"})

	assert.Equal(t, "3", readEvent(t, conn1).Payload)
	assert.Equal(t, "3", readEvent(t, conn2).Payload)
}

func TestBroadcaster_RoomsAreIsolated(t *testing.T) {
	f := testBroadcaster(t, 10)

	conn1, _ := f.dial("ROOM1")
	conn2, _ := f.dial("ROOM2")

	f.broadcaster.Broadcast("ROOM1", testEvent{Type: "vote_update", Payload: "only room 1"})

	assert.Equal(t, "only room 1", readEvent(t, conn1).Payload)

	require.NoError(t, conn2.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn2.ReadMessage()
	assert.Error(t, err, "client in another room must not receive the event")
}

func TestBroadcaster_SendToTargetsSingleClient(t *testing.T) {
	f := testBroadcaster(t, 10)

	conn1, serverConn1 := f.dial("ROOM1")
	conn2, _ := f.dial("ROOM1")

	f.broadcaster.SendTo("ROOM1", serverConn1, testEvent{Type: "error", Payload: "just for you"})

	assert.Equal(t, "just for you", readEvent(t, conn1).Payload)

	require.NoError(t, conn2.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := conn2.ReadMessage()
	assert.Error(t, err, "reply must stay sender-scoped")
}

func TestBroadcaster_UnregisterUpdatesCount(t *testing.T) {
	f := testBroadcaster(t, 10)

	conn1, _ := f.dial("ROOM1")
	f.dial("ROOM1")
	require.Equal(t, 2, f.broadcaster.ClientCount("ROOM1"))

	conn1.Close()

	deadline := time.Now().Add(time.Second)
	for f.broadcaster.ClientCount("ROOM1") != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 1, f.broadcaster.ClientCount("ROOM1"))
}

func TestBroadcaster_RejectsClientWhenRoomFull(t *testing.T) {
	f := testBroadcaster(t, 1)

	f.dial("ROOM1")
	require.Equal(t, 1, f.broadcaster.ClientCount("ROOM1"))

	// Second connection: server-side Register fails and closes the socket
	url := "ws" + strings.TrimPrefix(f.serverURL, "http") + "?room=ROOM1"
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "rejected connection must be closed")
	assert.Equal(t, 1, f.broadcaster.ClientCount("ROOM1"))
}

func TestBroadcaster_StopDisconnectsClients(t *testing.T) {
	f := testBroadcaster(t, 10)

	conn, _ := f.dial("ROOM1")
	require.Equal(t, 1, f.broadcaster.ClientCount("ROOM1"))

	f.broadcaster.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestBroadcaster_BroadcastToUnknownRoomIsNoop(t *testing.T) {
	f := testBroadcaster(t, 10)

	f.broadcaster.Broadcast("GHOST1", testEvent{Type: "vote_update"})
	assert.Equal(t, 0, f.broadcaster.ClientCount("GHOST1"))
}
