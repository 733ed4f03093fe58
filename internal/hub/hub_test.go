package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

// dialPair spins up a server that subscribes each incoming connection
// to the given room, and returns a connected client.
func dialPair(t *testing.T, h *Hub, roomID string, initial *roomdto.Snapshot) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		h.Subscribe(roomID, conn, initial)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) roomdto.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env roomdto.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return env
}

func TestSubscribeDeliversInitialSnapshotFirst(t *testing.T) {
	h := New()
	defer h.Close()

	initial := &roomdto.Snapshot{RoomID: "r1", Position: "initial-fen"}
	conn := dialPair(t, h, "r1", initial)

	env := readEnvelope(t, conn)
	if env.Type != roomdto.EnvelopeSnapshot {
		t.Fatalf("type = %q, want %q", env.Type, roomdto.EnvelopeSnapshot)
	}
	if env.Snapshot == nil || env.Snapshot.Position != "initial-fen" {
		t.Fatalf("unexpected first frame: %+v", env.Snapshot)
	}
}

func TestBroadcastReachesAllRoomSubscribers(t *testing.T) {
	h := New()
	defer h.Close()

	a := dialPair(t, h, "r1", nil)
	b := dialPair(t, h, "r1", nil)
	other := dialPair(t, h, "r2", nil)

	waitForSubscribers(t, h, "r1", 2)

	h.Broadcast("r1", &roomdto.Snapshot{RoomID: "r1", Position: "after-e4"})

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		if env.Snapshot.Position != "after-e4" {
			t.Fatalf("position = %q, want after-e4", env.Snapshot.Position)
		}
	}

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Fatal("subscriber of another room received the broadcast")
	}
}

func TestBroadcastToEmptyRoomIsNoop(t *testing.T) {
	h := New()
	defer h.Close()

	h.Broadcast("ghost", &roomdto.Snapshot{RoomID: "ghost"})
}

func TestDisconnectedClientIsRemoved(t *testing.T) {
	h := New()
	defer h.Close()

	conn := dialPair(t, h, "r1", nil)
	waitForSubscribers(t, h, "r1", 1)

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.SubscriberCount("r1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("disconnected client was not removed")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitForSubscribers(t *testing.T, h *Hub, roomID string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.SubscriberCount(roomID) != want {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers = %d, want %d", h.SubscriberCount(roomID), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
