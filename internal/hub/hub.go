// Package hub fans room snapshots out to WebSocket subscribers. Every
// notification carries the complete room state, so delivery order does
// not matter and late joiners catch up from the first frame.
package hub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Nateight8/neolink-sub000/internal/obslog"
	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 16
)

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	roomID string
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func New() *Hub {
	return &Hub{rooms: make(map[string]map[*client]struct{})}
}

// Subscribe attaches a connection to a room channel. The initial
// snapshot is queued before the client is registered, so it always
// arrives ahead of any live broadcast. Ownership of the connection
// passes to the hub.
func (h *Hub) Subscribe(roomID string, conn *websocket.Conn, initial *roomdto.Snapshot) {
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize), roomID: roomID}

	if initial != nil {
		if payload, err := marshalSnapshot(initial); err == nil {
			c.send <- payload
		}
	}

	h.mu.Lock()
	clients, ok := h.rooms[roomID]
	if !ok {
		clients = make(map[*client]struct{})
		h.rooms[roomID] = clients
	}
	clients[c] = struct{}{}
	count := len(clients)
	h.mu.Unlock()

	obslog.L().Debug("hub_subscribe",
		zap.String("room_id", roomID), zap.Int("subscribers", count))

	go c.writePump(h)
	go c.readPump(h)
}

// Broadcast sends the snapshot to every subscriber of the room.
// Clients whose buffers are full are dropped; they will resync on
// reconnect from the initial snapshot.
func (h *Hub) Broadcast(roomID string, snap *roomdto.Snapshot) {
	payload, err := marshalSnapshot(snap)
	if err != nil {
		obslog.L().Error("hub_marshal_error", zap.String("room_id", roomID), zap.Error(err))
		return
	}

	h.mu.RLock()
	clients := h.rooms[roomID]
	var stale []*client
	for c := range clients {
		select {
		case c.send <- payload:
		default:
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stale {
		h.remove(c)
	}
}

// SubscriberCount reports how many connections follow the room.
func (h *Hub) SubscriberCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Close tears down every connection the hub owns.
func (h *Hub) Close() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, clients := range rooms {
		for c := range clients {
			close(c.send)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	clients, ok := h.rooms[c.roomID]
	if ok {
		if _, present := clients[c]; present {
			delete(clients, c)
			close(c.send)
		}
		if len(clients) == 0 {
			delete(h.rooms, c.roomID)
		}
	}
	h.mu.Unlock()
}

func (c *client) writePump(h *Hub) {
	defer c.conn.Close()
	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump drains the connection so control frames are processed and
// client disconnects are noticed.
func (c *client) readPump(h *Hub) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func marshalSnapshot(snap *roomdto.Snapshot) ([]byte, error) {
	return json.Marshal(roomdto.Envelope{Type: roomdto.EnvelopeSnapshot, Snapshot: snap})
}
