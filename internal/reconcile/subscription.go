package reconcile

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/Nateight8/neolink-sub000/internal/obslog"
	"github.com/Nateight8/neolink-sub000/pkg/roomdto"
)

// SnapshotHandler receives every snapshot frame, including the initial
// one sent on (re)connect.
type SnapshotHandler func(*roomdto.Snapshot)

// Subscription follows one room's sync channel and reconnects on
// failure. Because every frame is a full snapshot, a reconnect needs no
// replay: the first frame after the new handshake restores the client.
type Subscription struct {
	wsURL    string
	identity string
	handler  SnapshotHandler

	maxReconnectAttempts int

	mu   sync.Mutex
	conn *websocket.Conn

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Subscribe opens the sync channel for a room and starts dispatching
// snapshots to the handler. baseURL is the http(s) server address.
func Subscribe(ctx context.Context, baseURL, roomID, identity string, handler SnapshotHandler) (*Subscription, error) {
	wsURL := strings.Replace(strings.TrimRight(baseURL, "/"), "http", "ws", 1) +
		"/api/rooms/" + roomID + "/ws"

	s := &Subscription{
		wsURL:                wsURL,
		identity:             identity,
		handler:              handler,
		maxReconnectAttempts: 10,
		stopCh:               make(chan struct{}),
	}
	if err := s.dial(ctx); err != nil {
		return nil, err
	}
	s.wg.Add(1)
	go s.listen()
	return s, nil
}

func (s *Subscription) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	hdr := http.Header{}
	hdr.Set("X-User-Id", s.identity)
	conn, _, err := websocket.Dial(dialCtx, s.wsURL, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	return nil
}

func (s *Subscription) listen() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		var env roomdto.Envelope
		if err := wsjson.Read(context.Background(), conn, &env); err != nil {
			if s.isStopping() {
				return
			}
			obslog.L().Debug("sync_channel_dropped", zap.Error(err))
			_ = conn.Close(websocket.StatusGoingAway, "reconnect")
			if !s.reconnect() {
				return
			}
			continue
		}

		if env.Type == roomdto.EnvelopeSnapshot && env.Snapshot != nil && s.handler != nil {
			s.handler(env.Snapshot)
		}
	}
}

func (s *Subscription) reconnect() bool {
	for attempt := 1; attempt <= s.maxReconnectAttempts; attempt++ {
		select {
		case <-s.stopCh:
			return false
		case <-time.After(backoffDuration(attempt)):
		}
		if err := s.dial(context.Background()); err != nil {
			continue
		}
		obslog.L().Info("sync_channel_reconnected", zap.Int("attempt", attempt))
		return true
	}
	obslog.L().Warn("sync_channel_failed", zap.Int("attempts", s.maxReconnectAttempts))
	return false
}

func (s *Subscription) isStopping() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *Subscription) Close() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.mu.Lock()
	if s.conn != nil {
		_ = s.conn.Close(websocket.StatusNormalClosure, "close")
		s.conn = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
