package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/event"
)

// Manager owns one hub per watched room. Hubs are started on the first
// connection and stopped when the last one leaves.
type Manager struct {
	mu             sync.Mutex
	hubs           map[uuid.UUID]*hubRef
	originPatterns []string
	log            *slog.Logger
}

type hubRef struct {
	hub  *Hub
	refs int
}

// NewManager creates a manager. originPatterns are passed to websocket.Accept;
// an empty list only allows same-origin browsers.
func NewManager(originPatterns []string, log *slog.Logger) *Manager {
	return &Manager{
		hubs:           make(map[uuid.UUID]*hubRef),
		originPatterns: originPatterns,
		log:            log,
	}
}

// Notify pushes an invalidation to the sockets of this instance.
func (m *Manager) Notify(_ context.Context, inv event.Invalidation) {
	m.mu.Lock()
	ref, ok := m.hubs[inv.RoomID]
	m.mu.Unlock()

	if !ok {
		return
	}
	ref.hub.Send(invalidateMessage(inv))
}

// ConnectedRooms returns how many rooms currently have a live hub.
func (m *Manager) ConnectedRooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.hubs)
}

// ServeWS upgrades the request and blocks until the connection ends.
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, userID, roomID uuid.UUID) error {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: m.originPatterns,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	hub := m.acquire(roomID)
	client := newClient(userID, roomID, conn, m.log)
	if !hub.join(client) {
		m.release(roomID, hub, nil)
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump(ctx)
	}()

	client.readPump(ctx)

	m.release(roomID, hub, client)
	cancel()
	<-done

	conn.Close(websocket.StatusNormalClosure, "")
	return nil
}

func (m *Manager) acquire(roomID uuid.UUID) *Hub {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.hubs[roomID]
	if !ok {
		ref = &hubRef{hub: NewHub(roomID, m.log)}
		m.hubs[roomID] = ref
		go ref.hub.Run()
		m.log.Debug("created hub", "room_id", roomID)
	}
	ref.refs++
	return ref.hub
}

// release drops one reference to hub. A nil client never registered. Hubs
// already stopped by Shutdown are gone from the map, and a hub started
// later for the same room keeps its own count.
func (m *Manager) release(roomID uuid.UUID, hub *Hub, client *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref, ok := m.hubs[roomID]
	if !ok || ref.hub != hub {
		return
	}
	if client != nil {
		hub.unregister <- client
	}

	ref.refs--
	if ref.refs == 0 {
		delete(m.hubs, roomID)
		ref.hub.Shutdown()
		m.log.Debug("stopped idle hub", "room_id", roomID)
	}
}

// Shutdown stops every hub. Open connections are closed by their pumps.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ref := range m.hubs {
		ref.hub.Shutdown()
		delete(m.hubs, id)
	}
}
