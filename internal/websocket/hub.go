package websocket

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Hub fans messages out to the sockets watching one room. All client
// bookkeeping happens on the Run goroutine.
type Hub struct {
	roomID uuid.UUID

	// only touched by Run
	clients map[*Client]struct{}
	sent    int64
	dropped int64

	broadcast  chan ServerMessage
	register   chan *Client
	unregister chan *Client
	shutdown   chan struct{}

	log *slog.Logger
}

func NewHub(roomID uuid.UUID, log *slog.Logger) *Hub {
	return &Hub{
		roomID:     roomID,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan ServerMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		shutdown:   make(chan struct{}),
		log:        log.With("room_id", roomID),
	}
}

// Run owns the client set until Shutdown.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case message := <-h.broadcast:
			h.handleBroadcast(message)

		case <-h.shutdown:
			h.handleShutdown()
			return
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.clients[client] = struct{}{}

	h.log.Info("client registered",
		"user_id", client.userID,
		"total_clients", len(h.clients),
	)

	client.deliver(h.encode(ServerMessage{
		Type: TypeConnectionAck,
		Data: AckData{RoomID: h.roomID, UserID: client.userID},
	}))

	if client.userID != uuid.Nil {
		h.handleBroadcast(ServerMessage{Type: TypeUserJoined, Data: PresenceData{UserID: client.userID}})
	}
}

func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}

	delete(h.clients, client)
	close(client.send)

	h.log.Info("client unregistered",
		"user_id", client.userID,
		"remaining_clients", len(h.clients),
	)

	if client.userID != uuid.Nil {
		h.handleBroadcast(ServerMessage{Type: TypeUserLeft, Data: PresenceData{UserID: client.userID}})
	}
}

// handleBroadcast disconnects clients that cannot keep up; they reconnect
// and re-read state.
func (h *Hub) handleBroadcast(message ServerMessage) {
	data := h.encode(message)
	if data == nil {
		return
	}

	for client := range h.clients {
		if client.deliver(data) {
			h.sent++
			continue
		}

		h.log.Warn("client buffer full, disconnecting", "user_id", client.userID)
		h.dropped++
		h.handleUnregister(client)
	}
}

func (h *Hub) handleShutdown() {
	h.log.Info("shutting down hub",
		"clients", len(h.clients),
		"messages_sent", h.sent,
		"messages_dropped", h.dropped,
	)

	for client := range h.clients {
		close(client.send)
	}
	h.clients = nil
}

func (h *Hub) encode(message ServerMessage) []byte {
	message.Timestamp = time.Now().Unix()

	data, err := json.Marshal(message)
	if err != nil {
		h.log.Error("failed to marshal message", "error", err)
		return nil
	}
	return data
}

// Send queues a message without blocking. Messages to a full or stopped
// hub are dropped.
func (h *Hub) Send(message ServerMessage) {
	select {
	case h.broadcast <- message:
	case <-h.shutdown:
	default:
		h.log.Error("hub broadcast channel full")
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.shutdown:
		return false
	}
}

func (h *Hub) Shutdown() {
	close(h.shutdown)
}
