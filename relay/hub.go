package relay

import (
	"encoding/json"

	"go.uber.org/zap"

	"frt-gateway/models"
)

// outbound is one fan-out request: a payload for every open connection in
// a room, optionally excluding a single client (typing notifications skip
// the sender).
type outbound struct {
	roomID  string
	payload []byte
	exclude *Client
}

// Hub owns the connection registry. All registry mutation happens inside
// Run's goroutine; the channels are the only way in.
type Hub struct {
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan outbound

	log *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound),
		log:        log,
	}
}

// Run processes registry and broadcast events until the process exits.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			if _, ok := h.rooms[client.roomID]; !ok {
				h.rooms[client.roomID] = make(map[*Client]bool)
			}
			h.rooms[client.roomID][client] = true
			h.log.Info("client registered",
				zap.String("room", client.roomID),
				zap.Int("room_size", len(h.rooms[client.roomID])))

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

// Broadcast delivers a payload to every open connection in a room. Safe
// to call from any goroutine; this is the broker bridge's entry point.
func (h *Hub) Broadcast(roomID string, payload []byte) {
	h.broadcast <- outbound{roomID: roomID, payload: payload}
}

// BroadcastExcept is Broadcast minus one connection.
func (h *Hub) BroadcastExcept(roomID string, payload []byte, exclude *Client) {
	h.broadcast <- outbound{roomID: roomID, payload: payload, exclude: exclude}
}

// drop removes a client from the registry. If the connection had declared
// a sender identity, peers in the room get a synthetic typing-stopped
// frame so no stale indicator lingers.
func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if room, ok := h.rooms[client.roomID]; ok {
		delete(room, client)
		if len(room) == 0 {
			delete(h.rooms, client.roomID)
		}
	}
	close(client.send)
	h.log.Info("client unregistered", zap.String("room", client.roomID))

	if client.senderID != "" {
		payload, err := json.Marshal(models.NewTypingFrame(client.senderID, false))
		if err != nil {
			return
		}
		h.fanOut(outbound{roomID: client.roomID, payload: payload})
	}
}

// fanOut is fire-and-forget per socket: a slow or dead client is dropped
// without aborting delivery to the rest of the room.
func (h *Hub) fanOut(msg outbound) {
	room, ok := h.rooms[msg.roomID]
	if !ok {
		return
	}
	for client := range room {
		if client == msg.exclude {
			continue
		}
		select {
		case client.send <- msg.payload:
		default:
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, msg.roomID)
			}
			delete(h.clients, client)
			close(client.send)
			h.log.Warn("client send buffer full, dropping connection",
				zap.String("room", msg.roomID))
		}
	}
}
