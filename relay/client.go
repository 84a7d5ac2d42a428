package relay

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Photos travel inline as
	// base64, so this is generous.
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Client is one WebSocket connection, tagged with the room it joined at
// upgrade time.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	roomID string

	// senderID is adopted from the first inbound frame that declares one
	// and is immutable afterwards. It is written only by the read pump;
	// the hub reads it after unregister, which the channel send orders.
	senderID string

	log *zap.Logger
}

// ServeWS upgrades an HTTP request to a WebSocket connection. The teamId
// query parameter is mandatory; without it the handshake is rejected with
// a plain-text 400 and no connection is registered.
func ServeWS(hub *Hub, router *Router, w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("teamId")
	if teamID == "" {
		http.Error(w, "Missing teamId parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		router.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		roomID: teamID,
		log:    router.log,
	}
	client.hub.register <- client

	go client.writePump()
	go client.readPump(router)
}

// readPump feeds inbound frames to the router until the connection dies,
// then unregisters.
func (c *Client) readPump(router *Router) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.log.Warn("read error", zap.String("room", c.roomID), zap.Error(err))
			}
			break
		}
		router.Dispatch(c, raw)
	}
}

// writePump drains the send channel to the socket and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// reply queues a frame for this connection only. A full buffer drops the
// frame rather than blocking the router.
func (c *Client) reply(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.log.Error("marshal reply", zap.Error(err))
		return
	}
	select {
	case c.send <- payload:
	default:
		c.log.Warn("reply dropped, send buffer full", zap.String("room", c.roomID))
	}
}
