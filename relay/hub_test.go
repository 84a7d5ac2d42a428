package relay

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"frt-gateway/models"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(zap.NewNop())
	go h.Run()
	return h
}

func newTestClient(h *Hub, roomID string) *Client {
	return &Client{hub: h, send: make(chan []byte, 8), roomID: roomID, log: zap.NewNop()}
}

func recvFrame(t *testing.T, ch chan []byte) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for frame")
		return nil
	}
}

func TestBroadcastScopedToRoom(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "team-1")
	b := newTestClient(h, "team-1")
	c := newTestClient(h, "team-2")
	h.register <- a
	h.register <- b
	h.register <- c

	h.Broadcast("team-1", []byte("hello"))

	assert.Equal(t, "hello", string(recvFrame(t, a.send)))
	assert.Equal(t, "hello", string(recvFrame(t, b.send)))
	// fanOut completed before the reads above returned, so the other
	// room's channel is settled.
	assert.Empty(t, c.send)
}

func TestBroadcastExceptSkipsSender(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "team-1")
	b := newTestClient(h, "team-1")
	h.register <- a
	h.register <- b

	h.BroadcastExcept("team-1", []byte("typing"), a)

	assert.Equal(t, "typing", string(recvFrame(t, b.send)))
	assert.Empty(t, a.send)
}

func TestUnregisterBroadcastsTypingStopped(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "team-1")
	a.senderID = "u1"
	b := newTestClient(h, "team-1")
	h.register <- a
	h.register <- b

	h.unregister <- a

	var frame models.TypingFrame
	require.NoError(t, json.Unmarshal(recvFrame(t, b.send), &frame))
	assert.Equal(t, "typing", frame.Type)
	assert.Equal(t, "u1", frame.SenderID)
	assert.False(t, frame.Typing)

	// The dropped client's send channel is closed.
	_, open := <-a.send
	assert.False(t, open)
}

func TestUnregisterWithoutSenderIsSilent(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "team-1")
	b := newTestClient(h, "team-1")
	h.register <- a
	h.register <- b

	h.unregister <- a
	h.Broadcast("team-1", []byte("after"))

	assert.Equal(t, "after", string(recvFrame(t, b.send)))
}

func TestFullClientDroppedWithoutAbortingFanOut(t *testing.T) {
	h := newTestHub(t)
	stuck := &Client{hub: h, send: make(chan []byte), roomID: "team-1", log: zap.NewNop()}
	healthy := newTestClient(h, "team-1")
	h.register <- stuck
	h.register <- healthy

	h.Broadcast("team-1", []byte("one"))
	assert.Equal(t, "one", string(recvFrame(t, healthy.send)))

	// The stuck client was evicted; later broadcasts still flow.
	h.Broadcast("team-1", []byte("two"))
	assert.Equal(t, "two", string(recvFrame(t, healthy.send)))
}

func TestUnregisterUnknownClientIsNoOp(t *testing.T) {
	h := newTestHub(t)
	a := newTestClient(h, "team-1")
	h.register <- a

	h.unregister <- newTestClient(h, "team-1")
	h.Broadcast("team-1", []byte("still here"))

	assert.Equal(t, "still here", string(recvFrame(t, a.send)))
}
