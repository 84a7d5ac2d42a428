package relay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frt-gateway/models"
)

func newRelayServer(t *testing.T) *httptest.Server {
	t.Helper()
	h := newTestHub(t)
	rt := newTestRouter(&stubPublisher{}, &stubHistory{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeWS(h, rt, w, r)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestServeWSRejectsMissingTeamID(t *testing.T) {
	srv := newRelayServer(t)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "Missing teamId parameter\n", string(body))
}

func dialRoom(t *testing.T, srv *httptest.Server, teamID string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?teamId=" + teamID
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readTyping(t *testing.T, conn *websocket.Conn) models.TypingFrame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame models.TypingFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestTypingRelayEndToEnd(t *testing.T) {
	srv := newRelayServer(t)
	sender := dialRoom(t, srv, "team-9")
	peer := dialRoom(t, srv, "team-9")
	other := dialRoom(t, srv, "team-2")

	// Let both registrations land before broadcasting.
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, sender.WriteJSON(map[string]any{
		"type": "typing", "senderId": "u1", "teamId": "team-9", "typing": true,
	}))

	frame := readTyping(t, peer)
	assert.Equal(t, "u1", frame.SenderID)
	assert.True(t, frame.Typing)

	// Closing the sender's socket fans out a synthetic stop.
	sender.Close()
	frame = readTyping(t, peer)
	assert.Equal(t, "u1", frame.SenderID)
	assert.False(t, frame.Typing)

	// The other room stays quiet throughout.
	other.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	_, _, err := other.ReadMessage()
	require.Error(t, err)
}
