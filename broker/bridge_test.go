package broker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"frt-gateway/models"
)

type broadcastCall struct {
	roomID  string
	payload []byte
}

type fakeBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (f *fakeBroadcaster) Broadcast(roomID string, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, broadcastCall{roomID: roomID, payload: payload})
}

func (f *fakeBroadcaster) all() []broadcastCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broadcastCall(nil), f.calls...)
}

func newTestBridge(fb *fakeBroadcaster) *Bridge {
	return NewBridge([]string{"localhost:9092"}, "test-group", fb, zap.NewNop())
}

func TestDispatchChatRoutesByChatID(t *testing.T) {
	fb := &fakeBroadcaster{}
	b := newTestBridge(fb)

	value, err := json.Marshal(models.ChatStreamMessage{
		UserID:      "u1",
		MessageID:   "srv-id",
		MessageType: "text",
		ChatID:      "team-9",
		Timestamp:   "1700",
		Message:     json.RawMessage(`"hello"`),
	})
	require.NoError(t, err)

	b.dispatch(models.ChatTopic, value)

	calls := fb.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "team-9", calls[0].roomID)

	var frame models.ChatFrame
	require.NoError(t, json.Unmarshal(calls[0].payload, &frame))
	assert.Equal(t, "u1team-91700", frame.ID)
	assert.Equal(t, "text", frame.Type)
}

func TestDispatchChatRemapsCallbackData(t *testing.T) {
	fb := &fakeBroadcaster{}
	b := newTestBridge(fb)

	value, err := json.Marshal(models.ChatStreamMessage{
		UserID:      "bot",
		MessageType: string(models.TypeCallbackData),
		ChatID:      "team-9",
		Timestamp:   "5",
	})
	require.NoError(t, err)

	b.dispatch(models.ChatTopic, value)

	calls := fb.all()
	require.Len(t, calls, 1)
	var frame models.ChatFrame
	require.NoError(t, json.Unmarshal(calls[0].payload, &frame))
	assert.Equal(t, string(models.TypeActionResponse), frame.Type)
}

func TestDispatchMapRoutesByMapID(t *testing.T) {
	fb := &fakeBroadcaster{}
	b := newTestBridge(fb)

	value, err := json.Marshal(models.MapStreamMessage{
		MapID:     "team-9",
		MessageID: "mk-1",
		Active:    true,
	})
	require.NoError(t, err)

	b.dispatch(models.MapTopic, value)

	calls := fb.all()
	require.Len(t, calls, 1)
	assert.Equal(t, "team-9", calls[0].roomID)

	var frame models.MarkerFrame
	require.NoError(t, json.Unmarshal(calls[0].payload, &frame))
	assert.Equal(t, "mark", frame.Type)
	assert.Equal(t, "mk-1", frame.MessageID)
}

func TestDispatchUndecodableMessageSkipped(t *testing.T) {
	fb := &fakeBroadcaster{}
	b := newTestBridge(fb)

	b.dispatch(models.ChatTopic, []byte(`{not json`))
	b.dispatch(models.MapTopic, []byte(`[]`))

	assert.Empty(t, fb.all())
}

func TestPublishUnknownTopic(t *testing.T) {
	b := newTestBridge(&fakeBroadcaster{})
	err := b.Publish(context.Background(), "no_such_topic", struct{}{})
	require.Error(t, err)
}
