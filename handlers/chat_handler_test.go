package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"frt-gateway/models"
	"frt-gateway/services"
)

// newChatHandlerServer wires the handler against a stub messenger
// backend and returns both test servers.
func newChatHandlerServer(t *testing.T, backend http.HandlerFunc) *httptest.Server {
	t.Helper()
	upstream := httptest.NewServer(backend)
	t.Cleanup(upstream.Close)

	r := mux.NewRouter()
	NewChatHandler(services.NewMessenger(upstream.URL, ""), zap.NewNop()).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestGetHistory(t *testing.T) {
	var gotBody map[string]any
	srv := newChatHandlerServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/messenger/getChat", r.URL.Path)
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`[{"message_id":"m1","user_id":"u1","message":"\"hi\"","timestamp":"100"}]`))
	})

	resp, err := http.Get(srv.URL + "/api/v1/chats/history?teamId=team-9&page=2&pageSize=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "team-9", gotBody["chat_id"])
	assert.Equal(t, float64(2), gotBody["page"])
	assert.Equal(t, float64(10), gotBody["page_size"])

	var out struct {
		Messages []models.HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "m1", out.Messages[0].MessageID)
}

func TestGetHistoryDefaultsPageSize(t *testing.T) {
	var gotBody map[string]any
	srv := newChatHandlerServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`[]`))
	})

	resp, err := http.Get(srv.URL + "/api/v1/chats/history?teamId=team-9")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, float64(models.DefaultPageSize), gotBody["page_size"])
}

func TestGetHistoryRequiresTeamID(t *testing.T) {
	srv := newChatHandlerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("backend should not be called")
	})

	resp, err := http.Get(srv.URL + "/api/v1/chats/history")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetInsights(t *testing.T) {
	srv := newChatHandlerServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/messenger/getChatInsights/team-9", r.URL.Path)
		json.NewEncoder(w).Encode(services.ChatInsights{NumberOfRows: 42})
	})

	resp, err := http.Get(srv.URL + "/api/v1/chats/insights/team-9")
	require.NoError(t, err)
	defer resp.Body.Close()

	var insights services.ChatInsights
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&insights))
	assert.Equal(t, 42, insights.NumberOfRows)
}

func TestGetHistoryUpstreamFailure(t *testing.T) {
	srv := newChatHandlerServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	resp, err := http.Get(srv.URL + "/api/v1/chats/history?teamId=team-9")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
