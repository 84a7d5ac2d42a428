package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUsersBulkGetWithoutCache(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		// The store returns documents in its own order.
		w.Write([]byte(`[{"_id":"u2","displayName":"Grace"},{"_id":"u1","displayName":"Ada"}]`))
	}))
	defer srv.Close()

	users := NewUsers(NewStore(srv.URL, ""), nil, zap.NewNop())
	got, err := users.BulkGet(context.Background(), []string{"u1", "u2", "u3"})
	require.NoError(t, err)

	assert.Equal(t, "/post/4/users", gotPath)
	assert.JSONEq(t, `{"documents_id":["u1","u2","u3"]}`, string(gotBody))

	// Request order is preserved; unknown ids are absent.
	require.Len(t, got, 2)
	assert.Equal(t, "u1", got[0].ID)
	assert.Equal(t, "Ada", got[0].DisplayName)
	assert.Equal(t, "u2", got[1].ID)
}

func TestUsersBulkGetCacheHit(t *testing.T) {
	mr := miniredis.RunT(t)
	cached, err := json.Marshal(User{ID: "a", DisplayName: "Ada"})
	require.NoError(t, err)
	require.NoError(t, mr.Set("gateway:user:a", string(cached)))

	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`[{"_id":"b","displayName":"Grace"},{"_id":"c","displayName":"Lin"}]`))
	}))
	defer srv.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	users := NewUsers(NewStore(srv.URL, ""), cache, zap.NewNop())

	ids := []string{"a", "b", "c"}
	got, err := users.BulkGet(context.Background(), ids)
	require.NoError(t, err)

	// Only the cache misses reach the store.
	assert.JSONEq(t, `{"documents_id":["b","c"]}`, string(gotBody))

	// The cached user is kept, order follows the request, nothing is
	// duplicated.
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, "Ada", got[0].DisplayName)

	// The caller's slice is left alone.
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	// Fetched users are written back to the cache.
	assert.True(t, mr.Exists("gateway:user:b"))
	assert.True(t, mr.Exists("gateway:user:c"))
}

func TestUsersBulkGetAllCached(t *testing.T) {
	mr := miniredis.RunT(t)
	for _, u := range []User{{ID: "a", DisplayName: "Ada"}, {ID: "b", DisplayName: "Grace"}} {
		payload, err := json.Marshal(u)
		require.NoError(t, err)
		require.NoError(t, mr.Set(userCacheKey(u.ID), string(payload)))
	}

	var storeCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		storeCalls++
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	users := NewUsers(NewStore(srv.URL, ""), cache, zap.NewNop())

	got, err := users.BulkGet(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ada", got[0].DisplayName)
	assert.Zero(t, storeCalls)
}

func TestUsersBulkGetEmpty(t *testing.T) {
	users := NewUsers(NewStore("http://unused", ""), nil, zap.NewNop())
	got, err := users.BulkGet(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUsersGetByEmail(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(User{ID: "u1", Email: "ada@example.com"})
	}))
	defer srv.Close()

	users := NewUsers(NewStore(srv.URL, ""), nil, zap.NewNop())
	raw, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "/get/5/users,email,ada@example.com", gotPath)

	var user User
	require.NoError(t, json.Unmarshal(raw, &user))
	assert.Equal(t, "u1", user.ID)
}

func TestUsersLinkTelegram(t *testing.T) {
	var gotPath string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	users := NewUsers(NewStore(srv.URL, ""), nil, zap.NewNop())
	_, err := users.LinkTelegram(context.Background(), "tg-42", "u1")
	require.NoError(t, err)
	assert.Equal(t, "/post/1/telegram_users,tg-42", gotPath)
	assert.JSONEq(t, `{"user_id":"u1"}`, string(gotBody))
}
