package services

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetJoinsCollectionAndKey(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"_id":"u1","displayName":"Ada"}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "")
	raw, err := s.Get(context.Background(), RequestCollectionID, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, "/get/1/users,u1", gotPath)
	assert.JSONEq(t, `{"_id":"u1","displayName":"Ada"}`, string(raw))
}

func TestStoreGetByField(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "")
	_, err := s.Get(context.Background(), RequestDataByField, "users", "email,ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "/get/5/users,email,ada@example.com", gotPath)
}

func TestStorePost(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "")
	doc := struct {
		DisplayName string `json:"displayName"`
	}{DisplayName: "Ada"}
	_, err := s.Post(context.Background(), RequestCollectionID, "users,u1", doc)
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/post/1/users,u1", gotPath)
	assert.JSONEq(t, `{"displayName":"Ada"}`, string(gotBody))
}

func TestStoreUpdate(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	s := NewStore(srv.URL, "")
	_, err := s.Update(context.Background(), RequestCollectionID, "users,u1", map[string]string{"displayName": "Grace"})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/update/1/users,u1", gotPath)
}
