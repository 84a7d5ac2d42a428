package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RequestType selects the document-store facade's access pattern.
type RequestType int

const (
	RequestCollectionID RequestType = 1
	RequestBulkDocsByID RequestType = 4
	RequestDataByField  RequestType = 5
)

// Store is the client for the document database's REST facade. The
// database itself is a black box; keys are "collection,id" pairs routed
// through /get, /post, /update and /delete.
type Store struct {
	apiClient
}

func NewStore(baseURL, apiKey string) *Store {
	return &Store{apiClient: newAPIClient(baseURL, apiKey)}
}

// Get retrieves a document. The key is joined to the collection as
// "collection,key"; for RequestDataByField the key itself is a
// "field,value" pair.
func (s *Store) Get(ctx context.Context, rt RequestType, collection, key string) (json.RawMessage, error) {
	var out json.RawMessage
	path := fmt.Sprintf("/get/%d/%s,%s", rt, collection, key)
	if err := s.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Post writes a document under the given key.
func (s *Store) Post(ctx context.Context, rt RequestType, key string, value any) (json.RawMessage, error) {
	var out json.RawMessage
	path := fmt.Sprintf("/post/%d/%s", rt, key)
	if err := s.do(ctx, http.MethodPost, path, value, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update overwrites fields of an existing document.
func (s *Store) Update(ctx context.Context, rt RequestType, key string, value any) (json.RawMessage, error) {
	var out json.RawMessage
	path := fmt.Sprintf("/update/%d/%s", rt, key)
	if err := s.do(ctx, http.MethodPut, path, value, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a document.
func (s *Store) Delete(ctx context.Context, collection, key string) error {
	path := fmt.Sprintf("/delete/%s/%s", collection, key)
	return s.do(ctx, http.MethodDelete, path, nil, nil)
}
