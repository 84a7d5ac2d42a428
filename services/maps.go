package services

import (
	"context"
	"net/http"
	"net/url"

	"frt-gateway/models"
)

// MapData is a stored team map: its initial viewport plus the markers
// that were active when it was last snapshotted. The snapshot may carry
// duplicate message ids; consumers keep the first occurrence.
type MapData struct {
	MapID           string                    `json:"map_id"`
	Scale           int                       `json:"scale"`
	InitialLocation models.Location           `json:"initial_location"`
	ActiveMarks     []models.MapStreamMessage `json:"active_marks"`
}

// Maps is the client for the map service.
type Maps struct {
	apiClient
}

func NewMaps(baseURL, apiKey string) *Maps {
	return &Maps{apiClient: newAPIClient(baseURL, apiKey)}
}

func (m *Maps) Get(ctx context.Context, mapID string) (MapData, error) {
	var out MapData
	path := "/api/v1/maps/getMap/" + url.PathEscape(mapID)
	if err := m.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return MapData{}, err
	}
	return out, nil
}

func (m *Maps) Create(ctx context.Context, mapID string, scale int, initial models.Location) (MapData, error) {
	req := struct {
		MapID           string          `json:"map_id"`
		Scale           int             `json:"scale"`
		InitialLocation models.Location `json:"initial_location"`
	}{MapID: mapID, Scale: scale, InitialLocation: initial}
	var out MapData
	if err := m.do(ctx, http.MethodPost, "/api/v1/maps/createMap", req, &out); err != nil {
		return MapData{}, err
	}
	return out, nil
}

// Update moves the initial viewport of an existing map.
func (m *Maps) Update(ctx context.Context, mapID string, scale int, initial models.Location) (MapData, error) {
	req := struct {
		MapID           string          `json:"map_id"`
		Scale           int             `json:"scale"`
		InitialLocation models.Location `json:"initial_location"`
	}{MapID: mapID, Scale: scale, InitialLocation: initial}
	var out MapData
	if err := m.do(ctx, http.MethodPost, "/api/v1/maps/updateMap", req, &out); err != nil {
		return MapData{}, err
	}
	return out, nil
}
