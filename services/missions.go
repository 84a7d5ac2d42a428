package services

import (
	"context"
	"net/http"
	"net/url"

	"frt-gateway/models"
)

// Mission is a stored mission document. Status is a plain ordinal; any
// status can be assigned at any time.
type Mission struct {
	ID                string               `json:"_id"`
	CreatorID         string               `json:"creator_id"`
	TeamID            string               `json:"team_id"`
	Name              string               `json:"name"`
	Description       string               `json:"description"`
	MissionStatus     models.MissionStatus `json:"mission_status"`
	MarkID            string               `json:"mark_id,omitempty"`
	Deadline          int64                `json:"deadline,omitempty"`
	StartTime         int64                `json:"start_time,omitempty"`
	EndTime           int64                `json:"end_time,omitempty"`
	AssignedID        string               `json:"assigned_id,omitempty"`
	HistoryAssignee   []string             `json:"history_assignee,omitempty"`
	CreatedAt         int64                `json:"created_at"`
	UpdatedAt         int64                `json:"updated_at"`
	PublishToTelegram bool                 `json:"publish_to_telegram,omitempty"`
	IsAttendance      bool                 `json:"is_attendance"`
}

// CreateMissionRequest creates a mission; attendance missions collect
// ok/sos responses from members.
type CreateMissionRequest struct {
	CreatorID         string `json:"creator_id"`
	TeamID            string `json:"team_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	IsAttendance      bool   `json:"is_attendance"`
	PublishToTelegram bool   `json:"publish_to_telegram"`
	MarkID            string `json:"mark_id,omitempty"`
	Deadline          int64  `json:"deadline,omitempty"`
}

type UpdateMissionRequest struct {
	MissionID         string                `json:"mission_id"`
	SenderID          string                `json:"sender_id"`
	Name              string                `json:"name,omitempty"`
	Description       string                `json:"description,omitempty"`
	MissionStatus     *models.MissionStatus `json:"mission_status,omitempty"`
	MarkID            string                `json:"mark_id,omitempty"`
	Deadline          int64                 `json:"deadline,omitempty"`
	AssignedID        string                `json:"assigned_id,omitempty"`
	PublishToTelegram *bool                 `json:"publish_to_telegram,omitempty"`
}

type DeleteMissionRequest struct {
	MissionID string `json:"mission_id"`
	Name      string `json:"name"`
	SenderID  string `json:"sender_id"`
}

// Missions is the client for the mission service.
type Missions struct {
	apiClient
}

func NewMissions(baseURL, apiKey string) *Missions {
	return &Missions{apiClient: newAPIClient(baseURL, apiKey)}
}

func (m *Missions) Create(ctx context.Context, req CreateMissionRequest) (Mission, error) {
	var out Mission
	if err := m.do(ctx, http.MethodPost, "/api/v1/missions/createMission", req, &out); err != nil {
		return Mission{}, err
	}
	return out, nil
}

// GetForTeam lists a team's missions.
func (m *Missions) GetForTeam(ctx context.Context, teamID string) ([]Mission, error) {
	var out []Mission
	path := "/api/v1/missions/getUserMissions/" + url.PathEscape(teamID)
	if err := m.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Missions) Update(ctx context.Context, req UpdateMissionRequest) (Mission, error) {
	var out Mission
	if err := m.do(ctx, http.MethodPost, "/api/v1/missions/updateMission", req, &out); err != nil {
		return Mission{}, err
	}
	return out, nil
}

func (m *Missions) Delete(ctx context.Context, req DeleteMissionRequest) error {
	return m.do(ctx, http.MethodDelete, "/api/v1/missions/deleteMission", req, nil)
}
