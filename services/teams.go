package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// Team is a stored team document.
type Team struct {
	ID      string   `json:"_id"`
	Name    string   `json:"team_name"`
	OwnerID string   `json:"owner_id,omitempty"`
	Members []string `json:"members,omitempty"`
}

// Teams is the client for the team-management service.
type Teams struct {
	apiClient
}

func NewTeams(baseURL, apiKey string) *Teams {
	return &Teams{apiClient: newAPIClient(baseURL, apiKey)}
}

// CreateTeamResponse carries the id assigned to a new team.
type CreateTeamResponse struct {
	Message string `json:"message"`
	TeamID  string `json:"team_id"`
}

func (t *Teams) Get(ctx context.Context, teamID string) (Team, error) {
	var out Team
	path := "/api/v1/teams/getTeam/" + url.PathEscape(teamID)
	if err := t.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return Team{}, err
	}
	return out, nil
}

func (t *Teams) GetMany(ctx context.Context, teamIDs []string) ([]Team, error) {
	req := struct {
		TeamIDs []string `json:"team_ids"`
	}{TeamIDs: teamIDs}
	var out []Team
	if err := t.do(ctx, http.MethodPost, "/api/v1/teams/getTeams", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Teams) Create(ctx context.Context, userID, teamName string) (CreateTeamResponse, error) {
	req := struct {
		UserID   string `json:"user_id"`
		TeamName string `json:"team_name"`
	}{UserID: userID, TeamName: teamName}
	var out CreateTeamResponse
	if err := t.do(ctx, http.MethodPost, "/api/v1/teams/createTeam", req, &out); err != nil {
		return CreateTeamResponse{}, err
	}
	return out, nil
}

func (t *Teams) AddMember(ctx context.Context, teamID, userID, newMemberID string) error {
	req := struct {
		UserID      string `json:"user_id"`
		NewMemberID string `json:"new_member_id"`
	}{UserID: userID, NewMemberID: newMemberID}
	path := "/api/v1/teams/addMember/" + url.PathEscape(teamID)
	return t.do(ctx, http.MethodPost, path, req, nil)
}

// DeleteMember removes a member; an owner removing themselves deletes
// the team.
func (t *Teams) DeleteMember(ctx context.Context, teamID, userID, deleteMemberID string) (json.RawMessage, error) {
	req := struct {
		UserID         string `json:"user_id"`
		DeleteMemberID string `json:"delete_member_id"`
	}{UserID: userID, DeleteMemberID: deleteMemberID}
	var out json.RawMessage
	path := "/api/v1/teams/deleteMember/" + url.PathEscape(teamID)
	if err := t.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (t *Teams) Leave(ctx context.Context, userID, teamID string) error {
	req := struct {
		UserID string `json:"user_id"`
		TeamID string `json:"team_id"`
	}{UserID: userID, TeamID: teamID}
	return t.do(ctx, http.MethodPost, "/api/v1/teams/leaveTeam", req, nil)
}
