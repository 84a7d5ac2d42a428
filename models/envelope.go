package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType is the discriminator tag on every inbound socket envelope.
type MessageType string

const (
	TypeText     MessageType = "text"
	TypePhoto    MessageType = "photo"
	TypeTyping   MessageType = "typing"
	TypeMark     MessageType = "mark"
	TypeMission  MessageType = "mission"
	TypeLoadMore MessageType = "loadMore"

	// Broker-origin types that only ever travel server -> client.
	TypeTimeline       MessageType = "timeline"
	TypeActionResponse MessageType = "actionResponse"
	TypeCallbackData   MessageType = "callback_data"
)

var (
	// ErrUnknownType marks an envelope whose tag is not one of the client
	// types. The router logs and drops these without touching the socket.
	ErrUnknownType = errors.New("unknown message type")

	errMissingField = errors.New("missing required field")
)

// Envelope is the decoded form of an inbound socket frame. Exactly one of
// the variant pointers is set, matching Type.
type Envelope struct {
	Type MessageType

	// SenderID is the identity declared on the frame, when present. The
	// connection adopts the first non-empty value it sees.
	SenderID string

	Chat     *ChatEnvelope
	Typing   *TypingEnvelope
	LoadMore *LoadMoreEnvelope
	Mark     *MarkEnvelope
	Mission  *MissionEnvelope
}

// ChatEnvelope carries a text or photo message. Photos arrive with the
// file name and base64 data as the message body.
type ChatEnvelope struct {
	SenderID  string          `json:"senderId"`
	TeamID    string          `json:"id"`
	Message   json.RawMessage `json:"message"`
	Timestamp string          `json:"timestamp"`
}

// TypingEnvelope is an advisory presence signal, never persisted.
type TypingEnvelope struct {
	SenderID string `json:"senderId"`
	TeamID   string `json:"teamId"`
	Typing   bool   `json:"typing"`
}

// LoadMoreEnvelope requests one more page of chat history for the
// requesting socket only.
type LoadMoreEnvelope struct {
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// MarkEnvelope is a map marker add/edit/retire. The message id is
// client-generated; resending the same id updates the marker, and
// active=false retires it.
type MarkEnvelope struct {
	UserID            string   `json:"user_id"`
	MapID             string   `json:"map_id"`
	MessageID         string   `json:"message_id"`
	MarkType          int      `json:"mark_type"`
	Timestamp         int64    `json:"timestamp"`
	Description       string   `json:"description"`
	Active            bool     `json:"active"`
	Location          Location `json:"location"`
	Size              int      `json:"size"`
	Title             string   `json:"title"`
	PublishToTelegram bool     `json:"publishToTelegram"`
}

// MissionEnvelope is the socket-side mission path. Missions normally flow
// over HTTP; this stays inert unless a mission frame explicitly arrives.
type MissionEnvelope struct {
	UserID      string       `json:"user_id"`
	TeamID      string       `json:"team_id"`
	MissionID   string       `json:"mission_id"`
	Action      int          `json:"action"`
	MissionData *MissionData `json:"mission_data"`
}

// MissionData mirrors the frame shape the web client sends. Note the
// creator travels in user_id and the updated-at field is spelled
// update_at; both are kept as-is for wire compatibility.
type MissionData struct {
	ID                string          `json:"_id"`
	UserID            string          `json:"user_id"`
	AssignedID        string          `json:"assigned_id,omitempty"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	StartTime         int64           `json:"start_time,omitempty"`
	EndTime           int64           `json:"end_time,omitempty"`
	Deadline          int64           `json:"deadline,omitempty"`
	MarkID            string          `json:"mark_id,omitempty"`
	HistoryAssignee   []string        `json:"history_assignee,omitempty"`
	MissionStatus     MissionStatus   `json:"mission_status"`
	CreatedAt         int64           `json:"created_at,omitempty"`
	UpdateAt          int64           `json:"update_at,omitempty"`
	TeamID            string          `json:"team_id"`
	PublishToTelegram bool            `json:"publishToTelegram"`
}

// DecodeEnvelope parses an inbound frame: first the type tag, then the
// variant it selects. Unknown tags return ErrUnknownType; anything else
// that fails to parse or is missing a required field is a protocol error.
func DecodeEnvelope(raw []byte) (*Envelope, error) {
	var head struct {
		Type     MessageType `json:"type"`
		SenderID string      `json:"senderId"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	env := &Envelope{Type: head.Type, SenderID: head.SenderID}

	switch head.Type {
	case TypeText, TypePhoto:
		var chat ChatEnvelope
		if err := json.Unmarshal(raw, &chat); err != nil {
			return nil, fmt.Errorf("decode %s envelope: %w", head.Type, err)
		}
		if chat.SenderID == "" || chat.TeamID == "" || len(chat.Message) == 0 {
			return nil, fmt.Errorf("%s envelope: %w", head.Type, errMissingField)
		}
		env.Chat = &chat
	case TypeTyping:
		var typing TypingEnvelope
		if err := json.Unmarshal(raw, &typing); err != nil {
			return nil, fmt.Errorf("decode typing envelope: %w", err)
		}
		env.Typing = &typing
	case TypeLoadMore:
		var more LoadMoreEnvelope
		if err := json.Unmarshal(raw, &more); err != nil {
			return nil, fmt.Errorf("decode loadMore envelope: %w", err)
		}
		if more.PageSize <= 0 {
			more.PageSize = DefaultPageSize
		}
		env.LoadMore = &more
	case TypeMark:
		var mark MarkEnvelope
		if err := json.Unmarshal(raw, &mark); err != nil {
			return nil, fmt.Errorf("decode mark envelope: %w", err)
		}
		if mark.MessageID == "" || mark.MapID == "" {
			return nil, fmt.Errorf("mark envelope: %w", errMissingField)
		}
		env.Mark = &mark
	case TypeMission:
		var mission MissionEnvelope
		if err := json.Unmarshal(raw, &mission); err != nil {
			return nil, fmt.Errorf("decode mission envelope: %w", err)
		}
		if mission.MissionData == nil {
			return nil, fmt.Errorf("mission envelope: %w", errMissingField)
		}
		env.Mission = &mission
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}

	return env, nil
}

// DefaultPageSize is the history page window used when the client does not
// ask for a specific size.
const DefaultPageSize = 30
