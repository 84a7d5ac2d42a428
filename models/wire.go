package models

import "encoding/json"

// Broker topic names shared with every service on the bus.
const (
	ChatTopic    = "message_stream_topic"
	MapTopic     = "map_topic"
	MissionTopic = "mission_topic"
)

// Location is a longitude/latitude pair as carried on the map topic.
type Location struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// MissionStatus is an ordinal with no enforced transition graph: any
// status may follow any other.
type MissionStatus int

const (
	MissionStatusNA MissionStatus = iota
	MissionStatusOpen
	MissionStatusActive
	MissionStatusCompleted
	MissionStatusResolved
	MissionStatusCancelled
	MissionStatusDeleted
)

// Timeline action codes embedded in timeline chat messages.
const (
	TimelineDeleteMark    = 1
	TimelineUpdateMark    = 2
	TimelineAddMark       = 3
	TimelineUpdateMap     = 4
	TimelineCreateMission = 5
	TimelineUpdateMission = 6
	TimelineDeleteMission = 7
	TimelineStartNewChat  = 550
)

// ReplyMarkup is the inline-keyboard attachment on action-request chat
// messages.
type ReplyMarkup struct {
	InlineKeyboard [][]InlineButton `json:"inline_keyboard"`
}

type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// ChatStreamMessage is the DTO published to and consumed from
// message_stream_topic.
type ChatStreamMessage struct {
	UserID        string          `json:"user_id"`
	MessageID     string          `json:"message_id"`
	MessageType   string          `json:"message_type"`
	ChatID        string          `json:"chat_id"`
	Timestamp     string          `json:"timestamp"`
	Message       json.RawMessage `json:"message"`
	MessageOrigin string          `json:"message_origin"`
	ReplyMarkup   *ReplyMarkup    `json:"reply_markup,omitempty"`
}

// MapStreamMessage is the DTO on map_topic. Publishing the same
// message_id with different fields updates the marker; active=false is a
// soft delete.
type MapStreamMessage struct {
	MapID             string   `json:"map_id"`
	MarkType          int      `json:"mark_type"`
	UserID            string   `json:"user_id"`
	MessageID         string   `json:"message_id"`
	Timestamp         int64    `json:"timestamp"`
	Active            bool     `json:"active"`
	Location          Location `json:"location"`
	Description       string   `json:"description"`
	Size              int      `json:"size"`
	Title             string   `json:"title"`
	PublishToTelegram bool     `json:"publish_to_telegram"`
}

// MissionStreamMessage is the DTO on mission_topic.
type MissionStreamMessage struct {
	MissionID         string        `json:"mission_id"`
	CreatorID         string        `json:"creator_id"`
	AssignedID        string        `json:"assigned_id,omitempty"`
	Name              string        `json:"name"`
	Description       string        `json:"description"`
	StartTime         int64         `json:"start_time,omitempty"`
	EndTime           int64         `json:"end_time,omitempty"`
	Deadline          int64         `json:"deadline,omitempty"`
	MarkID            string        `json:"mark_id,omitempty"`
	MissionStatus     MissionStatus `json:"mission_status"`
	HistoryAssignee   []string      `json:"history_assignee"`
	CreatedAt         int64         `json:"created_at,omitempty"`
	UpdatedAt         int64         `json:"updated_at,omitempty"`
	TeamID            string        `json:"team_id"`
	PublishToTelegram bool          `json:"publish_to_telegram"`
}

// MissionStreamFromEnvelope maps the socket mission frame onto the topic
// DTO. The mapping mirrors the web client frame exactly: the creator is
// read from mission_data.user_id and updated_at from update_at.
func MissionStreamFromEnvelope(env *MissionEnvelope) MissionStreamMessage {
	md := env.MissionData
	return MissionStreamMessage{
		MissionID:         md.ID,
		CreatorID:         md.UserID,
		AssignedID:        md.AssignedID,
		Name:              md.Name,
		Description:       md.Description,
		StartTime:         md.StartTime,
		EndTime:           md.EndTime,
		Deadline:          md.Deadline,
		MarkID:            md.MarkID,
		MissionStatus:     md.MissionStatus,
		HistoryAssignee:   md.HistoryAssignee,
		CreatedAt:         md.CreatedAt,
		UpdatedAt:         md.UpdateAt,
		TeamID:            md.TeamID,
		PublishToTelegram: md.PublishToTelegram,
	}
}

// ChatFrame is the outbound socket shape for chat-topic messages.
type ChatFrame struct {
	ID          string          `json:"id"`
	Message     json.RawMessage `json:"message"`
	SenderID    string          `json:"senderId"`
	Type        string          `json:"type"`
	Timestamp   string          `json:"timestamp"`
	ReplyMarkup *ReplyMarkup    `json:"reply_markup,omitempty"`
}

// ChatFrameFromStream converts a consumed chat DTO into the client wire
// shape. callback_data messages surface to clients as actionResponse.
func ChatFrameFromStream(m ChatStreamMessage) ChatFrame {
	messageType := m.MessageType
	if messageType == string(TypeCallbackData) {
		messageType = string(TypeActionResponse)
	}
	return ChatFrame{
		ID:          m.UserID + m.ChatID + m.Timestamp,
		Message:     m.Message,
		SenderID:    m.UserID,
		Type:        messageType,
		Timestamp:   m.Timestamp,
		ReplyMarkup: m.ReplyMarkup,
	}
}

// MarkerFrame is a map DTO rebroadcast to sockets with the mark tag.
type MarkerFrame struct {
	MapStreamMessage
	Type string `json:"type"`
}

// NewMarkerFrame tags a map DTO for the socket.
func NewMarkerFrame(m MapStreamMessage) MarkerFrame {
	return MarkerFrame{MapStreamMessage: m, Type: string(TypeMark)}
}

// TypingFrame is the advisory presence broadcast.
type TypingFrame struct {
	Type     string `json:"type"`
	SenderID string `json:"senderId"`
	Typing   bool   `json:"typing"`
}

func NewTypingFrame(senderID string, typing bool) TypingFrame {
	return TypingFrame{Type: string(TypeTyping), SenderID: senderID, Typing: typing}
}

// ErrorFrame is the protocol-error reply sent to the offending socket
// only; the connection stays open.
type ErrorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewErrorFrame(message string) ErrorFrame {
	return ErrorFrame{Type: "error", Message: message}
}

// AdditionalMessagesFrame answers a loadMore request on the requesting
// socket.
type AdditionalMessagesFrame struct {
	Type     string           `json:"type"`
	Messages []HistoryMessage `json:"messages"`
}

func NewAdditionalMessagesFrame(messages []HistoryMessage) AdditionalMessagesFrame {
	return AdditionalMessagesFrame{Type: "additionalMessages", Messages: messages}
}
