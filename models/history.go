package models

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexString accepts a JSON string or number and keeps it as a string.
// History rows mix the two for timestamps depending on which service
// wrote them.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex string: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Int64 parses the value as a millisecond timestamp; zero when absent or
// non-numeric.
func (f FlexString) Int64() int64 {
	n, err := strconv.ParseInt(string(f), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// HistoryMessage is one row of paginated chat history as the messenger
// service returns it. Fields are passed through untouched so a loadMore
// reply carries exactly what the service sent.
type HistoryMessage struct {
	MessageID   string          `json:"message_id,omitempty"`
	UserID      string          `json:"user_id,omitempty"`
	SenderID    string          `json:"senderId,omitempty"`
	ID          FlexString      `json:"id,omitempty"`
	ChatID      string          `json:"chat_id,omitempty"`
	MessageType string          `json:"message_type,omitempty"`
	Type        string          `json:"type,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
	ReplyMarkup json.RawMessage `json:"reply_markup,omitempty"`
	Timestamp   FlexString      `json:"timestamp,omitempty"`
}

// Key returns the row's stable identifier: the message id when the
// service assigned one, otherwise a key synthesized from sender, id,
// chat and timestamp.
func (h HistoryMessage) Key() string {
	if h.MessageID != "" {
		return h.MessageID
	}
	return h.UserID + h.ID.String() + h.ChatID + h.Timestamp.String()
}

// Sender returns the author regardless of which field carried it.
func (h HistoryMessage) Sender() string {
	if h.UserID != "" {
		return h.UserID
	}
	return h.SenderID
}

// Kind normalizes the type tag: history rows use message_type, live
// frames use type, and callback_data surfaces as actionResponse.
func (h HistoryMessage) Kind() string {
	kind := h.MessageType
	if kind == "" {
		kind = h.Type
	}
	if kind == string(TypeCallbackData) {
		return string(TypeActionResponse)
	}
	return kind
}
