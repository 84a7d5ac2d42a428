package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"frt-gateway/models"
)

// Messenger is the client for the chat history service. Pages are
// fixed-size windows fetched newest-first.
type Messenger struct {
	apiClient
}

func NewMessenger(baseURL, apiKey string) *Messenger {
	return &Messenger{apiClient: newAPIClient(baseURL, apiKey)}
}

// ChatInsights describes the stored history for one chat; the row count
// drives load-more availability on the client.
type ChatInsights struct {
	NumberOfRows    int      `json:"number_of_rows"`
	NumberOfColumns int      `json:"number_of_columns"`
	ColumnNames     []string `json:"column_names"`
}

// CallbackQueryResult is one logged button-press response, used for
// attendance missions.
type CallbackQueryResult struct {
	Message     CallbackQueryMessage `json:"message"`
	MessageType string               `json:"message_type"`
	ChatID      string               `json:"chat_id"`
	MessageID   string               `json:"message_id"`
	Timestamp   int64                `json:"timestamp"`
	UserID      string               `json:"user_id"`
}

type CallbackQueryMessage struct {
	QueryMessageID string `json:"query_message_id"`
	Data           string `json:"data"`
}

// TimelineExportRow is one row of the timeline export.
type TimelineExportRow struct {
	Timestamp string `json:"Timestamp"`
	UserName  string `json:"User Name"`
	Timeline  string `json:"Timeline"`
}

// TimelineExportRequest bounds the export window; zero times mean
// unbounded.
type TimelineExportRequest struct {
	ChatID    string `json:"chat_id"`
	StartTime int64  `json:"start_time,omitempty"`
	EndTime   int64  `json:"end_time,omitempty"`
}

// GetChat fetches one history page, newest first.
func (m *Messenger) GetChat(ctx context.Context, chatID string, page, pageSize int) ([]models.HistoryMessage, error) {
	req := struct {
		ChatID   string `json:"chat_id"`
		Page     int    `json:"page"`
		PageSize int    `json:"page_size"`
	}{ChatID: chatID, Page: page, PageSize: pageSize}

	var out []models.HistoryMessage
	if err := m.do(ctx, http.MethodPost, "/api/v1/messenger/getChat", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetChatInsights returns the total stored row count for a chat.
func (m *Messenger) GetChatInsights(ctx context.Context, chatID string) (ChatInsights, error) {
	var out ChatInsights
	path := "/api/v1/messenger/getChatInsights/" + url.PathEscape(chatID)
	if err := m.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return ChatInsights{}, err
	}
	return out, nil
}

// GetCallbackQueryResults returns the response log for one action
// request message.
func (m *Messenger) GetCallbackQueryResults(ctx context.Context, chatID, queryMessageID string) ([]CallbackQueryResult, error) {
	var out []CallbackQueryResult
	path := fmt.Sprintf("/api/v1/messenger/getCallbackQueryResults/%s/%s",
		url.PathEscape(chatID), url.PathEscape(queryMessageID))
	if err := m.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTimelineExport returns timeline rows for export.
func (m *Messenger) GetTimelineExport(ctx context.Context, req TimelineExportRequest) ([]TimelineExportRow, error) {
	var out []TimelineExportRow
	if err := m.do(ctx, http.MethodPost, "/api/v1/messenger/getChatTimelineExcel", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
