package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"frt-gateway/models"
	"frt-gateway/services"
)

// ChatHandler serves the synchronous history surface: paginated pages,
// insight counts, attendance logs and timeline export. This path is
// independent of the socket relay.
type ChatHandler struct {
	messenger *services.Messenger
	log       *zap.Logger
}

func NewChatHandler(messenger *services.Messenger, log *zap.Logger) *ChatHandler {
	return &ChatHandler{messenger: messenger, log: log}
}

func (h *ChatHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/chats/history", h.GetHistory).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/chats/insights/{teamId}", h.GetInsights).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/chats/actionResponses/{teamId}/{messageId}", h.GetActionResponses).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/chats/export", h.ExportTimeline).Methods(http.MethodPost)
}

// GetHistory returns one page of chat history, newest first.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	teamID := r.URL.Query().Get("teamId")
	if teamID == "" {
		http.Error(w, "Team ID is required", http.StatusBadRequest)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}

	messages, err := h.messenger.GetChat(r.Context(), teamID, page, pageSize)
	if err != nil {
		h.log.Error("fetch chat history", zap.String("team", teamID), zap.Int("page", page), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, struct {
		Messages []models.HistoryMessage `json:"messages"`
	}{Messages: messages})
}

func (h *ChatHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	teamID := mux.Vars(r)["teamId"]
	insights, err := h.messenger.GetChatInsights(r.Context(), teamID)
	if err != nil {
		h.log.Error("fetch chat insights", zap.String("team", teamID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, insights)
}

func (h *ChatHandler) GetActionResponses(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	results, err := h.messenger.GetCallbackQueryResults(r.Context(), vars["teamId"], vars["messageId"])
	if err != nil {
		h.log.Error("fetch action responses", zap.String("team", vars["teamId"]), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, results)
}

func (h *ChatHandler) ExportTimeline(w http.ResponseWriter, r *http.Request) {
	var req services.TimelineExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChatID == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rows, err := h.messenger.GetTimelineExport(r.Context(), req)
	if err != nil {
		h.log.Error("timeline export", zap.String("team", req.ChatID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}
