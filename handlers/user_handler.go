package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"frt-gateway/services"
)

// UserHandler proxies user lookups and writes to the document-store
// facade.
type UserHandler struct {
	users *services.Users
	log   *zap.Logger
}

func NewUserHandler(users *services.Users, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// Register attaches the user routes. The by-email route must precede the
// generic {uid} route.
func (h *UserHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/users/getUserByEmail/{userEmail}", h.GetUserByEmail).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/getUsersByIds", h.GetUsersByIDs).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/{uid}", h.GetUser).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{uid}", h.CreateUser).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/{uid}", h.UpdateUser).Methods(http.MethodPut)
	r.HandleFunc("/api/v1/telegramUsers/{uid}", h.GetTelegramUser).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/telegramUsers/{uid}", h.LinkTelegramUser).Methods(http.MethodPost)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	user, err := h.users.Get(r.Context(), uid)
	if err != nil {
		h.log.Error("fetch user", zap.String("uid", uid), zap.Error(err))
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, user)
}

func (h *UserHandler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["userEmail"]
	user, err := h.users.GetByEmail(r.Context(), email)
	if err != nil {
		h.log.Error("fetch user by email", zap.String("email", email), zap.Error(err))
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, user)
}

func (h *UserHandler) GetUsersByIDs(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIDs []string `json:"userIds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UserIDs) == 0 {
		http.Error(w, "Invalid request parameters", http.StatusBadRequest)
		return
	}
	users, err := h.users.BulkGet(r.Context(), req.UserIDs)
	if err != nil {
		h.log.Error("bulk fetch users", zap.Int("count", len(req.UserIDs)), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, users)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	var req struct {
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.DisplayName == "" {
		http.Error(w, "Display name is required", http.StatusBadRequest)
		return
	}
	result, err := h.users.Create(r.Context(), uid, req.Email, req.DisplayName)
	if err != nil {
		h.log.Error("create user", zap.String("uid", uid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil || !json.Valid(body) {
		http.Error(w, "Invalid user data", http.StatusBadRequest)
		return
	}
	result, err := h.users.Update(r.Context(), uid, body)
	if err != nil {
		h.log.Error("update user", zap.String("uid", uid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func (h *UserHandler) GetTelegramUser(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	user, err := h.users.GetTelegram(r.Context(), uid)
	if err != nil {
		h.log.Error("fetch telegram user", zap.String("uid", uid), zap.Error(err))
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}
	writeJSON(w, user)
}

func (h *UserHandler) LinkTelegramUser(w http.ResponseWriter, r *http.Request) {
	uid := mux.Vars(r)["uid"]
	var req struct {
		LocalUserID string `json:"localUserId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	result, err := h.users.LinkTelegram(r.Context(), uid, req.LocalUserID)
	if err != nil {
		h.log.Error("link telegram user", zap.String("uid", uid), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
