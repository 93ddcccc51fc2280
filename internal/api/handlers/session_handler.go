package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	db "github.com/docqa/server/internal/core/database"
	"github.com/docqa/server/internal/models"
)

type SessionHandler struct {
	db  db.DbClient
	log *slog.Logger
}

func NewSessionHandler(database db.DbClient) *SessionHandler {
	return &SessionHandler{db: database, log: slog.Default().With("handler", "session")}
}

type sessionRequest struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Title == "" {
		req.Title = "New conversation"
	}
	session := &models.ChatSession{ID: uuid.New(), Title: req.Title}
	if err := h.db.CreateChatSession(r.Context(), session); err != nil {
		respondError(w, http.StatusInternalServerError, "create session failed")
		return
	}
	respondOK(w, session)
}

// List returns sessions newest first.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.db.ListChatSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list sessions failed")
		return
	}
	respondOK(w, sessions)
}

func (h *SessionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.ID == uuid.Nil || req.Title == "" {
		respondError(w, http.StatusBadRequest, "id and title are required")
		return
	}
	if err := h.db.UpdateChatSessionTitle(r.Context(), req.ID, req.Title); err != nil {
		respondError(w, http.StatusInternalServerError, "update session failed")
		return
	}
	respondOK(w, nil)
}

// Delete removes a session and, through the schema, its history.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.ID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := h.db.DeleteChatSession(r.Context(), req.ID); err != nil {
		respondError(w, http.StatusInternalServerError, "delete session failed")
		return
	}
	respondOK(w, nil)
}
