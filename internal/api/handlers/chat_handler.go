package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/docqa/server/internal/core/chat"
	"github.com/docqa/server/internal/models"
)

type ChatHandler struct {
	svc *chat.Service
	log *slog.Logger
}

func NewChatHandler(svc *chat.Service) *ChatHandler {
	return &ChatHandler{svc: svc, log: slog.Default().With("handler", "chat")}
}

// Chat streams the answer as newline-delimited JSON, one event per line.
// Events flush immediately so the client sees tokens as they arrive.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var params models.ChatParams
	if !decodeAndValidate(w, r, &params) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")

	enc := json.NewEncoder(w)
	started := false
	err := h.svc.Stream(r.Context(), params, func(ev models.ChatStreamResponse) error {
		if err := enc.Encode(ev); err != nil {
			return err
		}
		started = true
		flusher.Flush()
		return nil
	})
	if err != nil {
		h.log.Error("chat stream failed", "session", params.ChatSessionID, "error", err)
		if !started {
			respondError(w, http.StatusInternalServerError, "chat stream failed")
		}
	}
}

// History returns the stored messages of one session, oldest first.
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	history, err := h.svc.History(r.Context(), sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "load history failed")
		return
	}
	respondOK(w, history)
}
