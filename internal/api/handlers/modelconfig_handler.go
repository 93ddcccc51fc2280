package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	db "github.com/docqa/server/internal/core/database"
	"github.com/docqa/server/internal/models"
)

type ModelConfigHandler struct {
	db  db.DbClient
	log *slog.Logger
}

func NewModelConfigHandler(database db.DbClient) *ModelConfigHandler {
	return &ModelConfigHandler{db: database, log: slog.Default().With("handler", "model-config")}
}

type modelConfigRequest struct {
	ID         uuid.UUID `json:"id"`
	ConfigType string    `json:"config_type" validate:"required,oneof=chat embedding"`
	Provider   string    `json:"provider" validate:"required,oneof=openai gemini"`
	ModelName  string    `json:"model_name" validate:"required"`
	APIKey     string    `json:"api_key"`
	BaseURL    string    `json:"base_url" validate:"omitempty,url"`
	Remark     string    `json:"remark"`
}

func (h *ModelConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req modelConfigRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	cfg := &models.ModelConfig{
		ID:         uuid.New(),
		ConfigType: req.ConfigType,
		Provider:   req.Provider,
		ModelName:  req.ModelName,
		APIKey:     req.APIKey,
		BaseURL:    req.BaseURL,
		Remark:     req.Remark,
	}
	if err := h.db.CreateModelConfig(r.Context(), cfg); err != nil {
		respondError(w, http.StatusInternalServerError, "create model config failed")
		return
	}
	respondOK(w, cfg)
}

func (h *ModelConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req modelConfigRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.ID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}
	cfg := &models.ModelConfig{
		ID:         req.ID,
		ConfigType: req.ConfigType,
		Provider:   req.Provider,
		ModelName:  req.ModelName,
		APIKey:     req.APIKey,
		BaseURL:    req.BaseURL,
		Remark:     req.Remark,
	}
	if err := h.db.UpdateModelConfig(r.Context(), cfg); err != nil {
		respondError(w, http.StatusInternalServerError, "update model config failed")
		return
	}
	respondOK(w, cfg)
}

func (h *ModelConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.db.DeleteModelConfig(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "delete model config failed")
		return
	}
	respondOK(w, nil)
}

func (h *ModelConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	configs, err := h.db.ListModelConfigs(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "list model configs failed")
		return
	}
	respondOK(w, configs)
}

// Activate makes one config the active one for its type, deactivating any
// sibling of the same type.
func (h *ModelConfigHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.db.ActivateModelConfig(r.Context(), id); err != nil {
		respondError(w, http.StatusInternalServerError, "activate model config failed")
		return
	}
	respondOK(w, nil)
}
