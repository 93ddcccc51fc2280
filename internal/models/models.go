package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is the persisted record of an uploaded file. The file itself lives
// in the storage directory the ingestion loader walks; Vectorized flips to
// true after a full ingestion run.
type Document struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	FileName   string    `db:"file_name" json:"file_name"`
	FilePath   string    `db:"file_path" json:"file_path"`
	Suffix     string    `db:"suffix" json:"suffix"`
	Vectorized bool      `db:"vectorized" json:"vectorized"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ChatSession groups chat history records into one conversation.
type ChatSession struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatHistory is one persisted message, user or assistant. Think holds the
// reasoning span the model emitted between think markers; it is stored apart
// from the visible answer.
type ChatHistory struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Role          string    `db:"role" json:"role"`
	Content       string    `db:"content" json:"content"`
	Think         string    `db:"think" json:"think,omitempty"`
	ChatSessionID uuid.UUID `db:"chat_session_id" json:"chat_session_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Model config types; exactly one config per type may be active.
const (
	ConfigTypeChat      = "chat"
	ConfigTypeEmbedding = "embedding"
)

// Providers a ModelConfig row can point at.
const (
	ProviderOpenAI = "openai" // any OpenAI-compatible endpoint
	ProviderGemini = "gemini"
)

// ModelConfig is a runtime-editable model endpoint configuration.
type ModelConfig struct {
	ID         uuid.UUID `db:"id" json:"id"`
	ConfigType string    `db:"config_type" json:"config_type"`
	Provider   string    `db:"provider" json:"provider"`
	ModelName  string    `db:"model_name" json:"model_name"`
	APIKey     string    `db:"api_key" json:"api_key"`
	BaseURL    string    `db:"base_url" json:"base_url"`
	IsActive   bool      `db:"is_active" json:"is_active"`
	Remark     string    `db:"remark" json:"remark"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Chatting is the role/content pair used on the chat wire.
type Chatting struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// ChatParams is the chat request body.
type ChatParams struct {
	Model         string    `json:"model,omitempty"`
	Messages      *Chatting `json:"messages" validate:"required"`
	ChatSessionID uuid.UUID `json:"chat_session_id" validate:"required"`
	UseKnowledge  *bool     `json:"use_knowledge,omitempty"`
}

// ChatStreamResponse is one line of the NDJSON chat stream.
type ChatStreamResponse struct {
	Model      string   `json:"model"`
	CreatedAt  int64    `json:"created_at"`
	Message    Chatting `json:"message"`
	Done       bool     `json:"done"`
	DoneReason string   `json:"done_reason,omitempty"`
}

// DocumentPage is one page of the document listing.
type DocumentPage struct {
	Total    int        `json:"total"`
	PageNum  int        `json:"page_num"`
	PageSize int        `json:"page_size"`
	List     []Document `json:"list"`
}

// DocumentQuery carries listing/deletion parameters.
type DocumentQuery struct {
	ID       uuid.UUID `json:"id,omitempty"`
	Name     string    `json:"name,omitempty"`
	PageNum  int       `json:"page_num,omitempty"`
	PageSize int       `json:"page_size,omitempty"`
}
