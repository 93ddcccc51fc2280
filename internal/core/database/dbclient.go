package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/docqa/server/internal/models"
)

// DbClient defines all persistence operations the handlers and services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	UpdateDocument(ctx context.Context, doc *models.Document) error
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
	PageDocuments(ctx context.Context, q models.DocumentQuery) (*models.DocumentPage, error)
	MarkAllDocumentsVectorized(ctx context.Context) error

	CreateChatSession(ctx context.Context, s *models.ChatSession) error
	ListChatSessions(ctx context.Context) ([]models.ChatSession, error)
	UpdateChatSessionTitle(ctx context.Context, id uuid.UUID, title string) error
	DeleteChatSession(ctx context.Context, id uuid.UUID) error

	AppendChatHistory(ctx context.Context, h *models.ChatHistory) error
	ListHistoryBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ChatHistory, error)

	CreateModelConfig(ctx context.Context, c *models.ModelConfig) error
	UpdateModelConfig(ctx context.Context, c *models.ModelConfig) error
	DeleteModelConfig(ctx context.Context, id uuid.UUID) error
	ListModelConfigs(ctx context.Context) ([]models.ModelConfig, error)
	GetActiveModelConfig(ctx context.Context, configType string) (*models.ModelConfig, error)
	ActivateModelConfig(ctx context.Context, id uuid.UUID) error

	Close() error
}
