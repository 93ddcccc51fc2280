package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docqa/server/internal/core"
	db "github.com/docqa/server/internal/core/database"
	"github.com/docqa/server/internal/models"
)

// Retrieval and prompt defaults.
const (
	retrieveK          = 3
	retrieveFetchK     = 20
	retrieveLambda     = 0.5
	contextTokenBudget = 3000
)

// providerSource resolves the chat model to stream against. Satisfied by
// llm.Factory.
type providerSource interface {
	ChatProvider(ctx context.Context) (core.LLMProvider, string, error)
}

// Service runs one question/answer exchange end to end: history lookup,
// optional retrieval, model streaming and persistence of both turns.
type Service struct {
	db        db.DbClient
	vectors   core.VectorStore
	providers providerSource
	log       *slog.Logger
}

func NewService(database db.DbClient, vectors core.VectorStore, providers providerSource) *Service {
	return &Service{
		db:        database,
		vectors:   vectors,
		providers: providers,
		log:       slog.Default().With("component", "chat"),
	}
}

func (s *Service) History(ctx context.Context, sessionID uuid.UUID) ([]models.ChatHistory, error) {
	return s.db.ListHistoryBySession(ctx, sessionID)
}

// Stream answers one question, calling emit for every stream event. Emitted
// tokens never include reasoning markers. Whatever accumulated before a
// mid-stream failure is still persisted so the session survives the error.
func (s *Service) Stream(ctx context.Context, params models.ChatParams, emit func(models.ChatStreamResponse) error) error {
	question := params.Messages.Content

	history, err := s.db.ListHistoryBySession(ctx, params.ChatSessionID)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	if err := s.db.AppendChatHistory(ctx, &models.ChatHistory{
		Role:          "user",
		Content:       question,
		ChatSessionID: params.ChatSessionID,
	}); err != nil {
		return fmt.Errorf("persist question: %w", err)
	}

	var retrieved []core.ScoredChunk
	if params.UseKnowledge == nil || *params.UseKnowledge {
		retrieved, err = s.vectors.Search(ctx, question, retrieveK, retrieveFetchK, retrieveLambda)
		if err != nil {
			s.log.Warn("retrieval failed, answering without context", "error", err)
			retrieved = nil
		}
	}

	provider, modelName, err := s.providers.ChatProvider(ctx)
	if err != nil {
		return fmt.Errorf("resolve chat model: %w", err)
	}
	if params.Model != "" {
		modelName = params.Model
	}

	tokens, err := provider.StreamChat(ctx, buildMessages(question, history, retrieved, contextTokenBudget))
	if err != nil {
		return fmt.Errorf("start stream: %w", err)
	}

	asm := &Assembler{}
	event := func(content string, done bool, reason string) models.ChatStreamResponse {
		return models.ChatStreamResponse{
			Model:      modelName,
			CreatedAt:  time.Now().UnixMilli(),
			Message:    models.Chatting{Role: "assistant", Content: content},
			Done:       done,
			DoneReason: reason,
		}
	}

	for tok := range tokens {
		if tok.Err != nil {
			s.persistAnswer(params.ChatSessionID, asm)
			return fmt.Errorf("stream: %w", tok.Err)
		}
		if tok.Done {
			break
		}
		if !asm.Feed(tok.Content) {
			continue
		}
		if err := emit(event(tok.Content, false, "")); err != nil {
			s.persistAnswer(params.ChatSessionID, asm)
			return fmt.Errorf("write event: %w", err)
		}
	}

	if err := emit(event("", true, "stop")); err != nil {
		s.persistAnswer(params.ChatSessionID, asm)
		return fmt.Errorf("write final event: %w", err)
	}

	s.persistAnswer(params.ChatSessionID, asm)
	return nil
}

// persistAnswer stores the assistant turn best effort; a failed insert must
// not mask the stream outcome.
func (s *Service) persistAnswer(sessionID uuid.UUID, asm *Assembler) {
	if asm.Content() == "" && asm.Think() == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.db.AppendChatHistory(ctx, &models.ChatHistory{
		Role:          "assistant",
		Content:       asm.Content(),
		Think:         asm.Think(),
		ChatSessionID: sessionID,
	}); err != nil {
		s.log.Error("persist answer failed", "session", sessionID, "error", err)
	}
}
