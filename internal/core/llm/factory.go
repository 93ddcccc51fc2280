package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/docqa/server/internal/config"
	"github.com/docqa/server/internal/core"
	db "github.com/docqa/server/internal/core/database"
	"github.com/docqa/server/internal/models"
)

// Factory resolves the chat and embedding providers from the active
// model_config rows, falling back to env defaults when no row is active.
// It implements core.EmbeddingProvider itself so the vector store always
// embeds with whatever configuration is currently active.
type Factory struct {
	db  db.DbClient
	cfg *config.Config

	mu        sync.Mutex
	embKey    string
	embCached core.EmbeddingProvider
}

var _ core.EmbeddingProvider = (*Factory)(nil)

func NewFactory(dbc db.DbClient, cfg *config.Config) *Factory {
	return &Factory{db: dbc, cfg: cfg}
}

// ChatProvider returns the streaming chat provider and its model name.
func (f *Factory) ChatProvider(ctx context.Context) (core.LLMProvider, string, error) {
	mc, err := f.db.GetActiveModelConfig(ctx, models.ConfigTypeChat)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, "", fmt.Errorf("load chat model config: %w", err)
	}
	if mc == nil {
		return NewOpenAILLM(f.cfg.ChatBaseURL, f.cfg.ChatAPIKey, f.cfg.ChatModel), f.cfg.ChatModel, nil
	}
	switch mc.Provider {
	case models.ProviderGemini:
		p, err := NewGeminiLLM(ctx, mc.APIKey, mc.ModelName)
		if err != nil {
			return nil, "", err
		}
		return p, mc.ModelName, nil
	default:
		return NewOpenAILLM(mc.BaseURL, mc.APIKey, mc.ModelName), mc.ModelName, nil
	}
}

// ChatModelName reports the active chat model for stream envelopes.
func (f *Factory) ChatModelName(ctx context.Context) string {
	mc, err := f.db.GetActiveModelConfig(ctx, models.ConfigTypeChat)
	if err != nil || mc == nil {
		return f.cfg.ChatModel
	}
	return mc.ModelName
}

func (f *Factory) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	p, err := f.embeddingProvider(ctx)
	if err != nil {
		return nil, err
	}
	return p.EmbedTexts(ctx, texts)
}

// embeddingProvider caches the resolved provider; the cache key changes when
// a different config row becomes active or the row is edited.
func (f *Factory) embeddingProvider(ctx context.Context) (core.EmbeddingProvider, error) {
	mc, err := f.db.GetActiveModelConfig(ctx, models.ConfigTypeEmbedding)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("load embedding model config: %w", err)
	}

	key := "env"
	if mc != nil {
		key = fmt.Sprintf("%s@%d", mc.ID, mc.UpdatedAt.UnixNano())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embCached != nil && f.embKey == key {
		return f.embCached, nil
	}

	var p core.EmbeddingProvider
	switch {
	case mc == nil:
		p = NewOpenAIEmbedder(f.cfg.EmbedBaseURL, f.cfg.EmbedAPIKey, f.cfg.EmbedModel)
	case mc.Provider == models.ProviderGemini:
		gp, err := NewGeminiEmbedder(ctx, mc.APIKey, mc.ModelName)
		if err != nil {
			return nil, err
		}
		p = gp
	default:
		p = NewOpenAIEmbedder(mc.BaseURL, mc.APIKey, mc.ModelName)
	}

	f.embKey = key
	f.embCached = p
	return p, nil
}
